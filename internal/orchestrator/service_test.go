package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/classifier"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/disposition"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/enrichment"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/governor"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage/memory"
)

type stubSource struct {
	candidates []domain.Candidate
	err        error
	calls      int
}

func (s *stubSource) FetchLatestCandidates(context.Context) ([]domain.Candidate, error) {
	s.calls++
	return s.candidates, s.err
}

type fakeStats struct {
	stats map[string]domain.MarketStats
	calls int
}

func (f *fakeStats) FetchStats(_ context.Context, _ string, addrs []string) (map[string]domain.MarketStats, error) {
	f.calls++
	out := make(map[string]domain.MarketStats)
	for _, a := range addrs {
		if s, ok := f.stats[a]; ok {
			out[a] = s
		}
	}
	return out, nil
}

// fakeOracle answers from a per-address table and records which tokens it saw.
type fakeOracle struct {
	mu      sync.Mutex
	results map[string]domain.ClassificationResult
	errs    map[string]error
	seen    []string
}

func (o *fakeOracle) Analyze(_ context.Context, t *domain.Token) (domain.ClassificationResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, t.CA)
	if err, ok := o.errs[t.CA]; ok {
		return domain.ClassificationResult{}, err
	}
	if r, ok := o.results[t.CA]; ok {
		return r, nil
	}
	return domain.ClassificationResult{Classification: domain.ClassificationMeme, Confidence: 90}, nil
}

func (o *fakeOracle) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.seen)
}

func utility() domain.ClassificationResult {
	return domain.ClassificationResult{Classification: domain.ClassificationUtility, Confidence: 85, Reasoning: "ships a product"}
}

type fixture struct {
	svc    *Service
	source *stubSource
	stats  *fakeStats
	oracle *fakeOracle
	store  *memory.TokenStore
}

func newFixture(candidates []domain.Candidate) *fixture {
	f := &fixture{
		source: &stubSource{candidates: candidates},
		stats:  &fakeStats{stats: map[string]domain.MarketStats{}},
		oracle: &fakeOracle{results: map[string]domain.ClassificationResult{}, errs: map[string]error{}},
		store:  memory.NewTokenStore(),
	}
	f.svc = New(Options{
		Source:        f.source,
		Enricher:      enrichment.New(enrichment.Options{Stats: f.stats}),
		Oracle:        f.oracle,
		Store:         f.store,
		Cooldown:      governor.NewCooldown(time.Hour),
		StatsCooldown: governor.NewCooldown(time.Hour),
		SweepPace:     time.Millisecond,
		StatsPace:     time.Millisecond,
	})
	return f
}

func candidate(ca string) domain.Candidate {
	return domain.Candidate{ChainID: "solana", ContractAddress: ca, Description: "A token. More text"}
}

func mustStatus(t *testing.T, store *memory.TokenStore, ca string, want domain.Status) *domain.Token {
	t.Helper()
	tok, err := store.Get(context.Background(), ca)
	if err != nil {
		t.Fatalf("Get %s: %v", ca, err)
	}
	if tok.Status != want {
		t.Errorf("%s status = %s, want %s", ca, tok.Status, want)
	}
	return tok
}

func TestRun_KeepsUtilityAndAutoDeletesOffVenue(t *testing.T) {
	f := newFixture([]domain.Candidate{
		candidate("Keeppump"),
		candidate("Memepump"),
		candidate("Elsewhere111"),
	})
	f.oracle.results["Keeppump"] = utility()

	summary, err := f.svc.Run(context.Background(), EntryManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Discovered != 3 || summary.Inserted != 3 || summary.AutoDeleted != 1 {
		t.Errorf("unexpected counts: %+v", summary)
	}
	if summary.Kept != 1 || summary.Deleted != 1 || summary.Processed != 2 {
		t.Errorf("unexpected disposition: %+v", summary.DispositionSummary)
	}
	if summary.RunID == "" {
		t.Error("expected run id")
	}

	kept := mustStatus(t, f.store, "Keeppump", domain.StatusKept)
	if kept.Analysis == nil || kept.Analysis.Confidence != 85 || kept.AnalyzedAt == nil {
		t.Errorf("analysis not stored: %+v", kept.Analysis)
	}
	mustStatus(t, f.store, "Memepump", domain.StatusDeleted)
	off := mustStatus(t, f.store, "Elsewhere111", domain.StatusDeleted)
	if off.Analysis != nil {
		t.Error("off-venue token must not be classified")
	}

	for _, ca := range f.oracle.seen {
		if ca == "Elsewhere111" {
			t.Error("oracle called for off-venue token")
		}
	}
	if last := f.svc.LastRun(); last == nil || last.RunID != summary.RunID {
		t.Errorf("LastRun not recorded")
	}
}

func TestRun_OracleFailureDeletes(t *testing.T) {
	f := newFixture([]domain.Candidate{candidate("Failpump"), candidate("Junkpump")})
	f.oracle.errs["Failpump"] = errors.New("connection reset")
	f.oracle.errs["Junkpump"] = classifier.ErrMalformedResponse

	summary, err := f.svc.Run(context.Background(), EntryScheduled)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", summary.Deleted)
	}

	failed := mustStatus(t, f.store, "Failpump", domain.StatusDeleted)
	if failed.Analysis.Classification != domain.ClassificationError || failed.Analysis.Confidence != 0 {
		t.Errorf("unexpected analysis: %+v", failed.Analysis)
	}
	junk := mustStatus(t, f.store, "Junkpump", domain.StatusDeleted)
	if junk.Analysis.Classification != domain.ClassificationUnknown {
		t.Errorf("unexpected analysis: %+v", junk.Analysis)
	}
}

func TestRun_CooldownRejectsSecondRun(t *testing.T) {
	f := newFixture(nil)

	if _, err := f.svc.Run(context.Background(), EntryManual); err != nil {
		t.Fatalf("first run: %v", err)
	}
	_, err := f.svc.Run(context.Background(), EntryManual)

	var cdErr *governor.CooldownError
	if !errors.As(err, &cdErr) {
		t.Fatalf("expected CooldownError, got %v", err)
	}
	if cdErr.RetryAfterSeconds() <= 0 {
		t.Errorf("retry after = %d", cdErr.RetryAfterSeconds())
	}
	if f.source.calls != 1 {
		t.Errorf("rejected run reached the feed: %d calls", f.source.calls)
	}
	if !errors.Is(f.svc.CheckCooldown(), domain.ErrRateLimited) {
		t.Error("CheckCooldown should report the active window")
	}
}

func TestRun_UpstreamFailureAborts(t *testing.T) {
	f := newFixture(nil)
	f.source.err = domain.ErrUpstreamUnavailable

	summary, err := f.svc.Run(context.Background(), EntryCron)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if summary == nil || summary.Error == "" {
		t.Errorf("summary should carry the error: %+v", summary)
	}
	if f.stats.calls != 0 || f.oracle.calls() != 0 {
		t.Error("no later phase may run after a feed failure")
	}
}

func TestRun_SkipsKnownAddresses(t *testing.T) {
	f := newFixture([]domain.Candidate{candidate("Oldpump"), candidate("Newpump")})
	_, err := f.store.InsertBatch(context.Background(), []*domain.Token{
		{CA: "Oldpump", Name: "Old", Ticker: "OLD", Status: domain.StatusKept},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	summary, err := f.svc.Run(context.Background(), EntryManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AlreadyKnown != 1 || summary.Inserted != 1 {
		t.Errorf("unexpected counts: %+v", summary)
	}
	if f.oracle.calls() != 1 || f.oracle.seen[0] != "Newpump" {
		t.Errorf("oracle saw %v", f.oracle.seen)
	}
	old := mustStatus(t, f.store, "Oldpump", domain.StatusKept)
	if old.Name != "Old" {
		t.Error("known token must not be rewritten")
	}
}

func TestRun_NoOracleLeavesTokensNew(t *testing.T) {
	f := newFixture([]domain.Candidate{candidate("Waitpump")})
	f.svc.oracle = nil

	summary, err := f.svc.Run(context.Background(), EntryManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 0 {
		t.Errorf("processed = %d, want 0", summary.Processed)
	}
	mustStatus(t, f.store, "Waitpump", domain.StatusNew)
}

func seedNew(t *testing.T, store *memory.TokenStore, cas ...string) {
	t.Helper()
	tokens := make([]*domain.Token, len(cas))
	for i, ca := range cas {
		tokens[i] = &domain.Token{CA: ca, Name: ca, Ticker: "T", Status: domain.StatusNew}
	}
	if _, err := store.InsertBatch(context.Background(), tokens); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestAnalyzePending(t *testing.T) {
	for _, sequential := range []bool{false, true} {
		f := newFixture(nil)
		seedNew(t, f.store, "P1", "P2", "P3")
		f.oracle.results["P2"] = utility()

		summary, err := f.svc.AnalyzePending(context.Background(), 2, sequential)
		if err != nil {
			t.Fatalf("sequential=%v: %v", sequential, err)
		}
		if summary.Processed != 2 || summary.Kept != 1 || summary.Deleted != 1 {
			t.Errorf("sequential=%v: unexpected summary %+v", sequential, summary)
		}
		mustStatus(t, f.store, "P3", domain.StatusNew)
	}
}

func TestAnalyzePending_NoOracle(t *testing.T) {
	f := newFixture(nil)
	f.svc.oracle = nil
	if _, err := f.svc.AnalyzePending(context.Background(), 0, false); !errors.Is(err, ErrNoOracle) {
		t.Errorf("expected ErrNoOracle, got %v", err)
	}
}

func TestClassifyOne(t *testing.T) {
	f := newFixture(nil)
	seedNew(t, f.store, "Good", "Junk", "Denied", "Done")
	f.oracle.results["Good"] = utility()
	f.oracle.errs["Junk"] = classifier.ErrMalformedResponse
	f.oracle.errs["Denied"] = classifier.ErrUnauthorized
	ctx := context.Background()

	res, err := f.svc.ClassifyOne(ctx, "Good")
	if err != nil {
		t.Fatalf("ClassifyOne: %v", err)
	}
	if res.Outcome != disposition.OutcomeKept || res.Analysis.Classification != domain.ClassificationUtility {
		t.Errorf("unexpected result: %+v", res)
	}

	res, err = f.svc.ClassifyOne(ctx, "Junk")
	if err != nil {
		t.Fatalf("malformed answer should not fail: %v", err)
	}
	if res.Analysis.Classification != domain.ClassificationUnknown || res.Outcome != disposition.OutcomeDeleted {
		t.Errorf("unexpected result: %+v", res)
	}

	if _, err := f.svc.ClassifyOne(ctx, "Denied"); !errors.Is(err, classifier.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	mustStatus(t, f.store, "Denied", domain.StatusNew)

	// A terminal token is re-analyzed but never rewritten.
	if err := f.store.UpdateStatus(ctx, "Done", domain.StatusKept); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	res, err = f.svc.ClassifyOne(ctx, "Done")
	if err != nil {
		t.Fatalf("ClassifyOne: %v", err)
	}
	if res.Outcome != disposition.OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped", res.Outcome)
	}
	mustStatus(t, f.store, "Done", domain.StatusKept)
}

func TestRefreshStats(t *testing.T) {
	f := newFixture(nil)
	seedNew(t, f.store, "R1", "R2")
	created := int64(1700000000000)
	f.stats.stats["R1"] = domain.MarketStats{PriceUSD: fptr(0.5), VenueID: "pumpfun", PairCreatedAt: &created}

	summary, err := f.svc.RefreshStats(context.Background(), RefreshRequest{})
	if err != nil {
		t.Fatalf("RefreshStats: %v", err)
	}
	if summary.Requested != 2 || summary.Updated != 1 || summary.NoData != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	tok := mustStatus(t, f.store, "R1", domain.StatusNew)
	if tok.Stats.PriceUSD == nil || *tok.Stats.PriceUSD != 0.5 || tok.VenueID != "pumpfun" {
		t.Errorf("market data not written: %+v", tok)
	}
	if tok.PairCreatedAt == nil || *tok.PairCreatedAt != created {
		t.Errorf("pair creation time not written")
	}

	_, err = f.svc.RefreshStats(context.Background(), RefreshRequest{CAs: []string{"R2"}})
	var cdErr *governor.CooldownError
	if !errors.As(err, &cdErr) {
		t.Errorf("expected stats cooldown, got %v", err)
	}
}

func TestRefreshStats_ByStatus(t *testing.T) {
	f := newFixture(nil)
	seedNew(t, f.store, "S1", "S2")
	if err := f.store.UpdateStatus(context.Background(), "S2", domain.StatusKept); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	f.stats.stats["S1"] = domain.MarketStats{MarketCap: fptr(10)}
	f.stats.stats["S2"] = domain.MarketStats{MarketCap: fptr(20)}

	kept := domain.StatusKept
	summary, err := f.svc.RefreshStats(context.Background(), RefreshRequest{Status: &kept})
	if err != nil {
		t.Fatalf("RefreshStats: %v", err)
	}
	if summary.Requested != 1 || summary.Updated != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	s1, _ := f.store.Get(context.Background(), "S1")
	if s1.Stats.MarketCap != nil {
		t.Error("token outside the status filter was refreshed")
	}
}

func fptr(v float64) *float64 { return &v }

func TestClaim_RejectsSynchronouslyAndRunsLater(t *testing.T) {
	f := newFixture([]domain.Candidate{candidate("Laterpump")})

	run, err := f.svc.Claim(EntryManual)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := f.svc.Claim(EntryManual); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("second claim should be rejected, got %v", err)
	}
	if f.source.calls != 0 {
		t.Fatal("Claim must not start the run")
	}

	summary, err := run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Inserted != 1 || summary.Entry != EntryManual {
		t.Errorf("unexpected summary: %+v", summary)
	}
}
