package disposition

import (
	"context"
	"errors"
	"testing"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage/memory"
)

// failingStore fails UpdateDisposition for selected cas.
type failingStore struct {
	storage.TokenStore
	fail map[string]bool
}

func (s *failingStore) UpdateDisposition(ctx context.Context, ca string, status domain.Status, a domain.ClassificationResult, at int64) (int64, error) {
	if s.fail[ca] {
		return 0, errors.New("connection reset")
	}
	return s.TokenStore.UpdateDisposition(ctx, ca, status, a, at)
}

func seed(t *testing.T, store *memory.TokenStore, cas ...string) {
	t.Helper()
	tokens := make([]*domain.Token, len(cas))
	for i, ca := range cas {
		tokens[i] = &domain.Token{CA: ca, Name: ca, Ticker: ca, Status: domain.StatusNew}
	}
	if _, err := store.InsertBatch(context.Background(), tokens); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
}

func TestApply_StateMachine(t *testing.T) {
	tests := []struct {
		classification domain.Classification
		want           Outcome
		status         domain.Status
	}{
		{domain.ClassificationUtility, OutcomeKept, domain.StatusKept},
		{domain.ClassificationMeme, OutcomeDeleted, domain.StatusDeleted},
		{domain.ClassificationUnknown, OutcomeDeleted, domain.StatusDeleted},
		{domain.ClassificationError, OutcomeDeleted, domain.StatusDeleted},
	}
	for _, tt := range tests {
		t.Run(string(tt.classification), func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewTokenStore()
			seed(t, store, "CA1")

			w := New(Options{Store: store})
			got, err := w.Apply(ctx, "CA1", domain.ClassificationResult{Classification: tt.classification, Confidence: 40})
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got != tt.want {
				t.Errorf("outcome = %s, want %s", got, tt.want)
			}

			tok, err := store.Get(ctx, "CA1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if tok.Status != tt.status {
				t.Errorf("status = %s, want %s", tok.Status, tt.status)
			}
			if tok.Analysis == nil || tok.Analysis.Classification != tt.classification {
				t.Errorf("analysis not stored: %+v", tok.Analysis)
			}
			if tok.AnalyzedAt == nil {
				t.Error("analyzed_at not set")
			}
		})
	}
}

func TestApply_TerminalNeverRewritten(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()
	seed(t, store, "CA1")
	w := New(Options{Store: store})

	if _, err := w.Apply(ctx, "CA1", domain.ClassificationResult{Classification: domain.ClassificationMeme}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, err := w.Apply(ctx, "CA1", domain.ClassificationResult{Classification: domain.ClassificationUtility})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != OutcomeSkipped {
		t.Errorf("expected skipped, got %s", got)
	}
	tok, _ := store.Get(ctx, "CA1")
	if tok.Status != domain.StatusDeleted {
		t.Errorf("terminal status changed to %s", tok.Status)
	}
	if tok.Analysis.Classification != domain.ClassificationMeme {
		t.Errorf("analysis overwritten: %+v", tok.Analysis)
	}
}

func TestApplyAll_Summary(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewTokenStore()
	seed(t, mem, "K", "D", "E")
	store := &failingStore{TokenStore: mem, fail: map[string]bool{"E": true}}

	w := New(Options{Store: store})
	summary := w.ApplyAll(ctx, []Decision{
		{CA: "K", Result: domain.ClassificationResult{Classification: domain.ClassificationUtility}},
		{CA: "D", Result: domain.ClassificationResult{Classification: domain.ClassificationMeme}},
		{CA: "E", Result: domain.ClassificationResult{Classification: domain.ClassificationUtility}},
		{CA: "GONE", Result: domain.ClassificationResult{Classification: domain.ClassificationMeme}},
	})

	if summary.Processed != 4 || summary.Kept != 1 || summary.Deleted != 1 || summary.Skipped != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].CA != "E" || summary.Errors[0].Message != "connection reset" {
		t.Errorf("unexpected errors %+v", summary.Errors)
	}
}
