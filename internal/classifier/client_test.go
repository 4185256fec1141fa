package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// messagesServer answers the Messages API with reply as the assistant text.
func messagesServer(t *testing.T, status int, reply string, header http.Header) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var lastBody atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(string(body))

		for k, vs := range header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"` + http.StatusText(status) + `"}}`))
			return
		}
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"test",` +
			`"content":[{"type":"text","text":` + mustJSON(t, reply) + `}],` +
			`"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	t.Cleanup(server.Close)
	return server, &lastBody
}

func newTestClient(baseURL string) *Client {
	return New(Options{APIKey: "test-key", BaseURL: baseURL + "/", MaxRetries: 0})
}

func sampleToken() *domain.Token {
	return &domain.Token{CA: "Abcpump", Name: "Solar", Ticker: "SUN", Description: "Energy"}
}

func TestClient_Analyze(t *testing.T) {
	server, body := messagesServer(t, http.StatusOK,
		`Here you go: {"classification":"utility","confidence":77,"reasoning":"ships a product"}`, nil)

	got, err := newTestClient(server.URL).Analyze(context.Background(), sampleToken())
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationUtility, got.Classification)
	assert.Equal(t, 77, got.Confidence)

	sent := body.Load().(string)
	assert.Contains(t, sent, `"max_tokens":256`)
	assert.Contains(t, sent, DefaultModel)
	assert.Contains(t, sent, "Is this a MEME coin or does it have real UTILITY?")
	assert.Contains(t, sent, "Token Name: Solar")
}

func TestClient_AnalyzeDetailed(t *testing.T) {
	server, body := messagesServer(t, http.StatusOK,
		`{"classification":"meme","confidence":60,"reasoning":"dog","redFlags":[],"utilityScore":10}`, nil)

	got, err := newTestClient(server.URL).AnalyzeDetailed(context.Background(), sampleToken())
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationMeme, got.Classification)
	require.NotNil(t, got.UtilityScore)
	assert.Equal(t, 10, *got.UtilityScore)

	sent := body.Load().(string)
	assert.Contains(t, sent, `"max_tokens":1024`)
	assert.Contains(t, sent, DefaultDetailedModel)
}

func TestClient_Analyze_Malformed(t *testing.T) {
	server, _ := messagesServer(t, http.StatusOK, "I cannot decide.", nil)
	c := newTestClient(server.URL)

	got, err := c.Analyze(context.Background(), sampleToken())
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.Equal(t, domain.ClassificationUnknown, got.Classification)

	degraded := c.Classify(context.Background(), sampleToken())
	assert.Equal(t, domain.ClassificationUnknown, degraded.Classification)
	assert.Equal(t, 0, degraded.Confidence)
	assert.Equal(t, "Failed to parse AI response", degraded.Reasoning)
}

func TestClient_Analyze_Unauthorized(t *testing.T) {
	server, _ := messagesServer(t, http.StatusUnauthorized, "", nil)
	c := newTestClient(server.URL)

	_, err := c.Analyze(context.Background(), sampleToken())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	degraded := c.Classify(context.Background(), sampleToken())
	assert.Equal(t, domain.ClassificationError, degraded.Classification)
	assert.Equal(t, 0, degraded.Confidence)
	assert.True(t, strings.HasPrefix(degraded.Reasoning, "Analysis failed: "))
}

func TestClient_Analyze_RateLimited(t *testing.T) {
	server, _ := messagesServer(t, http.StatusTooManyRequests, "", http.Header{"Retry-After": []string{"7"}})

	_, err := newTestClient(server.URL).Analyze(context.Background(), sampleToken())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.True(t, errors.Is(err, domain.ErrRateLimited))

	var rlErr *RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, 7*time.Second, rlErr.RetryAfter)
}

func TestClient_Analyze_ServerError(t *testing.T) {
	server, _ := messagesServer(t, http.StatusInternalServerError, "", nil)

	_, err := newTestClient(server.URL).Analyze(context.Background(), sampleToken())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrRateLimited))
}

func TestClient_ConcurrencyCap(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"m","type":"message","role":"assistant","model":"x","content":[{"type":"text","text":"{\"classification\":\"meme\"}"}],"usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer server.Close()

	c := New(Options{APIKey: "k", BaseURL: server.URL + "/", MaxConcurrentCalls: 2})
	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			c.Classify(context.Background(), sampleToken())
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 30*time.Second, parseRetryAfter("30", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1", now))
	assert.Equal(t, 10*time.Second, parseRetryAfter(now.Add(10*time.Second).Format(http.TimeFormat), now))
}

func TestDegrade(t *testing.T) {
	ok := domain.ClassificationResult{Classification: domain.ClassificationMeme, Confidence: 50}
	assert.Equal(t, ok, Degrade(ok, nil))
	assert.Equal(t, domain.ClassificationError, Degrade(domain.ClassificationResult{}, errors.New("boom")).Classification)
	assert.Equal(t, domain.ClassificationUnknown, Degrade(domain.ClassificationResult{}, ErrMalformedResponse).Classification)
}
