package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// wrapped SOL mint, a valid 32-byte key
const testMint = "So11111111111111111111111111111111111111112"

func TestHTTPClient_GetAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string            `json:"jsonrpc"`
			ID      string            `json:"id"`
			Method  string            `json:"method"`
			Params  map[string]string `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getAsset" {
			t.Errorf("expected method getAsset, got %s", req.Method)
		}
		if req.Params["id"] != testMint {
			t.Errorf("expected id param %s, got %s", testMint, req.Params["id"])
		}
		if r.URL.Query().Get("api-key") != "secret" {
			t.Errorf("expected api-key query param, got %q", r.URL.RawQuery)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"id": testMint,
				"content": map[string]interface{}{
					"metadata": map[string]interface{}{
						"name":        "Wrapped SOL",
						"symbol":      "SOL",
						"description": "wrapped",
					},
					"links": map[string]interface{}{
						"external_url": "https://solana.com",
					},
					"files": []map[string]interface{}{
						{"uri": "https://img.example/sol.png", "mime": "image/png"},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHeliusClient(server.URL, "secret")
	meta, err := client.GetAsset(context.Background(), testMint)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata, got nil")
	}
	if meta.Name != "Wrapped SOL" || meta.Symbol != "SOL" || meta.Description != "wrapped" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.ImageURL != "https://img.example/sol.png" {
		t.Errorf("expected image from files fallback, got %s", meta.ImageURL)
	}
	if meta.ExternalURL != "https://solana.com" {
		t.Errorf("expected external url, got %s", meta.ExternalURL)
	}
}

func TestHTTPClient_GetAsset_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  nil,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	meta, err := client.GetAsset(context.Background(), testMint)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil for not found, got %+v", meta)
	}
}

func TestHTTPClient_GetAsset_InvalidAddressSkipsCall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	for _, addr := range []string{"", "X", "0OIl", "abc"} {
		meta, err := client.GetAsset(context.Background(), addr)
		if err != nil || meta != nil {
			t.Errorf("GetAsset(%q) = %v, %v; want nil, nil", addr, meta, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("expected no upstream calls, got %d", calls.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":"1","error":{"code":-32000,"message":"asset not indexed"}}`))
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL).GetAsset(context.Background(), testMint)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "asset not indexed") {
		t.Errorf("expected RPC message in error, got %v", err)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"content": map[string]interface{}{
					"metadata": map[string]interface{}{"name": "Retried"},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(5),
		WithRetryDelay(10*time.Millisecond),
	)

	meta, err := client.GetAsset(context.Background(), testMint)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if meta == nil || meta.Name != "Retried" {
		t.Errorf("expected retried metadata, got %+v", meta)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	if _, err := client.GetAsset(context.Background(), testMint); err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestHeliusEndpoint(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"", "https://mainnet.helius-rpc.com/?api-key=k"},
		{"http://127.0.0.1:8080", "http://127.0.0.1:8080/?api-key=k"},
		{"http://h/?cluster=x", "http://h/?cluster=x&api-key=k"},
	}
	for _, tt := range tests {
		if got := HeliusEndpoint(tt.base, "k"); got != tt.want {
			t.Errorf("HeliusEndpoint(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestIsValidAddress(t *testing.T) {
	if !IsValidAddress(testMint) {
		t.Errorf("expected %s to be valid", testMint)
	}
	if IsValidAddress("X") {
		t.Error("expected short address to be invalid")
	}
}
