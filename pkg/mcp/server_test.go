package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/courseforge/courseforge/pkg/apierr"
	"github.com/courseforge/courseforge/pkg/models"
)

// fakeGenerator records the operation it was asked to run.
type fakeGenerator struct {
	op      string
	payload string
	out     any
	err     error
}

func (f *fakeGenerator) Dispatch(_ context.Context, op string, payload []byte) (any, error) {
	f.op = op
	f.payload = string(payload)
	return f.out, f.err
}

// fakeCache implements CacheStatter for testing.
type fakeCache struct {
	stats models.CacheStats
}

func (f *fakeCache) Stats(context.Context) (models.CacheStats, error) { return f.stats, nil }

// fakeAuditor implements AuditQuerier for testing.
type fakeAuditor struct {
	events []models.GenerationEvent
	opts   models.AuditQueryOpts
}

func (f *fakeAuditor) Query(_ context.Context, opts models.AuditQueryOpts) ([]models.GenerationEvent, error) {
	f.opts = opts
	return f.events, nil
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name, args string) ToolCallResult {
	t.Helper()
	p := ToolCallParams{Name: name}
	if args != "" {
		p.Arguments = json.RawMessage(args)
	}
	params, _ := json.Marshal(p)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`3`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv := New(&fakeGenerator{}, nil, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	json.Unmarshal(data, &result)

	if result.ProtocolVersion != ProtocolVersion {
		t.Errorf("protocol version = %s, want %s", result.ProtocolVersion, ProtocolVersion)
	}
	if result.ServerInfo.Name != "courseforge" {
		t.Errorf("server name = %s, want courseforge", result.ServerInfo.Name)
	}
}

func TestToolsList(t *testing.T) {
	srv := New(&fakeGenerator{}, nil, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != 13 {
		t.Errorf("got %d tools, want 13", len(result.Tools))
	}

	names := make(map[string]bool)
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"courseforge_generate_slides", "courseforge_generate_quiz", "courseforge_review_content",
		"courseforge_translate", "courseforge_enhance_slide", "courseforge_cache_stats", "courseforge_audit_search",
	} {
		if !names[want] {
			t.Errorf("missing tool: %s", want)
		}
	}
}

func TestToolCallGenerate(t *testing.T) {
	gen := &fakeGenerator{out: models.TitleSuggestions{Suggestions: []models.TitleSuggestion{{ID: "1", Title: "Safe Care"}}}}
	srv := New(gen, nil, nil, "test")

	result := callTool(t, srv, "courseforge_generate_titles", `{"title":"Patient Safety"}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	if gen.op != models.OpTitles {
		t.Errorf("expected op %s, got %s", models.OpTitles, gen.op)
	}
	if !strings.Contains(gen.payload, "Patient Safety") {
		t.Errorf("expected arguments forwarded, got %s", gen.payload)
	}
	if !strings.Contains(result.Content[0].Text, "Safe Care") {
		t.Errorf("expected title in output, got: %s", result.Content[0].Text)
	}
}

func TestToolCallEditingOperations(t *testing.T) {
	for _, tc := range []struct {
		tool, op, args string
	}{
		{"courseforge_review_content", models.OpReview, `{"content":"Wash hands.","action":"simplify"}`},
		{"courseforge_translate", models.OpTranslate, `{"content":"Tvätta händerna.","targetLanguage":"en"}`},
		{"courseforge_enhance_slide", models.OpEnhance, `{"slideTitle":"Hygiene","slideContent":"Wash hands."}`},
	} {
		gen := &fakeGenerator{out: map[string]string{"ok": "yes"}}
		srv := New(gen, nil, nil, "test")

		result := callTool(t, srv, tc.tool, tc.args)
		if result.IsError {
			t.Fatalf("%s: unexpected tool error: %s", tc.tool, result.Content[0].Text)
		}
		if gen.op != tc.op {
			t.Errorf("%s: expected op %s, got %s", tc.tool, tc.op, gen.op)
		}
		if gen.payload != tc.args {
			t.Errorf("%s: expected arguments forwarded, got %s", tc.tool, gen.payload)
		}
	}
}

func TestToolCallGenerateError(t *testing.T) {
	gen := &fakeGenerator{err: apierr.FromStatus("gateway", http.StatusTooManyRequests, "slow down")}
	srv := New(gen, nil, nil, "test")

	result := callTool(t, srv, "courseforge_generate_slides", `{"topic":"x"}`)
	if !result.IsError {
		t.Fatal("expected isError=true")
	}
	var env apierr.Envelope
	if err := json.Unmarshal([]byte(result.Content[0].Text), &env); err != nil {
		t.Fatalf("expected envelope JSON, got %s", result.Content[0].Text)
	}
	if env.Code != apierr.CodeRateLimited || !env.Retryable {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestToolCallUnknownTool(t *testing.T) {
	srv := New(&fakeGenerator{}, nil, nil, "test")
	result := callTool(t, srv, "courseforge_podcast", "")
	if !result.IsError {
		t.Error("expected isError=true for unknown tool")
	}
}

func TestToolCallCacheNotConfigured(t *testing.T) {
	srv := New(&fakeGenerator{}, nil, nil, "test")
	result := callTool(t, srv, "courseforge_cache_stats", "")
	if !strings.Contains(result.Content[0].Text, "not configured") {
		t.Errorf("expected 'not configured', got: %s", result.Content[0].Text)
	}
}

func TestToolCallCacheStats(t *testing.T) {
	cache := &fakeCache{stats: models.CacheStats{
		Entries:    42,
		Hits:       10,
		Misses:     5,
		ByFunction: map[string]int64{models.OpSlides: 40, models.OpQuiz: 2},
	}}
	srv := New(&fakeGenerator{}, cache, nil, "test")

	text := callTool(t, srv, "courseforge_cache_stats", "").Content[0].Text
	if !strings.Contains(text, "42") || !strings.Contains(text, "66.7%") {
		t.Errorf("unexpected cache stats output: %s", text)
	}
	if !strings.Contains(text, models.OpSlides) {
		t.Errorf("expected per-operation breakdown, got: %s", text)
	}
}

func TestToolCallAuditSearch(t *testing.T) {
	auditor := &fakeAuditor{events: []models.GenerationEvent{{
		RequestID: "req-1",
		Operation: models.OpQuiz,
		CacheHit:  true,
		Provider:  "cache",
		Status:    "ok",
		LatencyMs: 12,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}}
	srv := New(&fakeGenerator{}, nil, auditor, "test")

	text := callTool(t, srv, "courseforge_audit_search", `{"operation":"generate-quiz","since":"2026-03-01"}`).Content[0].Text
	if !strings.Contains(text, "req-1") || !strings.Contains(text, "hit") {
		t.Errorf("unexpected audit output: %s", text)
	}
	if auditor.opts.Operation != models.OpQuiz || auditor.opts.Limit != 50 {
		t.Errorf("unexpected query opts: %+v", auditor.opts)
	}
	if auditor.opts.Since.IsZero() {
		t.Error("expected since to be parsed")
	}
}

func TestToolCallAuditSearchBadDate(t *testing.T) {
	srv := New(&fakeGenerator{}, nil, &fakeAuditor{}, "test")
	result := callTool(t, srv, "courseforge_audit_search", `{"since":"March"}`)
	if !result.IsError {
		t.Error("expected isError=true for bad date")
	}
}

func TestNotificationNoResponse(t *testing.T) {
	srv := New(&fakeGenerator{}, nil, nil, "test")

	line, _ := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	})
	line = append(line, '\n')

	var out bytes.Buffer
	_ = srv.Run(context.Background(), bytes.NewReader(line), &out)

	if out.Len() != 0 {
		t.Errorf("expected no output for notification, got: %s", out.String())
	}
}

func TestParseError(t *testing.T) {
	srv := New(&fakeGenerator{}, nil, nil, "test")
	var out bytes.Buffer
	_ = srv.Run(context.Background(), strings.NewReader("{oops\n"), &out)

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("expected parse error, got %+v", resp.Error)
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := New(&fakeGenerator{}, nil, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "unknown/method",
	})

	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}
