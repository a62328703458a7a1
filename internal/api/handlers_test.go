// internal/api/handlers_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenlit-app/greenlit/internal/auth"
	"github.com/greenlit-app/greenlit/internal/images"
	"github.com/greenlit-app/greenlit/internal/llm"
	"github.com/greenlit-app/greenlit/internal/services"
	"github.com/greenlit-app/greenlit/internal/storage"
)

type countingProvider struct {
	mu       sync.Mutex
	calls    int
	response string
}

func (p *countingProvider) Initialize(map[string]string) error { return nil }
func (p *countingProvider) GetName() string                    { return "counting" }
func (p *countingProvider) GetSupportedModels() []string       { return []string{"counting-1"} }

func (p *countingProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return &llm.CompletionResponse{Text: p.response, ProviderName: "counting"}, nil
}

func (p *countingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type testServer struct {
	router   *gin.Engine
	provider *countingProvider
	tokens   *auth.TokenConfig
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocumentStore: %v", err)
	}

	provider := &countingProvider{response: `{}`}
	generator := services.NewGenerationServiceWithProvider(provider)
	imageClient, err := images.NewSearchClient("")
	if err != nil {
		t.Fatalf("NewSearchClient: %v", err)
	}

	preproduction := services.NewPreProductionService(store)
	stages := services.NewStageService(services.NewContextAggregator(preproduction), generator)
	progress := services.NewProgressService()
	pipeline := services.NewPipelineService(stages, progress)
	bibles := services.NewStoryBibleService(store, generator, imageClient)
	shares := services.NewShareLinkService(store)
	tokens := &auth.TokenConfig{Secret: []byte("test-secret")}

	handlers := NewHandlers(bibles, preproduction, stages, pipeline, progress, shares, tokens)
	return &testServer{
		router:   NewRouter(handlers, tokens, false),
		provider: provider,
		tokens:   tokens,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) ownerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.IssueToken(userID, ts.tokens)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestGatedRouteReturns400WithoutProviderCall(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/generate/breakdown", "", map[string]interface{}{
		"storyBibleId":  "bible-1",
		"episodeNumber": 1,
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["type"] != "missing_prerequisite" {
		t.Errorf("type = %v, want missing_prerequisite", body["type"])
	}
	if body["details"] == nil {
		t.Error("rejection should carry a remediation hint")
	}
	if ts.provider.callCount() != 0 {
		t.Fatalf("provider calls = %d, want 0", ts.provider.callCount())
	}
}

func TestGenerateScriptSucceedsWithContext(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.response = `{"full_script": "FADE IN", "acts": ["one"], "page_count": 12}`

	w := ts.do(t, http.MethodPost, "/api/generate/script", "", map[string]interface{}{
		"storyBibleId":  "bible-1",
		"episodeNumber": 1,
		"storyBibleData": map[string]interface{}{
			"series_title": "Signal Lost",
			"premise":      "p",
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	script, ok := body["script"].(map[string]interface{})
	if !ok || script["full_script"] != "FADE IN" {
		t.Errorf("script payload = %v", body["script"])
	}
	if body["docId"] != "episode_1" {
		t.Errorf("docId = %v, want episode_1", body["docId"])
	}
	if ts.provider.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1", ts.provider.callCount())
	}
}

func TestShareLinkLifecycleStatusCodes(t *testing.T) {
	ts := newTestServer(t)
	token := ts.ownerToken(t, "owner-1")

	// Unknown link id.
	if w := ts.do(t, http.MethodGet, "/api/shared/nope", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown link status = %d, want 404", w.Code)
	}

	create := ts.do(t, http.MethodPost, "/api/share-story-bible", token, map[string]interface{}{
		"storyBibleData": map[string]interface{}{"series_title": "Signal Lost", "premise": "p"},
		"ownerName":      "Avery",
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body %s", create.Code, create.Body.String())
	}
	linkID, _ := decodeBody(t, create)["linkId"].(string)
	if linkID == "" {
		t.Fatal("no linkId in create response")
	}

	if w := ts.do(t, http.MethodGet, "/api/shared/"+linkID, "", nil); w.Code != http.StatusOK {
		t.Fatalf("get status = %d; body %s", w.Code, w.Body.String())
	}

	// Revoke by a non-owner is forbidden.
	intruder := ts.ownerToken(t, "intruder")
	if w := ts.do(t, http.MethodPost, "/api/share-links/"+linkID+"/revoke", intruder, nil); w.Code != http.StatusForbidden {
		t.Errorf("intruder revoke status = %d, want 403", w.Code)
	}

	// Double revoke is idempotent.
	for i := 0; i < 2; i++ {
		if w := ts.do(t, http.MethodPost, "/api/share-links/"+linkID+"/revoke", token, nil); w.Code != http.StatusOK {
			t.Fatalf("revoke %d status = %d; body %s", i+1, w.Code, w.Body.String())
		}
	}

	w := ts.do(t, http.MethodGet, "/api/shared/"+linkID, "", nil)
	if w.Code != http.StatusGone {
		t.Fatalf("revoked get status = %d, want 410", w.Code)
	}
	if !strings.Contains(w.Body.String(), "revoked") {
		t.Errorf("revoked message missing: %s", w.Body.String())
	}
}

func TestExpiredShareLinkIsGoneWithExpiredMessage(t *testing.T) {
	ts := newTestServer(t)
	token := ts.ownerToken(t, "owner-1")

	create := ts.do(t, http.MethodPost, "/api/share-story-bible", token, map[string]interface{}{
		"storyBibleData": map[string]interface{}{"series_title": "Signal Lost", "premise": "p"},
		"ownerName":      "Avery",
		"expiresAt":      time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body %s", create.Code, create.Body.String())
	}
	linkID, _ := decodeBody(t, create)["linkId"].(string)

	w := ts.do(t, http.MethodGet, "/api/shared/"+linkID, "", nil)
	if w.Code != http.StatusGone {
		t.Fatalf("expired get status = %d, want 410", w.Code)
	}
	if !strings.Contains(w.Body.String(), "expired") {
		t.Errorf("expired message missing: %s", w.Body.String())
	}
}

func TestShareAccessAnalyticsThroughAPI(t *testing.T) {
	ts := newTestServer(t)
	token := ts.ownerToken(t, "owner-1")

	create := ts.do(t, http.MethodPost, "/api/share-story-bible", token, map[string]interface{}{
		"storyBibleData": map[string]interface{}{"series_title": "Signal Lost", "premise": "p"},
		"ownerName":      "Avery",
	})
	linkID, _ := decodeBody(t, create)["linkId"].(string)

	// Two views and one edit.
	ts.do(t, http.MethodGet, "/api/shared/"+linkID, "", nil)
	ts.do(t, http.MethodGet, "/api/shared/"+linkID, "", nil)
	edit := ts.do(t, http.MethodPut, "/api/shared/"+linkID, "", map[string]interface{}{
		"storyBibleData": map[string]interface{}{"series_title": "Edited", "premise": "p"},
	})
	if edit.Code != http.StatusOK {
		t.Fatalf("edit status = %d; body %s", edit.Code, edit.Body.String())
	}

	logsResp := ts.do(t, http.MethodGet, "/api/share-links/"+linkID+"/logs", token, nil)
	if logsResp.Code != http.StatusOK {
		t.Fatalf("logs status = %d; body %s", logsResp.Code, logsResp.Body.String())
	}
	analytics, ok := decodeBody(t, logsResp)["analytics"].(map[string]interface{})
	if !ok {
		t.Fatal("no analytics in response")
	}
	if analytics["view_count"] != float64(2) || analytics["edit_count"] != float64(1) || analytics["total_access"] != float64(3) {
		t.Errorf("analytics = %v, want views=2 edits=1 total=3", analytics)
	}
}

func TestOwnerRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/story-bible/save", "", map[string]interface{}{
		"storyBibleData": map[string]interface{}{"series_title": "T"},
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("no token status = %d, want 403", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/story-bible/save", "garbage-token", map[string]interface{}{
		"storyBibleData": map[string]interface{}{"series_title": "T"},
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("bad token status = %d, want 403", w.Code)
	}
}

func TestStoryBibleSaveAndListRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	token := ts.ownerToken(t, "owner-1")

	save := ts.do(t, http.MethodPost, "/api/story-bible/save", token, map[string]interface{}{
		"storyBibleData": map[string]interface{}{"series_title": "Signal Lost", "premise": "p"},
	})
	if save.Code != http.StatusOK {
		t.Fatalf("save status = %d; body %s", save.Code, save.Body.String())
	}
	saved, _ := decodeBody(t, save)["storyBible"].(map[string]interface{})
	id, _ := saved["id"].(string)
	if id == "" {
		t.Fatal("saved bible has no id")
	}

	get := ts.do(t, http.MethodGet, "/api/story-bible/"+id, token, nil)
	if get.Code != http.StatusOK {
		t.Fatalf("get status = %d", get.Code)
	}

	// Another user cannot see it.
	other := ts.ownerToken(t, "other")
	if w := ts.do(t, http.MethodGet, "/api/story-bible/"+id, other, nil); w.Code != http.StatusNotFound {
		t.Errorf("cross-user get status = %d, want 404", w.Code)
	}

	list := ts.do(t, http.MethodGet, "/api/story-bibles", token, nil)
	bibles, _ := decodeBody(t, list)["storyBibles"].([]interface{})
	if len(bibles) != 1 {
		t.Errorf("list length = %d, want 1", len(bibles))
	}
}

func TestSaveStageEndpointEnforcesOrder(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/preproduction/save-stage", "", map[string]interface{}{
		"storyBibleId": "bible-1",
		"docId":        "episode_1",
		"stage":        "breakdown",
		"artifact":     map[string]interface{}{"scenes": []interface{}{}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-order save status = %d, want 400; body %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodPost, "/api/preproduction/save-stage", "", map[string]interface{}{
		"storyBibleId": "bible-1",
		"docId":        "episode_1",
		"stage":        "script",
		"artifact":     map[string]interface{}{"full_script": "FADE IN"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("script save status = %d; body %s", w.Code, w.Body.String())
	}
	doc, _ := decodeBody(t, w)["document"].(map[string]interface{})
	if doc["state"] != "script_ready" {
		t.Errorf("state = %v, want script_ready", doc["state"])
	}
}

func TestPreProductionDocumentCreatedOnFirstVisit(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/preproduction/bible-1/episode_3", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", w.Code, w.Body.String())
	}
	doc, _ := decodeBody(t, w)["document"].(map[string]interface{})
	if doc["state"] != "not_started" || doc["id"] != "episode_3" {
		t.Errorf("document = %v", doc)
	}
}

func TestGenerationStatusUnknownRunIs404(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(t, http.MethodGet, "/api/generation-status/nope", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestProgressUpdateIsSwallowedForUnknownRun(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/generation-status/nope", "", map[string]interface{}{
		"currentStep": 1, "currentStepName": "script",
	})
	if w.Code != http.StatusOK {
		t.Errorf("best-effort update status = %d, want 200", w.Code)
	}
}

func TestHealthRoute(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(t, http.MethodGet, "/api/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/health", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "trace-123" {
		t.Errorf("request id = %q, want inbound value honored", got)
	}
}

func TestArcPipelineRouteReportsStatusDuringRun(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.response = `{"full_script": "FADE IN", "scenes": [{"scene_number": 1}], "panels": [], "props": [], "wardrobe": [], "locations": [], "cast": [], "logline": "l", "taglines": [], "target_audience": "a", "edit_notes": []}`

	w := ts.do(t, http.MethodPost, "/api/arc-pipeline", "", map[string]interface{}{
		"storyBibleId":   "bible-1",
		"episodeNumbers": []int{1, 2},
		"storyBibleData": map[string]interface{}{"series_title": "Signal Lost", "premise": "p"},
		"episodes": []map[string]interface{}{
			{"number": 1, "title": "Pilot", "synopsis": "s"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("pipeline status = %d; body %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	runID, _ := body["runId"].(string)
	if runID == "" || w.Header().Get("X-Run-ID") != runID {
		t.Errorf("run id missing or mismatched: body %v header %q", body["runId"], w.Header().Get("X-Run-ID"))
	}
	artifacts, _ := body["artifacts"].(map[string]interface{})
	if len(artifacts) != 8 {
		t.Errorf("artifact count = %d, want 8", len(artifacts))
	}
	if body["docId"] != "arc_1" {
		t.Errorf("docId = %v, want arc_1", body["docId"])
	}

	status := ts.do(t, http.MethodGet, fmt.Sprintf("/api/generation-status/%s", runID), "", nil)
	if status.Code != http.StatusOK {
		t.Fatalf("status route = %d", status.Code)
	}
	progress, _ := decodeBody(t, status)["progress"].(map[string]interface{})
	if progress["is_complete"] != true {
		t.Errorf("progress = %v, want complete", progress)
	}
}
