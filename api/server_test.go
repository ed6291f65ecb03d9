package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"newswire/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	lastReq types.IngestRequest
	resp    types.IngestResponse
	err     error
}

func (f *fakeRunner) Run(_ context.Context, req types.IngestRequest) (types.IngestResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

type fakeRunLister struct {
	lastLimit int
	runs      []types.FetchRun
	err       error
}

func (f *fakeRunLister) ListRuns(_ context.Context, limit int) ([]types.FetchRun, error) {
	f.lastLimit = limit
	return f.runs, f.err
}

func newTestRouter(runner Runner, runs RunLister) *gin.Engine {
	return NewRouter(Deps{Runner: runner, Runs: runs})
}

func TestIngestOK(t *testing.T) {
	runner := &fakeRunner{resp: types.IngestResponse{Success: true, Count: 2, Message: "ok"}}
	router := newTestRouter(runner, &fakeRunLister{})

	body := `{"keyword":"robotics","limit":5,"testMode":true}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	if runner.lastReq.Keyword != "robotics" || runner.lastReq.Limit != 5 || !runner.lastReq.TestMode {
		t.Errorf("request not passed through: %+v", runner.lastReq)
	}
	if !strings.Contains(w.Body.String(), `"count":2`) {
		t.Errorf("body = %s, want count 2", w.Body.String())
	}
}

func TestIngestEmptyBodyUsesDefaults(t *testing.T) {
	runner := &fakeRunner{resp: types.IngestResponse{Success: true}}
	router := newTestRouter(runner, &fakeRunLister{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for bodyless trigger; body %s", w.Code, w.Body.String())
	}
	if runner.lastReq != (types.IngestRequest{}) {
		t.Errorf("request = %+v, want zero value so run defaults apply", runner.lastReq)
	}
}

func TestIngestBadJSON(t *testing.T) {
	router := newTestRouter(&fakeRunner{}, &fakeRunLister{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestIngestFatalRunError(t *testing.T) {
	runner := &fakeRunner{
		resp: types.IngestResponse{Success: false, Message: "news source rate limit reached, retry later"},
		err:  errors.New("rate limited"),
	}
	router := newTestRouter(runner, &fakeRunLister{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Errorf("body = %s, want success=false payload", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "rate limit") {
		t.Errorf("body = %s, want rate-limit message passed through", w.Body.String())
	}
}

func TestListRuns(t *testing.T) {
	lister := &fakeRunLister{runs: []types.FetchRun{
		{ID: "r1", SourceType: types.SourceNewsAPI, Status: types.RunSuccess},
	}}
	router := newTestRouter(&fakeRunner{}, lister)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if lister.lastLimit != 5 {
		t.Errorf("limit = %d, want 5", lister.lastLimit)
	}
	if !strings.Contains(w.Body.String(), `"count":1`) {
		t.Errorf("body = %s, want one run", w.Body.String())
	}
}

func TestListRunsBadLimit(t *testing.T) {
	router := newTestRouter(&fakeRunner{}, &fakeRunLister{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs?limit=zero", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeRunner{}, &fakeRunLister{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("health check failed: %d %s", w.Code, w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&fakeRunner{}, &fakeRunLister{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/ingest", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS allow-origin header")
	}
}
