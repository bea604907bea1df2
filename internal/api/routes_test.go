package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"montage/internal/api"
	"montage/internal/pipeline"
	"montage/internal/queue"
	"montage/internal/testsupport"
)

const validList = `{
  "sourceVideo": "/videos/talk.mp4",
  "decisions": [
    {"tool": "only_screen", "startTime": 0, "endTime": 5},
    {"tool": "cut", "startTime": 5},
    {"tool": "only_screen", "startTime": 5, "endTime": 10}
  ],
  "metadata": {"sourceDuration": 10}
}`

const overlappingList = `{
  "sourceVideo": "/videos/talk.mp4",
  "decisions": [
    {"tool": "only_screen", "startTime": 0, "endTime": 6},
    {"tool": "only_webcam", "startTime": 5, "endTime": 10}
  ]
}`

type fakeWorker struct {
	mu       sync.Mutex
	notified int
	active   string
}

func (f *fakeWorker) Notify() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified++
}

func (f *fakeWorker) ActiveJob() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.active != ""
}

func (f *fakeWorker) notifications() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notified
}

func newTestRouter(t *testing.T) (*chi.Mux, *queue.Store, *fakeWorker) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	worker := &fakeWorker{}
	router := api.NewRouter(api.ServerConfig{
		Jobs:      api.NewJobService(store),
		Pipeline:  pipeline.OptionsFromConfig(cfg),
		Worker:    worker,
		StartTime: time.Now().Add(-time.Minute),
	})
	return router, store, worker
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthReportsJobsAndActiveRender(t *testing.T) {
	router, store, worker := newTestRouter(t)
	job := testsupport.NewJob(t, store, "/videos/a.mp4", "/out/a.mp4")
	worker.active = job.ID

	rr := do(t, router, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Header().Get(api.RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
	body := decode[api.HealthResponse](t, rr)
	if body.Status != "ok" || body.Jobs.Pending != 1 || body.Jobs.Total != 1 {
		t.Fatalf("unexpected health %+v", body)
	}
	if body.ActiveJob != job.ID {
		t.Fatalf("active job = %q, want %q", body.ActiveJob, job.ID)
	}
	if body.UptimeS < 60 {
		t.Fatalf("uptime = %d, want >= 60", body.UptimeS)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	router, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(api.RequestIDHeader, "abc123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if got := rr.Header().Get(api.RequestIDHeader); got != "abc123" {
		t.Fatalf("request id = %q, want abc123", got)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/validate", overlappingList)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decode[api.ValidateResponse](t, rr)
	if body.Valid || len(body.Errors) != 1 {
		t.Fatalf("unexpected validation %+v", body)
	}
	if !strings.Contains(body.Errors[0], "overlaps") {
		t.Fatalf("unexpected message %q", body.Errors[0])
	}

	rr = do(t, router, http.MethodPost, "/api/validate", validList)
	if body := decode[api.ValidateResponse](t, rr); !body.Valid {
		t.Fatalf("expected valid list, got %+v", body)
	}
}

func TestMalformedBodiesAreRejected(t *testing.T) {
	router, _, _ := newTestRouter(t)
	tests := []struct {
		name string
		body string
	}{
		{"syntax", `{"decisions": [`},
		{"unknown tool", `{"decisions": [{"tool": "explode", "startTime": 0}]}`},
		{"kind mismatch", `{"decisions": [{"type": "effect", "tool": "cut", "startTime": 0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, http.MethodPost, "/api/compile", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status code = %d, want %d", rr.Code, http.StatusBadRequest)
			}
			body := decode[api.ErrorResponse](t, rr)
			if body.Code != "validation_error" || body.Error == "" {
				t.Fatalf("unexpected error body %+v", body)
			}
		})
	}
}

func TestOptimizeReturnsReport(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/optimize", validList)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decode[api.OptimizeResponse](t, rr)
	if len(body.EDL.Decisions) != 1 {
		t.Fatalf("expected merged list, got %+v", body.EDL.Decisions)
	}
	if body.Report.MergedLayouts != 1 || body.Report.DroppedTransitions != 1 {
		t.Fatalf("unexpected report %+v", body.Report)
	}
}

func TestCompileReturnsProgramAndCommand(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/compile?optimize=true", validList)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	body := decode[api.CompileResponse](t, rr)
	if body.Program.FilterComplex == "" {
		t.Fatal("expected filter graph")
	}
	if body.Optimized == nil || body.Optimized.Removed() != 2 {
		t.Fatalf("expected optimizer report, got %+v", body.Optimized)
	}
	if len(body.Command) == 0 || body.Command[len(body.Command)-1] != body.EDL.OutputPath {
		t.Fatalf("command should end with output path %q: %v", body.EDL.OutputPath, body.Command)
	}
	if !strings.HasSuffix(body.EDL.OutputPath, "talk-edit.mp4") {
		t.Fatalf("unexpected default output %q", body.EDL.OutputPath)
	}
}

func TestCompileRejectsInvalidListWithDetails(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/compile", overlappingList)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
	body := decode[api.ErrorResponse](t, rr)
	if body.Code != "validation_error" || len(body.Details) != 1 {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestCreateJobEnqueuesAndNotifies(t *testing.T) {
	router, store, worker := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/jobs", validList)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status code = %d, want %d: %s", rr.Code, http.StatusAccepted, rr.Body.String())
	}
	created := decode[api.Job](t, rr)
	if created.Status != string(queue.StatusPending) || created.SourceVideo != "/videos/talk.mp4" {
		t.Fatalf("unexpected job %+v", created)
	}
	if worker.notifications() != 1 {
		t.Fatalf("expected worker to be notified once, got %d", worker.notifications())
	}

	stored, err := store.GetByID(context.Background(), created.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: %v (job=%v)", err, stored)
	}
	if stored.FilterComplex == "" || !strings.Contains(stored.EDLJSON, "only_screen") {
		t.Fatalf("expected prepared program stored, got %+v", stored)
	}

	rr = do(t, router, http.MethodGet, "/api/jobs?status=pending", "")
	jobs := decode[[]api.Job](t, rr)
	if len(jobs) != 1 || jobs[0].ID != created.ID {
		t.Fatalf("unexpected job list %+v", jobs)
	}
	if jobs[0].FilterComplex != "" || len(jobs[0].EDL) != 0 {
		t.Fatal("list view should omit stored program")
	}

	rr = do(t, router, http.MethodGet, "/api/jobs/"+created.ID[:8], "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	detail := decode[api.Job](t, rr)
	if detail.ID != created.ID || detail.FilterComplex == "" || len(detail.EDL) == 0 {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestCreateJobRequiresSource(t *testing.T) {
	router, store, worker := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/jobs", `{"decisions": []}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if worker.notifications() != 0 {
		t.Fatal("worker should not be notified")
	}
	jobs, err := store.List(context.Background())
	if err != nil || len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d (%v)", len(jobs), err)
	}
}

func TestJobLookupErrors(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := do(t, router, http.MethodGet, "/api/jobs/does-not-exist", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if body := decode[api.ErrorResponse](t, rr); body.Code != "not_found" {
		t.Fatalf("unexpected code %q", body.Code)
	}

	rr = do(t, router, http.MethodGet, "/api/jobs?status=bogus", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestRecoveryMiddlewareReturnsJSON(t *testing.T) {
	router, _, _ := newTestRouter(t)
	router.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rr := do(t, router, http.MethodGet, "/boom", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if body := decode[api.ErrorResponse](t, rr); body.Code != "internal_error" {
		t.Fatalf("unexpected code %q", body.Code)
	}
}
