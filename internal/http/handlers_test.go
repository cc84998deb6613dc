package http

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/rs/zerolog"

    "github.com/tea9296/azure-devops-read-api/internal/adapters/azdo"
    "github.com/tea9296/azure-devops-read-api/internal/config"
    "github.com/tea9296/azure-devops-read-api/internal/domain"
    "github.com/tea9296/azure-devops-read-api/internal/services"
)

type fakeService struct {
    calls    int
    lastPAT  string
    sprints  domain.SprintsResponse
    full     domain.SprintWorkItemsResponse
    summary  domain.SummaryResponse
    err      error
}

func (f *fakeService) ListSprints(ctx context.Context, pat string) (domain.SprintsResponse, error) {
    f.calls++; f.lastPAT = pat
    return f.sprints, f.err
}

func (f *fakeService) SprintWorkItems(ctx context.Context, pat, sprint string) (domain.SprintWorkItemsResponse, error) {
    f.calls++; f.lastPAT = pat
    return f.full, f.err
}

func (f *fakeService) SprintSummary(ctx context.Context, pat, sprint string) (domain.SummaryResponse, error) {
    f.calls++; f.lastPAT = pat
    return f.summary, f.err
}

func doRequest(t *testing.T, svc service, method, target string, headers map[string]string) *httptest.ResponseRecorder {
    t.Helper()
    cfg := config.Config{AppEnv: "test"}
    router := NewRouter(cfg, zerolog.Nop(), svc)
    req := httptest.NewRequest(method, target, nil)
    for k, v := range headers { req.Header.Set(k, v) }
    w := httptest.NewRecorder()
    router.ServeHTTP(w, req)
    return w
}

func TestRootAndHealth_NoAuthRequired(t *testing.T) {
    for _, target := range []string{"/", "/health"} {
        w := doRequest(t, &fakeService{}, http.MethodGet, target, nil)
        if w.Code != http.StatusOK { t.Fatalf("%s: expected 200, got %d", target, w.Code) }
    }
}

func TestAuthenticatedRoutes_401WithoutHeader(t *testing.T) {
    targets := []string{"/sprints", "/work-items?sprint=S", "/work-items/summary?sprint=S"}
    for _, target := range targets {
        f := &fakeService{}
        w := doRequest(t, f, http.MethodGet, target, nil)
        if w.Code != http.StatusUnauthorized { t.Fatalf("%s: expected 401, got %d", target, w.Code) }
        if f.calls != 0 { t.Fatalf("%s: service must not be called without credential", target) }
    }
}

func TestAuthenticatedRoutes_401OnMalformedHeader(t *testing.T) {
    for _, header := range []string{"Basic abc123", "Bearer", "Bearer   ", "bearer pat"} {
        f := &fakeService{}
        w := doRequest(t, f, http.MethodGet, "/sprints", map[string]string{"Authorization": header})
        if w.Code != http.StatusUnauthorized {
            t.Fatalf("header %q: expected 401, got %d", header, w.Code)
        }
        if f.calls != 0 { t.Fatalf("header %q: service must not be called", header) }
    }
}

func TestWorkItems_MissingSprintParamIs400(t *testing.T) {
    for _, target := range []string{"/work-items", "/work-items/summary"} {
        f := &fakeService{}
        w := doRequest(t, f, http.MethodGet, target, map[string]string{"Authorization": "Bearer pat"})
        if w.Code != http.StatusBadRequest { t.Fatalf("%s: expected 400, got %d", target, w.Code) }
        if f.calls != 0 { t.Fatalf("%s: service must not be called without sprint", target) }
    }
}

func TestWorkItems_SprintNotFoundIs404(t *testing.T) {
    f := &fakeService{err: services.ErrSprintNotFound}
    w := doRequest(t, f, http.MethodGet, "/work-items?sprint=Nope", map[string]string{"Authorization": "Bearer pat"})
    if w.Code != http.StatusNotFound { t.Fatalf("expected 404, got %d", w.Code) }
}

func TestWorkItems_UpstreamRejectionIs401(t *testing.T) {
    f := &fakeService{err: azdo.ErrUnauthorized}
    w := doRequest(t, f, http.MethodGet, "/sprints", map[string]string{"Authorization": "Bearer bad-pat"})
    if w.Code != http.StatusUnauthorized { t.Fatalf("expected 401, got %d", w.Code) }
}

func TestWorkItems_GenericFailureIs500WithoutDetail(t *testing.T) {
    f := &fakeService{err: errors.New("pat=super-secret dial tcp: refused")}
    w := doRequest(t, f, http.MethodGet, "/sprints", map[string]string{"Authorization": "Bearer pat"})
    if w.Code != http.StatusInternalServerError { t.Fatalf("expected 500, got %d", w.Code) }
    var body map[string]string
    if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("bad body: %v", err) }
    if body["error"] != "upstream error" {
        t.Fatalf("internal detail leaked: %q", body["error"])
    }
}

func TestWorkItemsSummary_PayloadShape(t *testing.T) {
    f := &fakeService{summary: domain.SummaryResponse{
        Sprint:     "Sprint 37",
        TotalCount: 1,
        Items: []domain.SummaryItem{
            {Title: "Implement login", Description: "login page", Comments: []string{"note1", "note2"}},
        },
    }}
    w := doRequest(t, f, http.MethodGet, "/work-items/summary?sprint=Sprint%2037", map[string]string{"Authorization": "Bearer pat"})
    if w.Code != http.StatusOK { t.Fatalf("expected 200, got %d", w.Code) }
    if f.lastPAT != "pat" { t.Fatalf("PAT not threaded through: %q", f.lastPAT) }

    var body struct {
        Sprint     string           `json:"sprint"`
        TotalCount int              `json:"total_count"`
        Items      []map[string]any `json:"items"`
    }
    if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("bad body: %v", err) }
    if body.Sprint != "Sprint 37" || body.TotalCount != 1 || len(body.Items) != 1 {
        t.Fatalf("bad envelope: %+v", body)
    }
    // exactly the three summary fields, always present
    item := body.Items[0]
    if len(item) != 3 { t.Fatalf("expected exactly 3 fields, got %v", item) }
    for _, k := range []string{"title", "description", "comments"} {
        if _, ok := item[k]; !ok { t.Fatalf("missing %q in %v", k, item) }
    }
}

func TestRouter_RequestIDEchoedAndGenerated(t *testing.T) {
    w := doRequest(t, &fakeService{}, http.MethodGet, "/health", map[string]string{"X-Request-ID": "abc-123"})
    if got := w.Header().Get("X-Request-ID"); got != "abc-123" { t.Fatalf("expected echo, got %q", got) }

    w = doRequest(t, &fakeService{}, http.MethodGet, "/health", nil)
    if got := w.Header().Get("X-Request-ID"); got == "" { t.Fatalf("expected generated request id") }
}

func TestBearerPAT_TrimsPrefix(t *testing.T) {
    f := &fakeService{}
    w := doRequest(t, f, http.MethodGet, "/sprints", map[string]string{"Authorization": "Bearer my-token"})
    if w.Code != http.StatusOK { t.Fatalf("expected 200, got %d", w.Code) }
    if f.lastPAT != "my-token" { t.Fatalf("got %q", f.lastPAT) }
}
