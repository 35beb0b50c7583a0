package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/matching"
	"github.com/spigell/internship-recommender/internal/reload"
	"github.com/spigell/internship-recommender/internal/source"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	hits  int
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if ok {
		m.hits++
	}
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string][]byte)
	}
	m.items[key] = value
	return nil
}

func sampleHolder(t *testing.T) *reload.Holder {
	t.Helper()

	c, err := catalog.Load(context.Background(), source.Sample{}, nil)
	if err != nil {
		t.Fatalf("loading sample catalog: %v", err)
	}
	return reload.NewHolder(matching.New(c))
}

func newTestServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	opts = append([]Option{withClock(func() time.Time { return fixedNow })}, opts...)
	return New(Config{}, sampleHolder(t), opts...).Handler()
}

type response struct {
	Success         bool                     `json:"success"`
	Message         string                   `json:"message"`
	Error           string                   `json:"error"`
	Timestamp       string                   `json:"timestamp"`
	Count           int                      `json:"count"`
	Recommendations []matching.ScoredListing `json:"recommendations"`
	Internships     []catalog.Listing        `json:"internships"`
	Internship      catalog.Listing          `json:"internship"`
	Stats           catalog.Stats            `json:"stats"`
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, response) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, body
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func ids(listings []catalog.Listing) []int {
	out := make([]int, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "healthy" || body["data_loaded"] != float64(15) {
		t.Fatalf("unexpected health response: %v", body)
	}
	if body["timestamp"] != "2025-03-04 05:06:07" {
		t.Fatalf("unexpected timestamp %v", body["timestamp"])
	}
}

func TestUnavailableCatalog(t *testing.T) {
	t.Parallel()

	h := New(Config{}, reload.NewHolder(nil)).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from health, got %d", rec.Code)
	}

	rec, body := do(t, h, postJSON("/api/recommendations", `{"query":"python"}`))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body.Success || body.Message != "System not initialized properly" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRecommendationsProfile(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	rec, body := do(t, h, postJSON("/api/recommendations", `{
		"education": "B.Tech Computer Science",
		"skills": ["Python"],
		"location_preference": "Work From Home",
		"min_stipend": "20000"
	}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !body.Success || body.Count != 2 || len(body.Recommendations) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}

	top := body.Recommendations[0]
	if top.ID != 13 || top.Company != "DevCorp" || top.MatchPercentage != 97 {
		t.Fatalf("unexpected top recommendation: %+v", top)
	}
	if body.Recommendations[1].ID != 1 {
		t.Fatalf("expected listing 1 second, got %d", body.Recommendations[1].ID)
	}
	if body.Message != "Found 2 matching internships" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestRecommendationsQuery(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	rec, body := do(t, h, postJSON("/api/recommendations", `{"query":"python development","top_k":2}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body.Count != 2 {
		t.Fatalf("expected top_k to cap the result, got %d", body.Count)
	}
	if top := body.Recommendations[0]; top.ID != 13 || top.MatchPercentage != 74 {
		t.Fatalf("unexpected top recommendation: %+v", top)
	}
}

func TestRecommendationsValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{
			name:    "empty body",
			body:    `{}`,
			message: "Missing required fields: education, skills, location_preference",
		},
		{
			name:    "not json",
			body:    `skills=python`,
			message: "Missing required fields: education, skills, location_preference",
		},
		{
			name:    "empty skills",
			body:    `{"education":"BA","skills":[],"location_preference":"Pune"}`,
			message: "Missing required fields: skills",
		},
		{
			name:    "scalar skills",
			body:    `{"education":"BA","skills":"python","location_preference":"Pune"}`,
			message: "At least one skill must be selected",
		},
		{
			name:    "negative stipend",
			body:    `{"education":"BA","skills":["python"],"location_preference":"Pune","min_stipend":-5}`,
			message: "min_stipend must not be negative",
		},
	}

	h := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, postJSON("/api/recommendations", tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if body.Success || body.Message != tt.message {
				t.Fatalf("expected message %q, got %+v", tt.message, body)
			}
		})
	}
}

func TestLegacyRecommend(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	rec, body := do(t, h, postJSON("/recommend", `{"name":"A","education":"BA","skills":["Python"],"location_preference":"any"}`))
	if rec.Code != http.StatusBadRequest || body.Error != "Missing required field: min_stipend" {
		t.Fatalf("unexpected response %d: %+v", rec.Code, body)
	}

	form := url.Values{
		"name":                {"Asha"},
		"education":           {"Computer Science"},
		"skills":              {"Python"},
		"location_preference": {"Mumbai"},
		"min_stipend":         {"0"},
	}
	req := httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var legacy struct {
		Success   bool `json:"success"`
		Candidate struct {
			Name   string   `json:"name"`
			Skills []string `json:"skills"`
		} `json:"candidate"`
		Recommendations []matching.ScoredListing `json:"recommendations"`
		Total           int                      `json:"total_recommendations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &legacy); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if legacy.Candidate.Name != "Asha" || len(legacy.Candidate.Skills) != 1 || legacy.Candidate.Skills[0] != "Python" {
		t.Fatalf("unexpected candidate: %+v", legacy.Candidate)
	}
	// Mumbai plus every remote listing
	if legacy.Total != 10 || len(legacy.Recommendations) != 10 {
		t.Fatalf("expected 10 recommendations, got %d", legacy.Total)
	}
	if top := legacy.Recommendations[0]; top.ID != 13 || top.MatchPercentage != 94 {
		t.Fatalf("unexpected top recommendation: %+v", top)
	}
	if second := legacy.Recommendations[1]; second.ID != 12 || second.MatchPercentage != 56 {
		t.Fatalf("unexpected second recommendation: %+v", second)
	}
}

func TestInternships(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		query  string
		status int
		ids    []int
	}{
		{name: "location", query: "location=bangalore", status: http.StatusOK, ids: []int{3, 5, 11}},
		{name: "domain", query: "domain=technology", status: http.StatusOK, ids: []int{1, 12, 13}},
		{name: "remote and paid", query: "location=work+from+home&min_stipend=20000", status: http.StatusOK, ids: []int{1, 13}},
		{name: "bad stipend", query: "min_stipend=abc", status: http.StatusBadRequest},
		{name: "domain is case insensitive", query: "domain=DESIGN", status: http.StatusOK, ids: []int{9, 14}},
		{name: "unknown domain", query: "domain=astronomy", status: http.StatusBadRequest},
	}

	h := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/internships?"+tt.query, nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.status != http.StatusOK {
				return
			}
			got := ids(body.Internships)
			if len(got) != len(tt.ids) {
				t.Fatalf("expected ids %v, got %v", tt.ids, got)
			}
			for i := range got {
				if got[i] != tt.ids[i] {
					t.Fatalf("expected ids %v, got %v", tt.ids, got)
				}
			}
		})
	}
}

func TestInternshipByID(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/internships/13", nil))
	if rec.Code != http.StatusOK || body.Internship.Title != "Python Development" {
		t.Fatalf("unexpected response %d: %+v", rec.Code, body.Internship)
	}

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/internships/99", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/internships/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSimilar(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/internships/13/similar?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := ids(body.Internships); len(got) != 2 || got[0] != 1 || got[1] != 12 {
		t.Fatalf("unexpected similar listings %v", got)
	}

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/internships/99/similar", nil))
	if rec.Code != http.StatusOK || body.Count != 0 {
		t.Fatalf("expected an empty result for an unknown id, got %d: %+v", rec.Code, body)
	}

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/internships/13/similar?limit=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a zero limit, got %d", rec.Code)
	}
}

func TestTrendingAndStatsAreCached(t *testing.T) {
	t.Parallel()

	mem := &memoryCache{}
	h := newTestServer(t, WithCache(mem, time.Minute))

	for i := 0; i < 2; i++ {
		rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/trending", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := ids(body.Internships); len(got) != 5 || got[0] != 13 || got[1] != 1 {
			t.Fatalf("unexpected trending listings %v", got)
		}

		rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body.Stats.Total != 15 || body.Stats.Paid != 13 || body.Stats.Remote != 9 {
			t.Fatalf("unexpected stats %+v", body.Stats)
		}
	}

	if mem.hits != 2 {
		t.Fatalf("expected the second round to be served from cache, got %d hits", mem.hits)
	}
	if len(mem.items) != 2 {
		t.Fatalf("expected 2 cached entries, got %d", len(mem.items))
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	h := newTestServer(t, WithLogger(zap.New(core)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec, _ := do(t, h, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected the request id to be echoed, got %q", got)
	}

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}

	entries := observed.FilterMessage("request handled").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 access log entries, got %d", len(entries))
	}
	if entries[0].ContextMap()["request_id"] != "req-42" {
		t.Fatalf("unexpected access log fields %v", entries[0].ContextMap())
	}
}

func TestMethodNotAllowedAndPreflight(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommend", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/recommendations", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected any origin to be allowed, got %q", got)
	}
}

func TestCORSOrigins(t *testing.T) {
	t.Parallel()

	s := New(Config{CORSOrigins: []string{" https://app.example ", ""}}, reload.NewHolder(nil))
	cfg := s.corsConfig()
	if cfg.AllowAllOrigins || len(cfg.AllowOrigins) != 1 || cfg.AllowOrigins[0] != "https://app.example" {
		t.Fatalf("unexpected cors config %+v", cfg)
	}

	s = New(Config{CORSOrigins: []string{"https://app.example", "*"}}, reload.NewHolder(nil))
	if cfg := s.corsConfig(); !cfg.AllowAllOrigins || len(cfg.AllowOrigins) != 0 {
		t.Fatalf("expected a wildcard to allow every origin, got %+v", cfg)
	}
}
