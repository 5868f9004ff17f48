package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/watchdeck/internal/platform/auth"
	"github.com/example/watchdeck/internal/platform/httpserver"
)

// ─── stubs ───────────────────────────────────────────────────────────────────

type stubVerifier struct {
	subject string
	err     error
}

func (v stubVerifier) Parse(string) (*auth.Claims, error) {
	if v.err != nil {
		return nil, v.err
	}
	c := &auth.Claims{}
	c.Subject = v.subject
	return c, nil
}

type stubUpstream struct {
	body   []byte
	err    error
	params url.Values
	calls  int
}

func (u *stubUpstream) Fetch(_ context.Context, params url.Values) ([]byte, error) {
	u.calls++
	u.params = params
	if u.err != nil {
		return nil, u.err
	}
	return u.body, nil
}

var testOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

func newHandler(up *stubUpstream) *Handler {
	var upstream Upstream
	if up != nil {
		upstream = up
	}
	return &Handler{
		Log:            zap.NewNop(),
		Verifier:       stubVerifier{subject: "user-1"},
		Upstream:       upstream,
		AllowedOrigins: testOrigins,
	}
}

func doProxy(h *Handler, target string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer token")
	if mutate != nil {
		mutate(req)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

// ─── auth ladder ─────────────────────────────────────────────────────────────

func TestProxy_MissingBearer(t *testing.T) {
	up := &stubUpstream{body: []byte(`{}`)}
	rr := doProxy(newHandler(up), "/omdb-proxy?s=heat", func(r *http.Request) {
		r.Header.Del("Authorization")
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if up.calls != 0 {
		t.Fatal("upstream must not be called without auth")
	}
}

func TestProxy_NonBearerScheme(t *testing.T) {
	up := &stubUpstream{body: []byte(`{}`)}
	rr := doProxy(newHandler(up), "/omdb-proxy?s=heat", func(r *http.Request) {
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if up.calls != 0 {
		t.Fatal("upstream must not be called without auth")
	}
}

func TestProxy_TokenVerificationFails(t *testing.T) {
	h := newHandler(&stubUpstream{body: []byte(`{}`)})
	h.Verifier = stubVerifier{err: errors.New("bad token")}
	rr := doProxy(h, "/omdb-proxy?s=heat", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if errBody(t, rr) != "Unauthorized" {
		t.Fatal("expected Unauthorized error body")
	}
}

func TestProxy_MissingAPIKey(t *testing.T) {
	rr := doProxy(newHandler(nil), "/omdb-proxy?s=heat", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if errBody(t, rr) != "OMDB API key not configured" {
		t.Fatal("expected key-not-configured error body")
	}
}

// ─── parameter validation ────────────────────────────────────────────────────

func TestProxy_MissingBothParams(t *testing.T) {
	rr := doProxy(newHandler(&stubUpstream{}), "/omdb-proxy", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestProxy_SearchTooLong(t *testing.T) {
	long := make([]byte, maxSearchLen+1)
	for i := range long {
		long[i] = 'a'
	}
	rr := doProxy(newHandler(&stubUpstream{}), "/omdb-proxy?s="+string(long), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if errBody(t, rr) != "Search query too long" {
		t.Fatal("expected query-too-long error body")
	}
}

func TestProxy_IMDBIDValidation(t *testing.T) {
	cases := []struct {
		id string
		ok bool
	}{
		{"tt1234567", true},
		{"tt12345678", true},
		{"tt123456", false},
		{"tt123456789", false},
		{"ttABCDEFG", false},
		{"1234567", false},
		{"tt1234567x", false},
	}
	for _, tc := range cases {
		up := &stubUpstream{body: []byte(`{}`)}
		rr := doProxy(newHandler(up), "/omdb-proxy?i="+tc.id, nil)
		if tc.ok && rr.Code != http.StatusOK {
			t.Fatalf("id %q: expected 200, got %d", tc.id, rr.Code)
		}
		if !tc.ok && rr.Code != http.StatusBadRequest {
			t.Fatalf("id %q: expected 400, got %d", tc.id, rr.Code)
		}
	}
}

func TestProxy_SeasonValidation(t *testing.T) {
	cases := []struct {
		season string
		ok     bool
	}{
		{"1", true},
		{"100", true},
		{"0", false},
		{"101", false},
		{"abc", false},
		{"-1", false},
		{"1.5", false},
	}
	for _, tc := range cases {
		up := &stubUpstream{body: []byte(`{}`)}
		rr := doProxy(newHandler(up), "/omdb-proxy?i=tt1234567&Season="+url.QueryEscape(tc.season), nil)
		if tc.ok && rr.Code != http.StatusOK {
			t.Fatalf("season %q: expected 200, got %d", tc.season, rr.Code)
		}
		if !tc.ok && rr.Code != http.StatusBadRequest {
			t.Fatalf("season %q: expected 400, got %d", tc.season, rr.Code)
		}
	}
}

// ─── upstream query construction ─────────────────────────────────────────────

func TestProxy_SearchForwardsQueryAndPage(t *testing.T) {
	up := &stubUpstream{body: []byte(`{"Response":"True"}`)}
	rr := doProxy(newHandler(up), "/omdb-proxy?s=dark+knight&page=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if up.params.Get("s") != "dark knight" || up.params.Get("page") != "2" {
		t.Fatalf("unexpected upstream params: %v", up.params)
	}
}

func TestProxy_NonNumericPageDropped(t *testing.T) {
	up := &stubUpstream{body: []byte(`{}`)}
	doProxy(newHandler(up), "/omdb-proxy?s=heat&page=two", nil)
	if up.params.Get("page") != "" {
		t.Fatalf("expected page dropped, got %q", up.params.Get("page"))
	}
}

func TestProxy_DetailRequestsFullPlot(t *testing.T) {
	up := &stubUpstream{body: []byte(`{}`)}
	doProxy(newHandler(up), "/omdb-proxy?i=tt1234567", nil)
	if up.params.Get("plot") != "full" {
		t.Fatalf("expected plot=full, got %v", up.params)
	}
	if up.params.Get("Season") != "" {
		t.Fatal("no season expected")
	}
}

func TestProxy_SeasonLookupOmitsPlot(t *testing.T) {
	up := &stubUpstream{body: []byte(`{}`)}
	doProxy(newHandler(up), "/omdb-proxy?i=tt1234567&Season=4", nil)
	if up.params.Get("Season") != "4" || up.params.Get("plot") != "" {
		t.Fatalf("unexpected upstream params: %v", up.params)
	}
}

// ─── relay semantics ─────────────────────────────────────────────────────────

func TestProxy_RelaysNotFoundVerbatimWith200(t *testing.T) {
	raw := `{"Response":"False","Error":"Movie not found!"}`
	up := &stubUpstream{body: []byte(raw)}
	rr := doProxy(newHandler(up), "/omdb-proxy?s=zzzzzz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for logical not-found, got %d", rr.Code)
	}
	if rr.Body.String() != raw {
		t.Fatalf("expected verbatim relay, got %q", rr.Body.String())
	}
}

func TestProxy_UpstreamFailureIsGeneric500(t *testing.T) {
	up := &stubUpstream{err: errors.New("connection refused: apikey=secret")}
	rr := doProxy(newHandler(up), "/omdb-proxy?s=heat", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if errBody(t, rr) != "Internal server error" {
		t.Fatal("expected generic error body, internals must not leak")
	}
}

func TestProxy_PanicRecoversToGeneric500(t *testing.T) {
	h := newHandler(&stubUpstream{})
	h.Verifier = panickyVerifier{}
	rr := doProxy(h, "/omdb-proxy?s=heat", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

type panickyVerifier struct{}

func (panickyVerifier) Parse(string) (*auth.Claims, error) { panic("boom") }

// ─── CORS ────────────────────────────────────────────────────────────────────

func TestProxy_OptionsPreflight(t *testing.T) {
	h := newHandler(&stubUpstream{})
	req := httptest.NewRequest(http.MethodOptions, "/omdb-proxy", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatal("preflight must have no body")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8080" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
}

func TestProxy_UnknownOriginFallsBackToDefault(t *testing.T) {
	up := &stubUpstream{body: []byte(`{}`)}
	rr := doProxy(newHandler(up), "/omdb-proxy?s=heat", func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example")
	})
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != testOrigins[0] {
		t.Fatalf("expected fallback to default origin, got %q", got)
	}
}

func TestProxy_ErrorResponsesCarryCORS(t *testing.T) {
	rr := doProxy(newHandler(&stubUpstream{}), "/omdb-proxy", func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:5173")
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected CORS on error response, got %q", got)
	}
}

// ─── routed wiring ───────────────────────────────────────────────────────────

// newRoutedMux wires the handler the way the binary does: base middlewares on
// the root router, the proxy endpoint mounted directly on it, and the API
// under /v1 behind the strict allow-list middleware.
func newRoutedMux(h *Handler) http.Handler {
	r := chi.NewRouter()
	httpserver.SetupRouter(r)
	r.Method(http.MethodGet, "/omdb-proxy", h)
	r.Method(http.MethodOptions, "/omdb-proxy", h)

	api := chi.NewRouter()
	api.Use(httpserver.CORS(testOrigins))
	api.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Mount("/v1", api)
	return r
}

func TestRoutedProxy_PreflightFallsBackToDefaultOrigin(t *testing.T) {
	mux := newRoutedMux(newHandler(&stubUpstream{}))

	req := httptest.NewRequest(http.MethodOptions, "/omdb-proxy", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	// The handler's own fallback must answer, not the API middleware.
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != testOrigins[0] {
		t.Fatalf("expected fallback origin %q, got %q", testOrigins[0], got)
	}
}

func TestRoutedProxy_GetEmitsSingleVaryAndEchoesOrigin(t *testing.T) {
	up := &stubUpstream{body: []byte(`{}`)}
	mux := newRoutedMux(newHandler(up))

	req := httptest.NewRequest(http.MethodGet, "/omdb-proxy?s=heat", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Origin", "http://localhost:8080")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8080" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
	if vary := rr.Header().Values("Vary"); len(vary) != 1 || vary[0] != "Origin" {
		t.Fatalf("expected a single Vary: Origin, got %v", vary)
	}
}

func TestRoutedProxy_APIGroupStillStrict(t *testing.T) {
	mux := newRoutedMux(newHandler(&stubUpstream{}))

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin for unknown origin on the API, got %q", got)
	}
}
