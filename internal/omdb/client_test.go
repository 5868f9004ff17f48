package omdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// ─── parse tests ─────────────────────────────────────────────────────────────

func TestParseSearch_OK(t *testing.T) {
	body := []byte(`{"Search":[{"Title":"Heat","Year":"1995","imdbID":"tt0113277","Type":"movie","Poster":"N/A"}],"totalResults":"1","Response":"True"}`)
	page, err := ParseSearch(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].IMDBID != "tt0113277" {
		t.Fatalf("unexpected results: %+v", page.Results)
	}
	if page.TotalResults != 1 {
		t.Fatalf("expected total 1, got %d", page.TotalResults)
	}
}

func TestParseSearch_NotFoundIsEmptyNotError(t *testing.T) {
	body := []byte(`{"Response":"False","Error":"Movie not found!"}`)
	page, err := ParseSearch(body)
	if err != nil {
		t.Fatalf("not-found must not be an error, got %v", err)
	}
	if len(page.Results) != 0 {
		t.Fatalf("expected empty results, got %+v", page.Results)
	}
}

func TestParseSearch_LogicalError(t *testing.T) {
	body := []byte(`{"Response":"False","Error":"Too many results."}`)
	_, err := ParseSearch(body)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "Too many results." {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestParseDetail_OK(t *testing.T) {
	body := []byte(`{"Title":"Breaking Bad","Year":"2008–2013","imdbID":"tt0903747","Type":"series","totalSeasons":"5","Response":"True"}`)
	d, err := ParseDetail(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.TotalSeasons != "5" {
		t.Fatalf("expected totalSeasons 5, got %q", d.TotalSeasons)
	}
}

func TestParseDetail_LogicalError(t *testing.T) {
	body := []byte(`{"Response":"False","Error":"Incorrect IMDb ID."}`)
	if _, err := ParseDetail(body); err == nil {
		t.Fatal("expected error for Response=False")
	}
}

func TestParseSeason_OK(t *testing.T) {
	body := []byte(`{"Season":"2","totalSeasons":"5","Episodes":[{"Title":"Seven Thirty-Seven","Episode":"1","imdbID":"tt1232244","imdbRating":"8.6","Released":"2009-03-08"}],"Response":"True"}`)
	s, err := ParseSeason(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Episodes) != 1 || s.Episodes[0].Episode != "1" {
		t.Fatalf("unexpected episodes: %+v", s.Episodes)
	}
}

// ─── client tests ────────────────────────────────────────────────────────────

func TestClient_FetchInjectsKeyAndRelaysBody(t *testing.T) {
	const raw = `{"Response":"True","Search":[]}`
	var gotKey, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		gotQuery = r.URL.Query().Get("s")
		_, _ = w.Write([]byte(raw))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	body, err := c.Fetch(context.Background(), map[string][]string{"s": {"batman"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != raw {
		t.Fatalf("expected verbatim body, got %q", body)
	}
	if gotKey != "secret-key" {
		t.Fatalf("expected apikey injected, got %q", gotKey)
	}
	if gotQuery != "batman" {
		t.Fatalf("expected s=batman, got %q", gotQuery)
	}
}

func TestClient_FetchUpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	if _, err := c.Fetch(context.Background(), nil); err == nil {
		t.Fatal("expected error for non-200 upstream status")
	}
}

func TestClient_SeasonBuildsSeasonQuery(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"Season":"3","Episodes":[],"Response":"True"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	if _, err := c.Season(context.Background(), "tt0903747", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Get("i") != "tt0903747" || got.Get("Season") != "3" {
		t.Fatalf("unexpected query: %v", got)
	}
	if got.Get("plot") != "" {
		t.Fatal("season lookup must not request plot")
	}
}

func TestClient_DetailRequestsFullPlot(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"Title":"Heat","imdbID":"tt0113277","Response":"True"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	if _, err := c.Detail(context.Background(), "tt0113277"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Get("plot") != "full" {
		t.Fatalf("expected plot=full, got %q", got.Get("plot"))
	}
}
