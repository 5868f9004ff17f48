// Package omdb speaks the OMDb HTTP JSON wire format: upstream field casing
// (Title, Year, imdbID, ...) is preserved on the wire, and logical failures
// arrive as Response=False envelopes rather than HTTP errors.
package omdb

import (
	"encoding/json"
	"strconv"
	"strings"
)

// notFoundMessage is the upstream's logical "no results" marker. It is an
// empty result set, not an error.
const notFoundMessage = "Movie not found!"

// APIError is a logical error reported by the upstream inside a 200 response.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return "omdb: " + e.Message }

type SearchResult struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDBID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

type SearchPage struct {
	Results      []SearchResult
	TotalResults int
}

type Detail struct {
	Title        string `json:"Title"`
	Year         string `json:"Year"`
	Rated        string `json:"Rated"`
	Released     string `json:"Released"`
	Runtime      string `json:"Runtime"`
	Genre        string `json:"Genre"`
	Director     string `json:"Director"`
	Writer       string `json:"Writer"`
	Actors       string `json:"Actors"`
	Plot         string `json:"Plot"`
	Poster       string `json:"Poster"`
	IMDBRating   string `json:"imdbRating"`
	IMDBID       string `json:"imdbID"`
	Type         string `json:"Type"`
	TotalSeasons string `json:"totalSeasons,omitempty"`
}

type Episode struct {
	Title      string `json:"Title"`
	Episode    string `json:"Episode"`
	Released   string `json:"Released"`
	IMDBRating string `json:"imdbRating"`
	IMDBID     string `json:"imdbID"`
}

type Season struct {
	Season       string    `json:"Season"`
	TotalSeasons string    `json:"totalSeasons"`
	Episodes     []Episode `json:"Episodes"`
}

type envelope struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// ParseSearch decodes a search response body. The upstream's "Movie not
// found!" outcome maps to an empty page; any other logical error becomes an
// *APIError.
func ParseSearch(body []byte) (SearchPage, error) {
	var env struct {
		envelope
		Search       []SearchResult `json:"Search"`
		TotalResults string         `json:"totalResults"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return SearchPage{}, err
	}
	if env.Response == "False" {
		if env.Error == notFoundMessage {
			return SearchPage{}, nil
		}
		return SearchPage{}, &APIError{Message: env.Error}
	}
	total, _ := strconv.Atoi(strings.TrimSpace(env.TotalResults))
	return SearchPage{Results: env.Search, TotalResults: total}, nil
}

// ParseDetail decodes a by-id lookup response body.
func ParseDetail(body []byte) (Detail, error) {
	var env struct {
		envelope
		Detail
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return Detail{}, err
	}
	if env.Response == "False" {
		return Detail{}, &APIError{Message: env.Error}
	}
	return env.Detail, nil
}

// ParseSeason decodes a season episode-list response body.
func ParseSeason(body []byte) (Season, error) {
	var env struct {
		envelope
		Season
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return Season{}, err
	}
	if env.Response == "False" {
		return Season{}, &APIError{Message: env.Error}
	}
	return env.Season, nil
}
