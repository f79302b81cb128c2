// Package paging parses page/limit query parameters and builds the
// pagination block returned by list endpoints.
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit is the page size used when the client sends none.
const DefaultLimit = 25

// MaxLimit caps client-supplied page sizes.
const MaxLimit = 100

// Page is a validated page request.
type Page struct {
	Number int // 1-based
	Limit  int
}

// Skip returns the number of documents to skip for this page.
func (p Page) Skip() int64 { return int64((p.Number - 1) * p.Limit) }

// Parse reads ?page= and ?limit=. Missing, malformed or out-of-range
// values fall back to page 1 and DefaultLimit; limit is capped at MaxLimit.
func Parse(r *http.Request) Page {
	return Page{
		Number: positive(query.Get(r, "page"), 1),
		Limit:  min(positive(query.Get(r, "limit"), DefaultLimit), MaxLimit),
	}
}

func positive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Link points at a neighbouring page.
type Link struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Info is the "pagination" object of a list response. Next and Prev are
// omitted when there is no such page.
type Info struct {
	Next *Link `json:"next,omitempty"`
	Prev *Link `json:"prev,omitempty"`
}

// Build computes neighbour links for p given the total number of matches.
func Build(p Page, total int64) Info {
	var info Info
	if int64(p.Number*p.Limit) < total {
		info.Next = &Link{Page: p.Number + 1, Limit: p.Limit}
	}
	if p.Number > 1 {
		info.Prev = &Link{Page: p.Number - 1, Limit: p.Limit}
	}
	return info
}
