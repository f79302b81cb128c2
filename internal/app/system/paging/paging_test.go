package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		url  string
		want Page
	}{
		{"/", Page{1, DefaultLimit}},
		{"/?page=3&limit=20", Page{3, 20}},
		{"/?page=0&limit=-4", Page{1, DefaultLimit}},
		{"/?page=abc&limit=x", Page{1, DefaultLimit}},
		{"/?limit=5000", Page{1, MaxLimit}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := Parse(httptest.NewRequest("GET", tt.url, nil))
			if got != tt.want {
				t.Errorf("Parse(%s) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestSkip(t *testing.T) {
	if got := (Page{Number: 3, Limit: 10}).Skip(); got != 20 {
		t.Errorf("Skip() = %d, want 20", got)
	}
}

func TestBuild(t *testing.T) {
	first := Build(Page{1, 10}, 25)
	if first.Prev != nil {
		t.Error("first page should have no prev")
	}
	if first.Next == nil || first.Next.Page != 2 {
		t.Errorf("first page next = %+v", first.Next)
	}

	last := Build(Page{3, 10}, 25)
	if last.Next != nil {
		t.Error("last page should have no next")
	}
	if last.Prev == nil || last.Prev.Page != 2 {
		t.Errorf("last page prev = %+v", last.Prev)
	}

	exact := Build(Page{2, 10}, 20)
	if exact.Next != nil {
		t.Error("page ending exactly at total should have no next")
	}
}
