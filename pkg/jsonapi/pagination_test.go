package jsonapi

import (
	"math"
	"net/url"
	"strings"
	"testing"
)

func TestParsePaginationParams(t *testing.T) {
	tests := []struct {
		query       string
		wantPage    int
		wantPerPage int
	}{
		{"", 1, 20},
		{"page[number]=3&page[size]=5", 3, 5},
		{"page=2&per_page=10", 2, 10},
		{"limit=7", 1, 7},
		{"page[size]=1000", 1, MaxPerPage},
		{"page[number]=-1&page[size]=abc", 1, 20},
		{"page=2&per_page=9223372036854775807", 2, MaxPerPage},
		{"limit=9223372036854775807", 1, MaxPerPage},
	}

	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		page, perPage := ParsePaginationParams(q, 20)
		if page != tt.wantPage || perPage != tt.wantPerPage {
			t.Errorf("ParsePaginationParams(%q) = %d, %d, want %d, %d", tt.query, page, perPage, tt.wantPage, tt.wantPerPage)
		}
	}
}

func TestPagination_Window(t *testing.T) {
	tests := []struct {
		total              int64
		page, perPage      int
		wantStart, wantEnd int
	}{
		{10, 1, 4, 0, 4},
		{10, 3, 4, 8, 10},
		{10, 4, 4, 10, 10},
		{0, 1, 20, 0, 0},
		{3, 2, math.MaxInt, 3, 3},
		{3, 1, math.MaxInt, 0, 3},
		{3, math.MaxInt, 2, 3, 3},
		{3, math.MaxInt, math.MaxInt, 3, 3},
		{10, 2, math.MaxInt, 10, 10},
	}

	for _, tt := range tests {
		p := NewPagination(tt.total, tt.page, tt.perPage, "")
		start, end := p.Window()
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("Window(total=%d, page=%d, per=%d) = %d, %d, want %d, %d",
				tt.total, tt.page, tt.perPage, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestPagination_Links(t *testing.T) {
	p := NewPagination(25, 2, 10, "/api/post?active=1")
	links := p.Links()

	if !strings.Contains(links.Next, "page%5Bnumber%5D=3") {
		t.Errorf("Next = %q, want page 3", links.Next)
	}
	if !strings.Contains(links.Prev, "page%5Bnumber%5D=1") {
		t.Errorf("Prev = %q, want page 1", links.Prev)
	}
	if !strings.Contains(links.Self, "active=1") {
		t.Errorf("Self = %q, want filter kept", links.Self)
	}

	last := NewPagination(25, 3, 10, "/api/post")
	if last.Links().Next != "" {
		t.Error("last page should have no next link")
	}
	if got := last.TotalPages(); got != 3 {
		t.Errorf("TotalPages() = %d, want 3", got)
	}
}

func TestIsPaginationParam(t *testing.T) {
	for _, key := range []string{"page[number]", "page[size]", "page", "per_page", "limit"} {
		if !IsPaginationParam(key) {
			t.Errorf("IsPaginationParam(%q) = false", key)
		}
	}
	if IsPaginationParam("username") {
		t.Error("IsPaginationParam(username) = true")
	}
}

func TestDocumentBuilder_Pagination(t *testing.T) {
	doc := NewDocument().
		DataCollection(nil).
		Pagination(NewPagination(3, 1, 2, "/api/x")).
		JSONAPI().
		Build()

	if rs, ok := doc.Data.([]Resource); !ok || len(rs) != 0 {
		t.Errorf("Data = %#v, want empty collection", doc.Data)
	}
	if doc.Meta["total"] != int64(3) || doc.Meta["pages"] != 2 {
		t.Errorf("Meta = %v", doc.Meta)
	}
	if doc.Links == nil || doc.Links.Next == "" {
		t.Errorf("Links = %+v, want next link", doc.Links)
	}
	if doc.JSONAPI.Version != Version {
		t.Errorf("JSONAPI.Version = %q", doc.JSONAPI.Version)
	}
}

func TestPagination_HugeBounds(t *testing.T) {
	p := NewPagination(3, math.MaxInt, math.MaxInt, "/api/x")
	if got := p.TotalPages(); got != 1 {
		t.Errorf("TotalPages() = %d, want 1", got)
	}
	if p.HasNext() {
		t.Error("HasNext() = true past the last page")
	}

	items := []int{1, 2, 3}
	start, end := p.Window()
	if got := items[start:end]; len(got) != 0 {
		t.Errorf("items[%d:%d] = %v, want empty", start, end, got)
	}
}
