package core

import (
	"fmt"
	"net/url"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseListQueryDefaults(t *testing.T) {
	q := ParseListQuery(url.Values{})
	if q.Page != 1 || q.Limit != 10 || q.Search != "" || q.SortBy != "date" || q.SortOrder != Ascending {
		t.Fatalf("unexpected defaults %+v", q)
	}
}

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  ListQuery
	}{
		{
			name:  "all values",
			query: url.Values{"page": {"3"}, "limit": {"25"}, "search": {"kafa"}, "sortBy": {"amount"}, "sortOrder": {"desc"}},
			want:  ListQuery{Page: 3, Limit: 25, Search: "kafa", SortBy: "amount", SortOrder: Descending},
		},
		{
			name:  "page below one",
			query: url.Values{"page": {"0"}},
			want:  ListQuery{Page: 1, Limit: 10, SortBy: "date", SortOrder: Ascending},
		},
		{
			name:  "garbage values",
			query: url.Values{"page": {"x"}, "limit": {"-4"}, "sortBy": {"id; drop table"}, "sortOrder": {"sideways"}},
			want:  ListQuery{Page: 1, Limit: 10, SortBy: "date", SortOrder: Ascending},
		},
		{
			name:  "limit capped",
			query: url.Values{"limit": {"5000"}},
			want:  ListQuery{Page: 1, Limit: MaxLimit, SortBy: "date", SortOrder: Ascending},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseListQuery(tt.query)
			if got != tt.want {
				t.Errorf("ParseListQuery() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestListQueryMatches(t *testing.T) {
	tr := Transaction{Description: "Kafa sa Markom", Amount: decimal.RequireFromString("250")}
	cases := []struct {
		search string
		want   bool
	}{
		{"", true},
		{"kafa", true},
		{"MARKOM", true},
		{"250", true},
		{"250.00", true},
		{"25", false},
		{"čaj", false},
	}
	for _, tc := range cases {
		q := ListQuery{Search: tc.search}
		if got := q.Matches(tr); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.search, got, tc.want)
		}
	}

	// Numeric search still matches descriptions containing the digits.
	q := ListQuery{Search: "2024"}
	if !q.Matches(Transaction{Description: "porez 2024", Amount: decimal.NewFromInt(1)}) {
		t.Error("numeric search must also match description")
	}
}

func TestListQueryLess(t *testing.T) {
	a := Transaction{ID: "a", Amount: decimal.NewFromInt(1), Date: day(2024, 1, 2)}
	b := Transaction{ID: "b", Amount: decimal.NewFromInt(2), Date: day(2024, 1, 1)}

	if !(ListQuery{SortBy: SortByDate, SortOrder: Ascending}).Less(b, a) {
		t.Error("date asc: older first")
	}
	if !(ListQuery{SortBy: SortByAmount, SortOrder: Descending}).Less(b, a) {
		t.Error("amount desc: larger first")
	}
	same := Transaction{ID: "c", Date: a.Date}
	if !(ListQuery{SortBy: SortByDate, SortOrder: Ascending}).Less(a, same) {
		t.Error("ties broken by id")
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct{ total, limit, want int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	var items []Transaction
	for i := 0; i < 25; i++ {
		items = append(items, Transaction{ID: fmt.Sprintf("%02d", i), Date: time.Unix(int64(i), 0)})
	}
	q := DefaultListQuery()
	sort.Slice(items, func(i, j int) bool { return q.Less(items[i], items[j]) })

	q.Page = 3
	page := Paginate(items, q)
	if len(page) != 5 {
		t.Fatalf("page 3 has %d items, want 5", len(page))
	}
	if page[0].ID != "20" {
		t.Fatalf("page 3 starts at %s", page[0].ID)
	}

	q.Page = 4
	if page := Paginate(items, q); page == nil || len(page) != 0 {
		t.Fatalf("page 4 should be empty, got %v", page)
	}
}
