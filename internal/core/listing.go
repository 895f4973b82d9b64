package core

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Sortable transaction fields.
const (
	SortByDate        = "date"
	SortByAmount      = "amount"
	SortByDescription = "description"
	SortByType        = "type"
	SortByCurrency    = "currency"
)

var sortableFields = map[string]struct{}{
	SortByDate:        {},
	SortByAmount:      {},
	SortByDescription: {},
	SortByType:        {},
	SortByCurrency:    {},
}

// ListQuery describes a filtered, sorted and paginated transaction listing.
type ListQuery struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder SortOrder
}

// DefaultListQuery returns the listing defaults: first page of 10 by date ascending.
func DefaultListQuery() ListQuery {
	return ListQuery{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    SortByDate,
		SortOrder: Ascending,
	}
}

// ParseListQuery reads page, limit, search, sortBy and sortOrder from query
// parameters. Invalid values fall back to the defaults.
func ParseListQuery(v url.Values) ListQuery {
	q := DefaultListQuery()
	if p, err := strconv.Atoi(strings.TrimSpace(v.Get("page"))); err == nil {
		q.Page = p
	}
	if l, err := strconv.Atoi(strings.TrimSpace(v.Get("limit"))); err == nil {
		q.Limit = l
	}
	q.Search = strings.TrimSpace(v.Get("search"))
	q.SortBy = strings.TrimSpace(v.Get("sortBy"))
	q.SortOrder = SortOrder(strings.ToLower(strings.TrimSpace(v.Get("sortOrder"))))
	return q.Normalize()
}

// Normalize clamps page and limit and whitelists the sort field.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if _, ok := sortableFields[q.SortBy]; !ok {
		q.SortBy = SortByDate
	}
	if q.SortOrder != Descending {
		q.SortOrder = Ascending
	}
	return q
}

// Skip is the number of matching records before the requested page.
func (q ListQuery) Skip() int {
	return (q.Page - 1) * q.Limit
}

// SearchAmount returns the search string as a number when it parses as one.
func (q ListQuery) SearchAmount() (decimal.Decimal, bool) {
	if q.Search == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(q.Search)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Matches applies the search filter: description contains the search string
// (case-insensitive) or, for numeric searches, the amount is equal.
func (q ListQuery) Matches(t Transaction) bool {
	if q.Search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), strings.ToLower(q.Search)) {
		return true
	}
	if n, ok := q.SearchAmount(); ok && t.Amount.Equal(n) {
		return true
	}
	return false
}

// Less orders a before b on the query's sort field and direction. Ties are
// broken by ID so pages are stable.
func (q ListQuery) Less(a, b Transaction) bool {
	c := compareField(q.SortBy, a, b)
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	if q.SortOrder == Descending {
		return c > 0
	}
	return c < 0
}

func compareField(field string, a, b Transaction) int {
	switch field {
	case SortByAmount:
		return a.Amount.Cmp(b.Amount)
	case SortByDescription:
		return strings.Compare(strings.ToLower(a.Description), strings.ToLower(b.Description))
	case SortByType:
		return strings.Compare(string(a.Type), string(b.Type))
	case SortByCurrency:
		return strings.Compare(string(a.Currency), string(b.Currency))
	default:
		return a.Date.Compare(b.Date)
	}
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if limit < 1 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Page is one page of a listing.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
	Total       int
}

// Paginate slices already filtered and sorted items for q. A page past the
// end is empty.
func Paginate[T any](items []T, q ListQuery) []T {
	skip := q.Skip()
	if skip >= len(items) {
		return []T{}
	}
	end := skip + q.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}
