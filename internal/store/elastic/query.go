package elastic

import (
	"strings"
	"time"

	"finansije/internal/core"
)

// Sort keys per listing field. The id keyword breaks ties.
var sortFields = map[string]string{
	core.SortByDate:        "date",
	core.SortByAmount:      "amount",
	core.SortByDescription: "description.sort",
	core.SortByType:        "type",
	core.SortByCurrency:    "currency",
}

func indexMapping() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"analysis": map[string]any{
				"normalizer": map[string]any{
					"lowercase": map[string]any{
						"type":   "custom",
						"filter": []string{"lowercase"},
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":          map[string]any{"type": "keyword"},
				"type":        map[string]any{"type": "keyword"},
				"amount":      map[string]any{"type": "double"},
				"amount_text": map[string]any{"type": "keyword"},
				"currency":    map[string]any{"type": "keyword"},
				"date":        map[string]any{"type": "date", "format": "epoch_millis"},
				"description": map[string]any{
					"type": "text",
					"fields": map[string]any{
						"sort": map[string]any{"type": "keyword", "normalizer": "lowercase"},
					},
				},
			},
		},
	}
}

// searchFilter matches a description substring, case-insensitively, or an
// exact amount when the search is numeric.
func searchFilter(search string) map[string]any {
	if search == "" {
		return map[string]any{"match_all": map[string]any{}}
	}
	should := []any{
		map[string]any{"wildcard": map[string]any{
			"description.sort": map[string]any{
				"value":            "*" + escapeWildcard(strings.ToLower(search)) + "*",
				"case_insensitive": true,
			},
		}},
	}
	if n, ok := (core.ListQuery{Search: search}).SearchAmount(); ok {
		// amount_text holds decimal.Decimal.String(), so the match is exact.
		should = append(should, map[string]any{"term": map[string]any{"amount_text": n.String()}})
	}
	return map[string]any{"bool": map[string]any{"should": should, "minimum_should_match": 1}}
}

func listQuery(q core.ListQuery) map[string]any {
	dir := string(q.SortOrder)
	return map[string]any{
		"query": searchFilter(q.Search),
		"from":  q.Skip(),
		"size":  min(q.Limit, maxWindow-q.Skip()),
		"sort": []any{
			map[string]any{sortFields[q.SortBy]: map[string]any{"order": dir}},
			map[string]any{"id": map[string]any{"order": dir}},
		},
	}
}

// rangeQuery selects one page of a date range. after is the sort key of the
// previous page's last hit, nil for the first page.
func rangeQuery(start, end time.Time, order core.SortOrder, after []any) map[string]any {
	dir := string(core.Ascending)
	if order == core.Descending {
		dir = string(core.Descending)
	}
	body := map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"date": map[string]any{
					"gte": start.UnixMilli(),
					"lt":  end.UnixMilli(),
				},
			},
		},
		"size": rangePageSize,
		"sort": []any{
			map[string]any{"date": map[string]any{"order": dir}},
			map[string]any{"id": map[string]any{"order": dir}},
		},
	}
	if len(after) > 0 {
		body["search_after"] = after
	}
	return body
}

func escapeWildcard(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`).Replace(s)
}
