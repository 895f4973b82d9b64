// Package elastic stores transactions as documents in an Elasticsearch v8
// index.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/shopspring/decimal"

	"finansije/internal/core"
	"finansije/internal/store"
)

const (
	DefaultIndex = "finansije-transactions"

	// Largest result window a single search may return.
	maxWindow     = 10000
	rangePageSize = 1000
	bulkFlush     = 2048
)

var (
	_ store.TransactionStore = (*Store)(nil)
	_ store.Importer         = (*Store)(nil)
)

type Store struct {
	es    *elasticsearch.Client
	index string
	now   func() time.Time
}

// document is the indexed shape of a transaction.
type document struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	AmountText  string  `json:"amount_text"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Date        int64   `json:"date"`
}

// New connects to the cluster and makes sure the index exists.
func New(ctx context.Context, addresses []string, index string) (*Store, error) {
	if index == "" {
		index = DefaultIndex
	}
	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     addresses,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	s := &Store{es: es, index: index, now: time.Now}
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndex(ctx context.Context) error {
	res, err := s.es.Indices.Exists([]string{s.index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.es.Indices.Create(s.index,
		s.es.Indices.Create.WithBody(esutil.NewJSONReader(indexMapping())),
		s.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	slog.InfoContext(ctx, "Created Elasticsearch index", "index", s.index)
	return nil
}

// Close is a no-op; the client holds no resources that need releasing.
func (s *Store) Close() error { return nil }

// Ping reports whether the cluster answers.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("ping", res)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.WithDefaults(s.now())
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	id, err := store.NewID()
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = id
	t.Date = time.UnixMilli(t.Date.UnixMilli()).UTC()

	res, err := s.es.Index(s.index, esutil.NewJSONReader(toDocument(t)),
		s.es.Index.WithDocumentID(t.ID),
		s.es.Index.WithRefresh("wait_for"),
		s.es.Index.WithContext(ctx))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("index transaction: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return core.Transaction{}, responseError("index transaction", res)
	}
	return t, nil
}

// Import implements store.Importer with the bulk API. Documents with an
// existing ID are replaced.
func (s *Store) Import(ctx context.Context, ts []core.Transaction) error {
	ts = append([]core.Transaction(nil), ts...)
	if err := store.PrepareImport(ts, s.now()); err != nil {
		return err
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:      s.index,
		Client:     s.es,
		FlushBytes: bulkFlush,
		NumWorkers: 2,
		Refresh:    "wait_for",
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}

	for _, t := range ts {
		data, err := json.Marshal(toDocument(t))
		if err != nil {
			return err
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: t.ID,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					slog.ErrorContext(ctx, "Bulk index failed", "id", item.DocumentID, "error", err)
					return
				}
				slog.ErrorContext(ctx, "Bulk index failed", "id", item.DocumentID, "type", res.Error.Type, "reason", res.Error.Reason)
			},
		})
		if err != nil {
			return fmt.Errorf("queue transaction %s: %w", t.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk indexer: %w", err)
	}
	if st := bi.Stats(); st.NumFailed > 0 {
		return fmt.Errorf("failed indexing %d of %d transactions", st.NumFailed, st.NumAdded)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Transaction, error) {
	res, err := s.es.Get(s.index, id, s.es.Get.WithContext(ctx))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return core.Transaction{}, store.ErrNotFound
	}
	if res.IsError() {
		return core.Transaction{}, responseError("get transaction", res)
	}

	var body struct {
		ID     string   `json:"_id"`
		Source document `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return core.Transaction{}, fmt.Errorf("decode transaction %s: %w", id, err)
	}
	return fromDocument(body.ID, body.Source)
}

func (s *Store) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := s.es.Delete(s.index, id,
		s.es.Delete.WithRefresh("wait_for"),
		s.es.Delete.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("delete transaction %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, responseError("delete transaction", res)
	}
	return true, nil
}

// FindByDateRange pages through the range with search_after, so a month is
// never cut off at the result window.
func (s *Store) FindByDateRange(ctx context.Context, start, end time.Time, order core.SortOrder) ([]core.Transaction, error) {
	var (
		out   = make([]core.Transaction, 0)
		after []any
	)
	for {
		page, err := s.search(ctx, rangeQuery(start, end, order, after))
		if err != nil {
			return nil, err
		}
		out = append(out, page.items...)
		if len(page.items) < rangePageSize || len(page.lastSort) == 0 {
			return out, nil
		}
		after = page.lastSort
	}
}

func (s *Store) FindFiltered(ctx context.Context, q core.ListQuery) ([]core.Transaction, error) {
	q = q.Normalize()
	if q.Skip() >= maxWindow {
		return []core.Transaction{}, nil
	}
	page, err := s.search(ctx, listQuery(q))
	if err != nil {
		return nil, err
	}
	return page.items, nil
}

func (s *Store) Count(ctx context.Context, q core.ListQuery) (int, error) {
	res, err := s.es.Count(
		s.es.Count.WithIndex(s.index),
		s.es.Count.WithBody(esutil.NewJSONReader(map[string]any{"query": searchFilter(q.Search)})),
		s.es.Count.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("count transactions", res)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode count: %w", err)
	}
	return body.Count, nil
}

// hitPage is one search response. lastSort is the sort key of the last hit.
type hitPage struct {
	items    []core.Transaction
	lastSort []any
}

func (s *Store) search(ctx context.Context, query map[string]any) (hitPage, error) {
	res, err := s.es.Search(
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(esutil.NewJSONReader(query)),
		s.es.Search.WithContext(ctx))
	if err != nil {
		return hitPage{}, fmt.Errorf("search transactions: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return hitPage{}, responseError("search transactions", res)
	}
	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) (hitPage, error) {
	var body struct {
		Hits struct {
			Hits []struct {
				ID     string   `json:"_id"`
				Source document `json:"_source"`
				Sort   []any    `json:"sort"`
			} `json:"hits"`
		} `json:"hits"`
	}
	dec := json.NewDecoder(r)
	// Keeps epoch-millis sort keys exact when they are sent back.
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return hitPage{}, fmt.Errorf("decode search response: %w", err)
	}
	page := hitPage{items: make([]core.Transaction, 0, len(body.Hits.Hits))}
	for _, h := range body.Hits.Hits {
		t, err := fromDocument(h.ID, h.Source)
		if err != nil {
			return hitPage{}, err
		}
		page.items = append(page.items, t)
		page.lastSort = h.Sort
	}
	return page, nil
}

func toDocument(t core.Transaction) document {
	return document{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount.InexactFloat64(),
		AmountText:  t.Amount.String(),
		Currency:    string(t.Currency),
		Description: t.Description,
		Date:        t.Date.UnixMilli(),
	}
}

func fromDocument(id string, d document) (core.Transaction, error) {
	amount, err := decimal.NewFromString(d.AmountText)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", d.AmountText, err)
	}
	if d.ID != "" {
		id = d.ID
	}
	return core.Transaction{
		ID:          id,
		Type:        core.TransactionType(d.Type),
		Amount:      amount,
		Currency:    core.Currency(d.Currency),
		Description: d.Description,
		Date:        time.UnixMilli(d.Date).UTC(),
	}, nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s: elasticsearch returned %s: %s", op, res.Status(), bytes.TrimSpace(body))
}
