package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"finansije/internal/core"
	"finansije/internal/store"
)

var (
	_ store.TransactionStore = (*Store)(nil)
	_ store.Importer         = (*Store)(nil)
)

// Store keeps transactions in memory. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items []core.Transaction
	now   func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// seedRecord is the on-disk shape of data/seed_transactions.json.
type seedRecord struct {
	Type        string          `json:"type"`
	Amount      json.RawMessage `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

// NewFromFile creates a store seeded from a JSON array of transactions. A
// missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var recs []seedRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i, r := range recs {
		t, err := r.transaction()
		if err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i, err)
		}
		if _, err := s.Insert(context.Background(), t); err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i, err)
		}
	}
	return s, nil
}

func (r seedRecord) transaction() (core.Transaction, error) {
	typ, err := core.ParseTransactionType(r.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	cur, err := core.ParseCurrency(r.Currency)
	if err != nil {
		return core.Transaction{}, err
	}
	amt, err := core.ParseAmount(core.AmountText(r.Amount))
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{Type: typ, Amount: amt, Currency: cur, Description: r.Description, Date: r.Date}, nil
}

// Insert stores the transaction and assigns it a random ID.
func (s *Store) Insert(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.WithDefaults(s.now())
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	id, err := store.NewID()
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return t, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) DeleteByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) FindByDateRange(_ context.Context, start, end time.Time, order core.SortOrder) ([]core.Transaction, error) {
	s.mu.RLock()
	out := make([]core.Transaction, 0)
	for _, t := range s.items {
		if !t.Date.Before(start) && t.Date.Before(end) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	q := core.ListQuery{SortBy: core.SortByDate, SortOrder: order}
	sort.SliceStable(out, func(i, j int) bool { return q.Less(out[i], out[j]) })
	return out, nil
}

func (s *Store) FindFiltered(_ context.Context, q core.ListQuery) ([]core.Transaction, error) {
	q = q.Normalize()
	matched := s.filter(q)
	sort.SliceStable(matched, func(i, j int) bool { return q.Less(matched[i], matched[j]) })
	return core.Paginate(matched, q), nil
}

func (s *Store) Count(_ context.Context, q core.ListQuery) (int, error) {
	return len(s.filter(q)), nil
}

// Import adds ts, replacing records with the same ID.
func (s *Store) Import(_ context.Context, ts []core.Transaction) error {
	ts = append([]core.Transaction(nil), ts...)
	if err := store.PrepareImport(ts, s.now()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	index := make(map[string]int, len(s.items))
	for i, t := range s.items {
		index[t.ID] = i
	}
	for _, t := range ts {
		if i, ok := index[t.ID]; ok {
			s.items[i] = t
			continue
		}
		index[t.ID] = len(s.items)
		s.items = append(s.items, t)
	}
	return nil
}

// All returns a copy of every transaction, oldest first.
func (s *Store) All() []core.Transaction {
	s.mu.RLock()
	out := append([]core.Transaction(nil), s.items...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *Store) Close() error { return nil }

func (s *Store) filter(q core.ListQuery) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
