package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"finansije/internal/amqp"
	"finansije/internal/cache"
	"finansije/internal/core"
	"finansije/internal/report"
	"finansije/internal/store"
)

var ErrInvalidDate = errors.New("invalid date (use YYYY-MM-DD or RFC3339)")

// EventPublisher announces transaction changes to downstream consumers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev amqp.TransactionEvent) error
}

// CreateInput is an unparsed transaction as received from a client.
type CreateInput struct {
	Type        string
	Amount      string
	Currency    string
	Description string
	Date        string
}

type Options struct {
	Location     *time.Location
	CacheSize    int
	CacheTTL     time.Duration
	Publisher    EventPublisher
	SummaryCache cache.Cache[core.MonthlySummary]
}

// TransactionService orchestrates the store, event publishing and the
// monthly summary cache.
type TransactionService struct {
	store     store.TransactionStore
	publisher EventPublisher
	loc       *time.Location
	summaries cache.Cache[core.MonthlySummary]
	group     singleflight.Group

	// generation counts writes. A load that overlapped a write must not be
	// cached; cacheMu orders that check against invalidation.
	cacheMu    sync.Mutex
	generation uint64
}

func NewTransactionService(s store.TransactionStore, opts Options) *TransactionService {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	summaries := opts.SummaryCache
	if summaries == nil {
		size, ttl := opts.CacheSize, opts.CacheTTL
		if size <= 0 {
			size = 24
		}
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		summaries = cache.NewLRUCache[core.MonthlySummary](size, ttl)
	}
	return &TransactionService{
		store:     s,
		publisher: opts.Publisher,
		loc:       loc,
		summaries: summaries,
	}
}

// Location is the time zone months are evaluated in.
func (s *TransactionService) Location() *time.Location { return s.loc }

// Parse converts client input into a transaction ready for insertion.
func (s *TransactionService) Parse(in CreateInput) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(in.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	cur, err := core.ParseCurrency(in.Currency)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDate(in.Date, s.loc)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{Type: typ, Amount: amount, Currency: cur, Description: strings.TrimSpace(in.Description), Date: date}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}

// Create stores a new transaction, announces it and drops the cached summary
// of its month.
func (s *TransactionService) Create(ctx context.Context, in CreateInput) (core.Transaction, error) {
	t, err := s.Parse(in)
	if err != nil {
		return core.Transaction{}, err
	}
	saved, err := s.store.Insert(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.invalidate(func(c cache.Cache[core.MonthlySummary]) {
		c.Delete(core.MonthOf(saved.Date, s.loc).Key())
	})
	s.publish(ctx, amqp.NewCreatedEvent(saved, s.loc))

	slog.InfoContext(ctx, "Transaction created",
		"id", saved.ID,
		"type", saved.Type,
		"currency", saved.Currency)
	return saved, nil
}

// List returns one page of the filtered, sorted listing.
func (s *TransactionService) List(ctx context.Context, q core.ListQuery) (core.Page[core.Transaction], error) {
	q = q.Normalize()

	var (
		items []core.Transaction
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.store.FindFiltered(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Page[core.Transaction]{}, fmt.Errorf("list transactions: %w", err)
	}

	return core.Page[core.Transaction]{
		Items:       items,
		CurrentPage: q.Page,
		TotalPages:  core.TotalPages(total, q.Limit),
		Total:       total,
	}, nil
}

// Delete removes a transaction. It returns store.ErrNotFound when the id is
// unknown.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	found, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if !found {
		return store.ErrNotFound
	}

	// The month of the removed record is not known here.
	s.invalidate(func(c cache.Cache[core.MonthlySummary]) { c.Purge() })
	s.publish(ctx, amqp.NewDeletedEvent(id))

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// MonthlySummary aggregates one month. Results are cached and concurrent
// loads of the same month share a single store query.
func (s *TransactionService) MonthlySummary(ctx context.Context, m core.Month) (core.MonthlySummary, error) {
	key := m.Key()
	if sum, ok := s.summaries.Get(key); ok {
		return sum, nil
	}

	gen := s.currentGeneration()
	// Callers arriving after a write start a fresh load instead of joining one
	// that may have read pre-write data.
	v, err, _ := s.group.Do(fmt.Sprintf("%s@%d", key, gen), func() (any, error) {
		start, end := m.Range(s.loc)
		ts, err := s.store.FindByDateRange(ctx, start, end, core.Descending)
		if err != nil {
			return nil, err
		}
		sum := core.NewMonthlySummary(m, ts, s.loc)

		s.cacheMu.Lock()
		if s.generation == gen {
			s.summaries.Set(key, sum)
		}
		s.cacheMu.Unlock()
		return sum, nil
	})
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("summarize %s: %w", m, err)
	}
	return v.(core.MonthlySummary), nil
}

func (s *TransactionService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// invalidate runs after a successful write.
func (s *TransactionService) invalidate(drop func(cache.Cache[core.MonthlySummary])) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	drop(s.summaries)
}

// MonthlyReport renders the month's summary as a report document.
func (s *TransactionService) MonthlyReport(ctx context.Context, m core.Month) (report.Document, error) {
	sum, err := s.MonthlySummary(ctx, m)
	if err != nil {
		return report.Document{}, err
	}
	return report.FromSummary(sum, s.loc), nil
}

// publish never fails the caller; the write has already succeeded.
func (s *TransactionService) publish(ctx context.Context, ev amqp.TransactionEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", "kind", ev.Kind)
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", ev.Kind,
			"id", ev.ID,
			"error", err)
	}
}

// Ready checks that the store answers a trivial query.
func (s *TransactionService) Ready(ctx context.Context) error {
	_, err := s.store.Count(ctx, core.DefaultListQuery())
	return err
}

// Close releases the store and the publisher.
func (s *TransactionService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
