// Package store declares the transaction store ports implemented by the
// memory, SQLite and Elasticsearch backends.
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"finansije/internal/core"
)

var ErrNotFound = errors.New("transaction not found")

type (
	// TransactionWriter persists new transactions. Insert assigns the ID and
	// defaults a zero date to the insertion time.
	TransactionWriter interface {
		Insert(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	// TransactionDeleter removes a transaction and reports whether it existed.
	TransactionDeleter interface {
		DeleteByID(ctx context.Context, id string) (bool, error)
	}

	// RangeReader returns transactions with start <= date < end.
	RangeReader interface {
		FindByDateRange(ctx context.Context, start, end time.Time, order core.SortOrder) ([]core.Transaction, error)
	}

	// TransactionFinder serves the filtered, sorted and paginated listing.
	TransactionFinder interface {
		FindFiltered(ctx context.Context, q core.ListQuery) ([]core.Transaction, error)
		Count(ctx context.Context, q core.ListQuery) (int, error)
	}

	// TransactionGetter fetches a single transaction.
	TransactionGetter interface {
		Get(ctx context.Context, id string) (core.Transaction, error)
	}

	// Importer bulk-loads transactions, keeping IDs that are already set.
	Importer interface {
		Import(ctx context.Context, ts []core.Transaction) error
	}

	TransactionStore interface {
		TransactionWriter
		TransactionDeleter
		RangeReader
		TransactionFinder
		TransactionGetter
		Close() error
	}
)

// NewID returns a random 24 character hex identifier.
func NewID() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// PrepareImport fills defaults, validates and assigns missing IDs in place.
func PrepareImport(ts []core.Transaction, now time.Time) error {
	for i := range ts {
		t := ts[i].WithDefaults(now)
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if t.ID == "" {
			id, err := NewID()
			if err != nil {
				return err
			}
			t.ID = id
		}
		ts[i] = t
	}
	return nil
}
