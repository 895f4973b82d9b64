package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finansije/internal/core"
	"finansije/internal/store"

	"modernc.org/sqlite"
)

// foldFunc is a Unicode-aware lower(). The built-in one folds ASCII only.
const foldFunc = "go_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, fold)
}

func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

var (
	_ store.TransactionStore = (*SQLiteRepository)(nil)
	_ store.Importer         = (*SQLiteRepository)(nil)
)

const selectColumns = `SELECT id, type, amount_text, currency, description, date_ms FROM transactions`

// Whitelisted ORDER BY expressions per sortable field.
var sortColumns = map[string]string{
	core.SortByDate:        "date_ms",
	core.SortByAmount:      "amount",
	core.SortByDescription: foldFunc + "(description)",
	core.SortByType:        "type",
	core.SortByCurrency:    "currency",
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Insert implements store.TransactionWriter
func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.WithDefaults(r.now())
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	id, err := store.NewID()
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = id

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, type, amount, amount_text, currency, description, date_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Type), t.Amount.InexactFloat64(), t.Amount.String(), string(t.Currency), t.Description, t.Date.UnixMilli())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"currency", t.Currency)

	// Round-trip the date through storage precision.
	t.Date = time.UnixMilli(t.Date.UnixMilli()).UTC()
	return t, nil
}

// Import implements store.Importer. All rows are written in one database
// transaction; an existing ID is overwritten.
func (r *SQLiteRepository) Import(ctx context.Context, ts []core.Transaction) (err error) {
	ts = append([]core.Transaction(nil), ts...)
	if err := store.PrepareImport(ts, r.now()); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO transactions (id, type, amount, amount_text, currency, description, date_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, t := range ts {
		if _, err = stmt.ExecContext(ctx,
			t.ID, string(t.Type), t.Amount.InexactFloat64(), t.Amount.String(), string(t.Currency), t.Description, t.Date.UnixMilli()); err != nil {
			return fmt.Errorf("import transaction %s: %w", t.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	slog.InfoContext(ctx, "Imported transactions into SQLite", "count", len(ts))
	return nil
}

// Get implements store.TransactionGetter
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

// DeleteByID implements store.TransactionDeleter
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// FindByDateRange implements store.RangeReader
func (r *SQLiteRepository) FindByDateRange(ctx context.Context, start, end time.Time, order core.SortOrder) ([]core.Transaction, error) {
	query := selectColumns + ` WHERE date_ms >= ? AND date_ms < ? ORDER BY date_ms ` + direction(order) + `, id ` + direction(order)
	rows, err := r.db.QueryContext(ctx, query, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query date range: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// FindFiltered implements store.TransactionFinder
func (r *SQLiteRepository) FindFiltered(ctx context.Context, q core.ListQuery) ([]core.Transaction, error) {
	q = q.Normalize()
	where, args := whereClause(q)
	dir := direction(q.SortOrder)
	query := selectColumns + where +
		` ORDER BY ` + sortColumns[q.SortBy] + ` ` + dir + `, id ` + dir +
		` LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Skip())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// Count implements store.TransactionFinder
func (r *SQLiteRepository) Count(ctx context.Context, q core.ListQuery) (int, error) {
	where, args := whereClause(q)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// whereClause expresses core.ListQuery.Matches in SQL.
func whereClause(q core.ListQuery) (string, []any) {
	if q.Search == "" {
		return "", nil
	}
	cond := []string{foldFunc + `(description) LIKE ? ESCAPE '\'`}
	args := []any{"%" + escapeLike(strings.ToLower(q.Search)) + "%"}
	// amount_text always holds decimal.Decimal.String(), so equal amounts have equal text.
	if n, ok := q.SearchAmount(); ok {
		cond = append(cond, `amount_text = ?`)
		args = append(args, n.String())
	}
	return ` WHERE ` + strings.Join(cond, ` OR `), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func direction(o core.SortOrder) string {
	if o == core.Descending {
		return "DESC"
	}
	return "ASC"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		typ, cur   string
		amountText string
		dateMs     int64
	)
	if err := s.Scan(&t.ID, &typ, &amountText, &cur, &t.Description, &dateMs); err != nil {
		return core.Transaction{}, err
	}
	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amountText, err)
	}
	t.Type = core.TransactionType(typ)
	t.Currency = core.Currency(cur)
	t.Amount = amount
	t.Date = time.UnixMilli(dateMs).UTC()
	return t, nil
}

func scanAll(rows *sql.Rows) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
