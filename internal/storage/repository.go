package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
)

// ErrNotFound is returned when a transaction id does not exist.
var ErrNotFound = errors.New("transaction not found")

const transactionColumns = "id, user_id, title, amount_cents, category, festival, created_at"

// Create inserts a validated transaction. A zero CreatedAt defaults to today.
func (s *Store) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = core.NewDate(time.Now().UTC())
	}

	args := NewArgs(s.dialect)
	query := fmt.Sprintf(
		"INSERT INTO transactions (user_id, title, amount_cents, category, festival, created_at) VALUES (%s, %s, %s, %s, %s, %s)",
		args.Add(t.UserID), args.Add(t.Title), args.Add(t.Amount.Cents), args.Add(t.Category),
		args.Add(nullString(t.Festival)), args.Add(s.dialect.DateArg(t.CreatedAt)),
	)

	if s.dialect.Returning {
		if err := s.db.QueryRowContext(ctx, query+" RETURNING id", args.Values()...).Scan(&t.ID); err != nil {
			return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
		}
	} else {
		res, err := s.db.ExecContext(ctx, query, args.Values()...)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return core.Transaction{}, fmt.Errorf("read transaction id: %w", err)
		}
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"amount_cents", t.Amount.Cents,
		"category", t.Category,
		"created_at", t.CreatedAt.String())

	return t, nil
}

// Delete removes a transaction and returns the row as it was stored.
func (s *Store) Delete(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	p := s.dialect.Placeholder(1)
	row := tx.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = "+p, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE id = "+p, id); err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit delete: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", t.UserID)
	return t, nil
}

// ListByUser returns the user's transactions, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	args := NewArgs(s.dialect)
	query := "SELECT " + transactionColumns + " FROM transactions WHERE user_id = " + args.Add(userID) +
		" ORDER BY created_at DESC, id DESC"
	return s.list(ctx, query, args.Values())
}

// ListByFestival returns the user's transactions tagged with festival, newest first.
func (s *Store) ListByFestival(ctx context.Context, userID, festival string) ([]core.Transaction, error) {
	args := NewArgs(s.dialect)
	query := "SELECT " + transactionColumns + " FROM transactions WHERE user_id = " + args.Add(userID) +
		" AND festival = " + args.Add(festival) +
		" ORDER BY created_at DESC, id DESC"
	return s.list(ctx, query, args.Values())
}

func (s *Store) list(ctx context.Context, query string, args []any) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
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

// Summary returns the all-time balance, income and expenses of a user.
// Expenses keep their negative sign.
func (s *Store) Summary(ctx context.Context, userID string) (core.Summary, error) {
	args := NewArgs(s.dialect)
	return s.summary(ctx, "user_id = "+args.Add(userID), args.Values())
}

// FestivalSummary is Summary narrowed to one festival.
func (s *Store) FestivalSummary(ctx context.Context, userID, festival string) (core.Summary, error) {
	args := NewArgs(s.dialect)
	where := "user_id = " + args.Add(userID) + " AND festival = " + args.Add(festival)
	return s.summary(ctx, where, args.Values())
}

func (s *Store) summary(ctx context.Context, where string, args []any) (core.Summary, error) {
	query := `SELECT
		COALESCE(SUM(amount_cents), 0),
		COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN amount_cents < 0 THEN amount_cents ELSE 0 END), 0)
	FROM transactions WHERE ` + where

	var balance, income, expenses any
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&balance, &income, &expenses); err != nil {
		return core.Summary{}, fmt.Errorf("summarize transactions: %w", err)
	}

	return core.Summary{
		Balance:  core.Money{Cents: core.ToDecimalOrZero(balance).IntPart()},
		Income:   core.Money{Cents: core.ToDecimalOrZero(income).IntPart()},
		Expenses: core.Money{Cents: core.ToDecimalOrZero(expenses).IntPart()},
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		festival  sql.NullString
		createdAt any
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Amount.Cents, &t.Category, &festival, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	if festival.Valid {
		f := festival.String
		t.Festival = &f
	}
	day, err := ScanDate(createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = day
	return t, nil
}

// ScanDate converts a driver-returned DATE value into a calendar day.
func ScanDate(v any) (core.Date, error) {
	switch x := v.(type) {
	case time.Time:
		return core.NewDate(x), nil
	case string:
		return core.ParseDate(x)
	case []byte:
		return core.ParseDate(string(x))
	case nil:
		return core.Date{}, nil
	default:
		return core.Date{}, fmt.Errorf("unexpected date value %T", v)
	}
}

// ScanLabel converts a bucket expression result into its YYYY-MM-DD label.
func ScanLabel(v any) string {
	switch x := v.(type) {
	case time.Time:
		return core.NewDate(x).String()
	case []byte:
		return strings.TrimSpace(string(x))
	case string:
		return strings.TrimSpace(x)
	default:
		return ""
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
