// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
)

const maxBodyBytes = 64 << 10

// CreateTransactionRequest is the body of POST /api/transactions.
// Amount is a JSON number or a decimal string; a comma separator is accepted.
type CreateTransactionRequest struct {
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Amount    json.RawMessage `json:"amount"`
	Category  string          `json:"category"`
	Festival  *string         `json:"festival"`
	CreatedAt string          `json:"created_at"`
}

// ParseCreateTransaction decodes and validates a create request.
// The returned error is safe to show to the client.
func ParseCreateTransaction(r *http.Request) (core.Transaction, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return core.Transaction{}, errors.New(MsgInvalidBody)
	}
	if len(body) > maxBodyBytes {
		return core.Transaction{}, errors.New("request body too large")
	}

	var req CreateTransactionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return core.Transaction{}, errors.New(MsgInvalidBody)
	}

	cents, err := core.ParseAmountToCents(amountString(req.Amount))
	if err != nil {
		return core.Transaction{}, errors.New("amount must be a non-zero number")
	}

	t := core.Transaction{
		UserID:   sanitizeInput(req.UserID),
		Title:    sanitizeInput(req.Title),
		Amount:   core.Money{Cents: cents},
		Category: sanitizeInput(req.Category),
	}
	if req.Festival != nil {
		f := sanitizeInput(*req.Festival)
		t.Festival = &f
	}
	if strings.TrimSpace(req.CreatedAt) != "" {
		d, err := core.ParseDate(req.CreatedAt)
		if err != nil {
			return core.Transaction{}, errors.New("created_at must be a date (YYYY-MM-DD)")
		}
		t.CreatedAt = d
	}

	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, validationMessage(err)
	}
	return t, nil
}

// amountString accepts 12.5, "12.5" and "12,50".
func amountString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return ""
		}
		return str
	}
	return s
}

func validationMessage(err error) error {
	switch {
	case errors.Is(err, core.ErrEmptyUserID):
		return errors.New("user_id is required")
	case errors.Is(err, core.ErrEmptyTitle):
		return errors.New("title is required")
	case errors.Is(err, core.ErrEmptyCategory):
		return errors.New("category is required")
	case errors.Is(err, core.ErrInvalidAmount):
		return errors.New("amount must be a non-zero number")
	default:
		return fmt.Errorf("invalid transaction: %w", err)
	}
}

// ParseTransactionID reads the {id} path value.
func ParseTransactionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(MsgInvalidID)
	}
	return id, nil
}

// AnalyticsParams holds the query parameters shared by the analytics routes.
type AnalyticsParams struct {
	UserID string
	Window core.Window
	Limit  int
}

// ParseAnalyticsParams resolves ?period= against def and ?limit= against the
// default top-N. Unknown values fall back to defaults instead of failing.
func ParseAnalyticsParams(r *http.Request, def core.Period) AnalyticsParams {
	q := r.URL.Query()
	return AnalyticsParams{
		UserID: r.PathValue("userId"),
		Window: analytics.WindowFor(q.Get("period"), q.Has("period"), def),
		Limit:  analytics.ParseLimit(q.Get("limit")),
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
