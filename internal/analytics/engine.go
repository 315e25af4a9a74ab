// Package analytics computes the time-windowed aggregate views over a
// user's transactions: category breakdown, spending trends, top
// categories, the month-over-month comparison and the dashboard that
// bundles three of them.
//
// Every view is a single grouped SQL read built by aggregateQuery. Store
// values are converted with core.ToDecimalOrZero at exactly one place
// (row accessors below), so a missing or non-numeric aggregate is zero.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// DashboardTopLimit is the fixed size of the dashboard's top-categories view.
const DashboardTopLimit = 5

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Engine runs aggregation queries against the transaction store.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	db      Querier
	dialect storage.Dialect
	now     func() time.Time
	logger  *log.Logger
}

type Option func(*Engine)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l.WithComponent(log.ComponentAnalytics)
	}
}

func NewEngine(db Querier, dialect storage.Dialect, opts ...Option) *Engine {
	e := &Engine{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) today() core.Date {
	return core.NewDate(e.now())
}

// CategoryBreakdown groups the expenses inside w by category, largest
// spend first. Totals and means keep the negative sign; means are exact.
func (e *Engine) CategoryBreakdown(ctx context.Context, userID string, w core.Window) ([]CategoryBreakdown, error) {
	rows, err := e.run(ctx, "category_breakdown", categoryBreakdownQuery(userID, windowStart(w, e.today())))
	if err != nil {
		return nil, err
	}

	out := make([]CategoryBreakdown, 0, len(rows))
	for _, r := range rows {
		out = append(out, CategoryBreakdown{
			Category:         r.label(),
			TransactionCount: r.count(0),
			TotalAmount:      r.money(1),
			AvgAmount:        r.money(2),
		})
	}
	return out, nil
}

// SpendingTrends buckets activity inside w at the window's granularity.
// Buckets without activity are omitted.
func (e *Engine) SpendingTrends(ctx context.Context, userID string, w core.Window) ([]TrendPoint, error) {
	q := trendsQuery(e.dialect, userID, windowStart(w, e.today()), w.Granularity)
	rows, err := e.run(ctx, "trends", q)
	if err != nil {
		return nil, err
	}

	out := make([]TrendPoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, TrendPoint{
			Period:     r.label(),
			Income:     r.money(0),
			Expenses:   r.money(1),
			NetBalance: r.money(2),
		})
	}
	return out, nil
}

// TopCategories ranks expense categories inside w by absolute spend and
// keeps the first limit rows.
func (e *Engine) TopCategories(ctx context.Context, userID string, w core.Window, limit int) ([]TopCategory, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	rows, err := e.run(ctx, "top_categories", topCategoriesQuery(userID, windowStart(w, e.today()), limit))
	if err != nil {
		return nil, err
	}

	out := make([]TopCategory, 0, len(rows))
	for _, r := range rows {
		out = append(out, TopCategory{
			Category:         r.label(),
			TransactionCount: r.count(0),
			TotalSpent:       r.money(1),
		})
	}
	return out, nil
}

// MonthlyComparison compares the two most recent active months since the
// start of the month two months ago. A missing side is all zeros.
func (e *Engine) MonthlyComparison(ctx context.Context, userID string) (MonthlyComparison, error) {
	since := core.ComparisonSince(e.now())
	rows, err := e.run(ctx, "monthly_comparison", monthlyComparisonQuery(e.dialect, userID, since))
	if err != nil {
		return MonthlyComparison{}, err
	}

	var current, previous MonthTotals
	if len(rows) > 0 {
		current = rows[0].monthTotals()
	}
	if len(rows) > 1 {
		previous = rows[1].monthTotals()
	}

	return MonthlyComparison{
		Current:  current,
		Previous: previous,
		Changes: Changes{
			IncomeChange:   current.Income.Sub(previous.Income),
			ExpensesChange: current.Expenses.Sub(previous.Expenses),
			BalanceChange:  current.NetBalance.Sub(previous.NetBalance),
		},
	}, nil
}

// Dashboard runs its three sub-views concurrently and folds the daily
// trend series into the summary. Any failure fails the whole dashboard.
func (e *Engine) Dashboard(ctx context.Context, userID string, w core.Window) (Dashboard, error) {
	since := windowStart(w, e.today())

	var (
		breakdownRows, trendRows, topRows []row
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		breakdownRows, err = e.run(gctx, "dashboard.category_breakdown", topCategoriesQuery(userID, since, 0))
		return err
	})
	g.Go(func() error {
		var err error
		trendRows, err = e.run(gctx, "dashboard.trends", trendsQuery(e.dialect, userID, since, core.GranularityDay))
		return err
	})
	g.Go(func() error {
		var err error
		topRows, err = e.run(gctx, "dashboard.top_categories", topCategoriesQuery(userID, since, DashboardTopLimit))
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Period:            w.Period,
		CategoryBreakdown: make([]DashboardCategory, 0, len(breakdownRows)),
		Trends:            make([]DashboardTrend, 0, len(trendRows)),
		TopCategories:     make([]DashboardTopCategory, 0, len(topRows)),
	}
	for _, r := range breakdownRows {
		d.CategoryBreakdown = append(d.CategoryBreakdown, DashboardCategory{
			Category:         r.label(),
			TransactionCount: r.count(0),
			TotalSpent:       r.money(1),
		})
	}
	for _, r := range trendRows {
		d.Trends = append(d.Trends, DashboardTrend{
			Date:     r.label(),
			Income:   r.money(0),
			Expenses: r.money(1),
		})
	}
	for _, r := range topRows {
		d.TopCategories = append(d.TopCategories, DashboardTopCategory{
			Category:   r.label(),
			TotalSpent: r.money(1),
		})
	}
	d.Summary = summarize(d.Trends)
	return d, nil
}

func summarize(trends []DashboardTrend) DashboardSummary {
	income, expenses := core.NewNumber(decimal.Zero), core.NewNumber(decimal.Zero)
	for _, t := range trends {
		income = income.Add(t.Income)
		expenses = expenses.Add(t.Expenses)
	}
	return DashboardSummary{
		TotalIncome:      income,
		TotalExpenses:    expenses,
		NetBalance:       income.Sub(expenses),
		TransactionCount: len(trends),
	}
}

// row is one grouped result: the group key followed by the aggregate columns.
type row struct {
	group  any
	values []any
}

func (r row) label() string {
	return storage.ScanLabel(r.group)
}

func (r row) decimal(i int) decimal.Decimal {
	if i >= len(r.values) {
		return decimal.Zero
	}
	return core.ToDecimalOrZero(r.values[i])
}

func (r row) count(i int) int64 {
	return r.decimal(i).IntPart()
}

// money converts a cents aggregate into currency units.
func (r row) money(i int) core.Number {
	return core.NumberFromCents(r.decimal(i))
}

func (r row) monthTotals() MonthTotals {
	month := r.label()
	return MonthTotals{
		Month:      &month,
		Income:     r.money(0),
		Expenses:   r.money(1),
		NetBalance: r.money(2),
	}
}

func (e *Engine) run(ctx context.Context, view string, q aggregateQuery) ([]row, error) {
	start := time.Now()
	query, args := q.build(e.dialect)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", view, err)
	}
	defer rows.Close()

	var out []row
	width := len(q.columns) + 1
	for rows.Next() {
		dest := make([]any, width)
		ptrs := make([]any, width)
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", view, err)
		}
		out = append(out, row{group: dest[0], values: dest[1:]})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", view, err)
	}

	e.logger.DebugContext(ctx, "Aggregation executed",
		log.FieldUserID, q.userID,
		log.FieldView, view,
		"rows", len(out),
		log.FieldDuration, time.Since(start).Milliseconds())
	return out, nil
}
