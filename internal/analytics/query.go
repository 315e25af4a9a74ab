package analytics

import (
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Aggregate expressions over integer cents.
const (
	exprCount    = "COUNT(*)"
	exprSum      = "SUM(amount_cents)"
	exprAvg      = "AVG(amount_cents)"
	exprSumAbs   = "SUM(ABS(amount_cents))"
	exprIncome   = "SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END)"
	exprExpenses = "SUM(CASE WHEN amount_cents < 0 THEN ABS(amount_cents) ELSE 0 END)"
)

// aggregateQuery describes one grouped read of a user's transactions.
// Every view is a value of this type; there is one builder for all of them.
type aggregateQuery struct {
	userID       string
	since        core.Date // zero means unbounded
	expensesOnly bool
	groupBy      string
	columns      []string
	orderBy      string
	limit        int // 0 means no limit
}

// build renders the query and its arguments for the dialect.
func (q aggregateQuery) build(d storage.Dialect) (string, []any) {
	args := storage.NewArgs(d)

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.groupBy)
	b.WriteString(" AS grp")
	for _, c := range q.columns {
		b.WriteString(", ")
		b.WriteString(c)
	}
	b.WriteString(" FROM transactions WHERE user_id = ")
	b.WriteString(args.Add(q.userID))
	if q.expensesOnly {
		b.WriteString(" AND amount_cents < 0")
	}
	if !q.since.IsZero() {
		b.WriteString(" AND created_at >= ")
		b.WriteString(args.Add(d.DateArg(q.since)))
	}
	b.WriteString(" GROUP BY ")
	b.WriteString(q.groupBy)
	if q.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.orderBy)
	}
	if q.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.limit))
	}
	return b.String(), args.Values()
}

// windowStart resolves the lower bound of w relative to today.
func windowStart(w core.Window, today core.Date) core.Date {
	since, ok := w.Since(today.Time)
	if !ok {
		return core.Date{}
	}
	return since
}

func categoryBreakdownQuery(userID string, since core.Date) aggregateQuery {
	return aggregateQuery{
		userID:       userID,
		since:        since,
		expensesOnly: true,
		groupBy:      "category",
		columns:      []string{exprCount, exprSum, exprAvg},
		orderBy:      exprSum + " ASC, category ASC",
	}
}

func topCategoriesQuery(userID string, since core.Date, limit int) aggregateQuery {
	return aggregateQuery{
		userID:       userID,
		since:        since,
		expensesOnly: true,
		groupBy:      "category",
		columns:      []string{exprCount, exprSumAbs},
		orderBy:      exprSumAbs + " DESC, category ASC",
		limit:        limit,
	}
}

func trendsQuery(d storage.Dialect, userID string, since core.Date, g core.Granularity) aggregateQuery {
	bucket := d.Bucket(g, "created_at")
	return aggregateQuery{
		userID:  userID,
		since:   since,
		groupBy: bucket,
		columns: []string{exprIncome, exprExpenses, exprSum},
		orderBy: bucket + " ASC",
	}
}

func monthlyComparisonQuery(d storage.Dialect, userID string, since core.Date) aggregateQuery {
	bucket := d.Bucket(core.GranularityMonth, "created_at")
	return aggregateQuery{
		userID:  userID,
		since:   since,
		groupBy: bucket,
		columns: []string{exprIncome, exprExpenses, exprSum},
		orderBy: bucket + " DESC",
		limit:   2,
	}
}
