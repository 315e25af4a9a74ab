package analytics

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// 2026-03-04 is a Wednesday.
var fixedNow = time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

type seedTx struct {
	day      string
	amount   int64 // cents
	category string
}

func newTestEngine(t *testing.T, seed ...seedTx) (*Engine, *storage.Store) {
	t.Helper()
	cfg := storage.Config{Dialect: "sqlite", DSN: filepath.Join(t.TempDir(), "analytics.db")}
	require.NoError(t, storage.RunMigrations(cfg))
	store, err := storage.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	addTransactions(t, store, "u1", seed...)

	engine := NewEngine(store.DB(), store.Dialect(), WithClock(func() time.Time { return fixedNow }))
	return engine, store
}

func addTransactions(t *testing.T, store *storage.Store, userID string, seed ...seedTx) {
	t.Helper()
	for i, s := range seed {
		day, err := core.ParseDate(s.day)
		require.NoError(t, err)
		_, err = store.Create(context.Background(), core.Transaction{
			UserID:    userID,
			Title:     "tx",
			Amount:    core.Money{Cents: s.amount},
			Category:  s.category,
			CreatedAt: day,
		})
		require.NoError(t, err, "seed %d", i)
	}
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func window(p core.Period) core.Window {
	return core.ResolveWindow(string(p))
}

func TestSalaryAndFoodScenario(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2026-03-04", 10000, "salary"},
		seedTx{"2026-03-04", -4000, "food"},
	)
	ctx := context.Background()
	all := window(core.PeriodAll)

	breakdown, err := engine.CategoryBreakdown(ctx, "u1", all)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"category":"food","transaction_count":1,"total_amount":-40,"avg_amount":-40}]`,
		toJSON(t, breakdown))

	top, err := engine.TopCategories(ctx, "u1", all, DefaultTopLimit)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"category":"food","transaction_count":1,"total_spent":40}]`,
		toJSON(t, top))

	dash, err := engine.Dashboard(ctx, "u1", all)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"period": "all",
		"summary": {"total_income": 100, "total_expenses": 40, "net_balance": 60, "transaction_count": 1},
		"category_breakdown": [{"category":"food","transaction_count":1,"total_spent":40}],
		"trends": [{"date":"2026-03-04","income":100,"expenses":40}],
		"top_categories": [{"category":"food","total_spent":40}]
	}`, toJSON(t, dash))
}

func TestEmptyUserGivesEmptyArrays(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	all := window(core.PeriodAll)

	breakdown, err := engine.CategoryBreakdown(ctx, "nobody", all)
	require.NoError(t, err)
	assert.Equal(t, "[]", toJSON(t, breakdown))

	trends, err := engine.SpendingTrends(ctx, "nobody", all)
	require.NoError(t, err)
	assert.Equal(t, "[]", toJSON(t, trends))

	top, err := engine.TopCategories(ctx, "nobody", all, 3)
	require.NoError(t, err)
	assert.Equal(t, "[]", toJSON(t, top))

	dash, err := engine.Dashboard(ctx, "nobody", window(core.PeriodMonth))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"period": "month",
		"summary": {"total_income": 0, "total_expenses": 0, "net_balance": 0, "transaction_count": 0},
		"category_breakdown": [],
		"trends": [],
		"top_categories": []
	}`, toJSON(t, dash))
}

func TestBreakdownOrderingAndAverage(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2026-03-01", -1000, "food"},
		seedTx{"2026-03-02", -501, "food"},
		seedTx{"2026-03-02", -9000, "rent"},
		seedTx{"2026-03-03", -200, "coffee"},
		seedTx{"2026-03-03", 50000, "salary"},
	)

	got, err := engine.CategoryBreakdown(context.Background(), "u1", window(core.PeriodAll))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"rent", "food", "coffee"}, []string{got[0].Category, got[1].Category, got[2].Category})
	assert.Equal(t, int64(2), got[1].TransactionCount)
	assert.Equal(t, "-15.01", got[1].TotalAmount.String())
	assert.Equal(t, "-7.505", got[1].AvgAmount.String())
}

func TestBreakdownAverageIsNotRounded(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2026-03-01", -1000, "food"},
		seedTx{"2026-03-02", -2001, "food"},
	)

	got, err := engine.CategoryBreakdown(context.Background(), "u1", window(core.PeriodAll))
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"category":"food","transaction_count":2,"total_amount":-30.01,"avg_amount":-15.005}]`,
		toJSON(t, got))
}

func TestWindowBoundaries(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2026-02-24", -100, "outside-week"},
		seedTx{"2026-02-25", -200, "week-edge"},
		seedTx{"2026-02-01", -300, "outside-month"},
		seedTx{"2026-02-02", -400, "month-edge"},
		seedTx{"2025-03-03", -500, "outside-year"},
		seedTx{"2025-03-04", -600, "year-edge"},
	)
	ctx := context.Background()

	categories := func(p core.Period) []string {
		rows, err := engine.CategoryBreakdown(ctx, "u1", window(p))
		require.NoError(t, err)
		var names []string
		for _, r := range rows {
			names = append(names, r.Category)
		}
		return names
	}

	assert.ElementsMatch(t, []string{"week-edge"}, categories(core.PeriodWeek))
	assert.ElementsMatch(t, []string{"week-edge", "outside-week", "month-edge"}, categories(core.PeriodMonth))
	assert.ElementsMatch(t, []string{"week-edge", "outside-week", "month-edge", "outside-month", "year-edge"}, categories(core.PeriodYear))
	assert.Len(t, categories(core.PeriodAll), 6)
}

func TestWindowsWidenMonotonically(t *testing.T) {
	var seed []seedTx
	start := core.NewDate(fixedNow)
	for i := 0; i < 500; i += 3 {
		seed = append(seed, seedTx{start.AddDays(-i).String(), -int64(100 + i), "c"})
	}
	engine, _ := newTestEngine(t, seed...)
	ctx := context.Background()

	var prev int64 = -1
	for _, p := range []core.Period{core.PeriodWeek, core.PeriodMonth, core.PeriodYear, core.PeriodAll} {
		rows, err := engine.TopCategories(ctx, "u1", window(p), 10)
		require.NoError(t, err)
		var count int64
		for _, r := range rows {
			count += r.TransactionCount
		}
		assert.Greater(t, count, prev, "period %s should include more rows", p)
		prev = count
	}
}

func TestBreakdownAndTopCategoriesAgreeUpToSign(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2026-03-04", -1234, "food"},
		seedTx{"2026-03-01", -99, "food"},
		seedTx{"2026-02-10", -5000, "travel"},
		seedTx{"2025-12-24", -7777, "gifts"},
		seedTx{"2026-03-02", 100000, "salary"},
	)
	ctx := context.Background()

	for _, p := range []core.Period{core.PeriodWeek, core.PeriodMonth, core.PeriodYear, core.PeriodAll} {
		t.Run(string(p), func(t *testing.T) {
			breakdown, err := engine.CategoryBreakdown(ctx, "u1", window(p))
			require.NoError(t, err)
			top, err := engine.TopCategories(ctx, "u1", window(p), 100)
			require.NoError(t, err)
			require.Len(t, top, len(breakdown))

			spent := map[string]string{}
			for _, c := range top {
				spent[c.Category] = c.TotalSpent.String()
			}
			for _, c := range breakdown {
				assert.Equal(t, c.TotalAmount.Neg().String(), spent[c.Category], "category %s", c.Category)
			}
		})
	}
}

func TestTopCategoriesLimit(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2026-03-01", -100, "a"},
		seedTx{"2026-03-01", -700, "b"},
		seedTx{"2026-03-01", -300, "c"},
		seedTx{"2026-03-01", -500, "d"},
	)

	got, err := engine.TopCategories(context.Background(), "u1", window(core.PeriodAll), 2)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"category":"b","transaction_count":1,"total_spent":7},{"category":"d","transaction_count":1,"total_spent":5}]`,
		toJSON(t, got))

	got, err = engine.TopCategories(context.Background(), "u1", window(core.PeriodAll), 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestSpendingTrendsGranularity(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2026-02-03", 20000, "salary"}, // Tuesday
		seedTx{"2026-02-08", -5000, "rent"},   // Sunday, same week
		seedTx{"2026-03-02", -1000, "food"},   // Monday
		seedTx{"2026-03-04", 10, "refund"},
		seedTx{"2026-03-04", 20, "refund"},
		seedTx{"2025-06-15", -300, "old"},
	)
	ctx := context.Background()

	week, err := engine.SpendingTrends(ctx, "u1", window(core.PeriodWeek))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"period":"2026-03-02","income":0,"expenses":10,"net_balance":-10},
		{"period":"2026-03-04","income":0.3,"expenses":0,"net_balance":0.3}
	]`, toJSON(t, week))

	month, err := engine.SpendingTrends(ctx, "u1", window(core.PeriodMonth))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"period":"2026-02-02","income":200,"expenses":50,"net_balance":150},
		{"period":"2026-03-02","income":0.3,"expenses":10,"net_balance":-9.7}
	]`, toJSON(t, month))

	year, err := engine.SpendingTrends(ctx, "u1", window(core.PeriodYear))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"period":"2025-06-01","income":0,"expenses":3,"net_balance":-3},
		{"period":"2026-02-01","income":200,"expenses":50,"net_balance":150},
		{"period":"2026-03-01","income":0.3,"expenses":10,"net_balance":-9.7}
	]`, toJSON(t, year))

	all, err := engine.SpendingTrends(ctx, "u1", window(core.PeriodAll))
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "2025-06-15", all[0].Period)
	assert.Equal(t, "2026-03-04", all[4].Period)
}

func TestBogusPeriodMatchesAll(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2024-01-01", -100, "old"},
		seedTx{"2026-03-03", -200, "new"},
		seedTx{"2026-03-03", 900, "pay"},
	)
	ctx := context.Background()
	bogus := WindowFor("bogus", true, DefaultDashboardPeriod)
	all := window(core.PeriodAll)

	d1, err := engine.Dashboard(ctx, "u1", bogus)
	require.NoError(t, err)
	d2, err := engine.Dashboard(ctx, "u1", all)
	require.NoError(t, err)
	assert.Equal(t, toJSON(t, d2), toJSON(t, d1))

	t1, err := engine.SpendingTrends(ctx, "u1", bogus)
	require.NoError(t, err)
	t2, err := engine.SpendingTrends(ctx, "u1", all)
	require.NoError(t, err)
	assert.Equal(t, toJSON(t, t2), toJSON(t, t1))
}

func TestDashboardUsesDailyTrendsAndTopFive(t *testing.T) {
	var seed []seedTx
	for i, c := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		seed = append(seed, seedTx{"2026-01-1" + string(rune('0'+i)), -int64(100 * (i + 1)), c})
	}
	seed = append(seed, seedTx{"2026-01-10", 100000, "salary"})
	engine, _ := newTestEngine(t, seed...)

	d, err := engine.Dashboard(context.Background(), "u1", window(core.PeriodYear))
	require.NoError(t, err)

	assert.Equal(t, core.PeriodYear, d.Period)
	assert.Len(t, d.CategoryBreakdown, 7)
	assert.Equal(t, "g", d.CategoryBreakdown[0].Category)
	require.Len(t, d.TopCategories, DashboardTopLimit)
	assert.Equal(t, []string{"g", "f", "e", "d", "c"}, []string{
		d.TopCategories[0].Category, d.TopCategories[1].Category, d.TopCategories[2].Category,
		d.TopCategories[3].Category, d.TopCategories[4].Category,
	})

	require.Len(t, d.Trends, 7)
	assert.Equal(t, "2026-01-10", d.Trends[0].Date)
	assert.Equal(t, 7, d.Summary.TransactionCount)
	assert.Equal(t, "1000", d.Summary.TotalIncome.String())
	assert.Equal(t, "28", d.Summary.TotalExpenses.String())
	assert.True(t, d.Summary.NetBalance.Equal(d.Summary.TotalIncome.Sub(d.Summary.TotalExpenses).Decimal))
}

func TestMonthlyComparison(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2026-03-01", 50000, "salary"},
		seedTx{"2026-03-03", -12000, "rent"},
		seedTx{"2026-02-14", 20000, "salary"},
		seedTx{"2026-02-20", -5000, "food"},
		seedTx{"2025-12-31", 99900, "bonus"},
	)

	got, err := engine.MonthlyComparison(context.Background(), "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"current": {"month":"2026-03-01","income":500,"expenses":120,"net_balance":380},
		"previous": {"month":"2026-02-01","income":200,"expenses":50,"net_balance":150},
		"changes": {"income_change":300,"expenses_change":70,"balance_change":230}
	}`, toJSON(t, got))
}

func TestMonthlyComparisonZeroFillsMissingMonth(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2026-03-02", 12345, "salary"},
		seedTx{"2026-03-02", -345, "food"},
	)

	got, err := engine.MonthlyComparison(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, got.Previous.Month)
	assert.True(t, got.Previous.Income.IsZero())
	assert.True(t, got.Changes.IncomeChange.Equal(got.Current.Income.Decimal))
	assert.JSONEq(t, `{
		"current": {"month":"2026-03-01","income":123.45,"expenses":3.45,"net_balance":120},
		"previous": {"month":null,"income":0,"expenses":0,"net_balance":0},
		"changes": {"income_change":123.45,"expenses_change":3.45,"balance_change":120}
	}`, toJSON(t, got))

	empty, err := engine.MonthlyComparison(context.Background(), "nobody")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"current": {"month":null,"income":0,"expenses":0,"net_balance":0},
		"previous": {"month":null,"income":0,"expenses":0,"net_balance":0},
		"changes": {"income_change":0,"expenses_change":0,"balance_change":0}
	}`, toJSON(t, empty))
}

func TestUsersAreIsolated(t *testing.T) {
	engine, store := newTestEngine(t, seedTx{"2026-03-01", -100, "food"})
	addTransactions(t, store, "u2", seedTx{"2026-03-01", -900, "food"})

	got, err := engine.TopCategories(context.Background(), "u1", window(core.PeriodAll), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].TotalSpent.String())
}

func TestRepeatedCallsAreByteIdentical(t *testing.T) {
	engine, _ := newTestEngine(t,
		seedTx{"2026-03-01", -100, "food"},
		seedTx{"2026-03-01", -100, "fuel"},
		seedTx{"2026-03-02", 300, "pay"},
	)
	ctx := context.Background()

	first, err := engine.Dashboard(ctx, "u1", window(core.PeriodMonth))
	require.NoError(t, err)
	second, err := engine.Dashboard(ctx, "u1", window(core.PeriodMonth))
	require.NoError(t, err)
	assert.Equal(t, toJSON(t, first), toJSON(t, second))
}

func TestStoreFailureFailsWholeDashboard(t *testing.T) {
	engine, store := newTestEngine(t, seedTx{"2026-03-01", -100, "food"})
	require.NoError(t, store.Close())

	_, err := engine.Dashboard(context.Background(), "u1", window(core.PeriodMonth))
	assert.Error(t, err)

	_, err = engine.MonthlyComparison(context.Background(), "u1")
	assert.Error(t, err)
}
