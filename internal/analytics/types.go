package analytics

import "fintrack/internal/core"

type (
	// CategoryBreakdown is one expense category within a window.
	// TotalAmount and AvgAmount keep the negative sign of expenses.
	CategoryBreakdown struct {
		Category         string      `json:"category"`
		TransactionCount int64       `json:"transaction_count"`
		TotalAmount      core.Number `json:"total_amount"`
		AvgAmount        core.Number `json:"avg_amount"`
	}

	// TrendPoint is one bucket of the spending trend series.
	TrendPoint struct {
		Period     string      `json:"period"`
		Income     core.Number `json:"income"`
		Expenses   core.Number `json:"expenses"`
		NetBalance core.Number `json:"net_balance"`
	}

	TopCategory struct {
		Category         string      `json:"category"`
		TransactionCount int64       `json:"transaction_count"`
		TotalSpent       core.Number `json:"total_spent"`
	}

	// MonthTotals is one side of the month-over-month comparison.
	// Month is nil when the month had no activity.
	MonthTotals struct {
		Month      *string     `json:"month"`
		Income     core.Number `json:"income"`
		Expenses   core.Number `json:"expenses"`
		NetBalance core.Number `json:"net_balance"`
	}

	Changes struct {
		IncomeChange   core.Number `json:"income_change"`
		ExpensesChange core.Number `json:"expenses_change"`
		BalanceChange  core.Number `json:"balance_change"`
	}

	MonthlyComparison struct {
		Current  MonthTotals `json:"current"`
		Previous MonthTotals `json:"previous"`
		Changes  Changes     `json:"changes"`
	}

	// DashboardCategory ranks expense categories by absolute spend.
	DashboardCategory struct {
		Category         string      `json:"category"`
		TransactionCount int64       `json:"transaction_count"`
		TotalSpent       core.Number `json:"total_spent"`
	}

	// DashboardTrend is a daily bucket of the dashboard series.
	DashboardTrend struct {
		Date     string      `json:"date"`
		Income   core.Number `json:"income"`
		Expenses core.Number `json:"expenses"`
	}

	DashboardTopCategory struct {
		Category   string      `json:"category"`
		TotalSpent core.Number `json:"total_spent"`
	}

	// DashboardSummary is folded from the trend series.
	// TransactionCount is the number of active days, not of transactions.
	DashboardSummary struct {
		TotalIncome      core.Number `json:"total_income"`
		TotalExpenses    core.Number `json:"total_expenses"`
		NetBalance       core.Number `json:"net_balance"`
		TransactionCount int         `json:"transaction_count"`
	}

	Dashboard struct {
		Period            core.Period            `json:"period"`
		Summary           DashboardSummary       `json:"summary"`
		CategoryBreakdown []DashboardCategory    `json:"category_breakdown"`
		Trends            []DashboardTrend       `json:"trends"`
		TopCategories     []DashboardTopCategory `json:"top_categories"`
	}
)
