package analytics

import (
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// DefaultTopLimit is used when the requested limit is missing or unusable.
const DefaultTopLimit = 5

// Default period per view when the caller sends none.
const (
	DefaultBreakdownPeriod = core.PeriodAll
	DefaultTrendsPeriod    = core.PeriodMonth
	DefaultTopPeriod       = core.PeriodAll
	DefaultDashboardPeriod = core.PeriodMonth
)

// WindowFor resolves a period query value. present reports whether the
// caller sent the parameter at all; only an absent parameter takes the
// view default, any other unknown token widens to "all".
func WindowFor(raw string, present bool, def core.Period) core.Window {
	if !present {
		return core.ResolveWindow(string(def))
	}
	return core.ResolveWindow(raw)
}

// ParseLimit reads the leading integer of raw, so "7", " 7" and "7abc"
// all give 7. Anything without a positive leading integer gives
// DefaultTopLimit.
func ParseLimit(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return DefaultTopLimit
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return DefaultTopLimit
	}
	return n
}
