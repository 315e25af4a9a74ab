package storage

import (
	"fmt"
	"strconv"

	"fintrack/internal/core"
)

// Dialect captures the SQL differences between the supported backends.
// Bucket expressions always yield YYYY-MM-DD text so rows scan the same
// way everywhere.
type Dialect struct {
	Name string
	// DriverName is the database/sql driver used for queries.
	DriverName string
	// MigrationDriverName is the database/sql driver used by migrations.
	MigrationDriverName string
	// Returning reports support for INSERT ... RETURNING.
	Returning bool

	placeholder func(n int) string
	day         func(col string) string
	week        func(col string) string
	month       func(col string) string
}

var (
	SQLite = Dialect{
		Name:                "sqlite",
		DriverName:          "sqlite",
		MigrationDriverName: "sqlite",
		placeholder:         func(int) string { return "?" },
		day:                 func(col string) string { return "date(" + col + ")" },
		// strftime('%w') is 0 for Sunday; weeks start on Monday.
		week: func(col string) string {
			return "date(" + col + ", '-' || ((CAST(strftime('%w', " + col + ") AS INTEGER) + 6) % 7) || ' days')"
		},
		month: func(col string) string { return "date(" + col + ", 'start of month')" },
	}

	Postgres = Dialect{
		Name:                "postgres",
		DriverName:          "pgx",
		MigrationDriverName: "postgres",
		Returning:           true,
		placeholder:         func(n int) string { return "$" + strconv.Itoa(n) },
		day:                 func(col string) string { return "to_char(" + col + "::timestamp, 'YYYY-MM-DD')" },
		week:                func(col string) string { return "to_char(date_trunc('week', " + col + "::timestamp), 'YYYY-MM-DD')" },
		month:               func(col string) string { return "to_char(date_trunc('month', " + col + "::timestamp), 'YYYY-MM-DD')" },
	}

	MySQL = Dialect{
		Name:                "mysql",
		DriverName:          "mysql",
		MigrationDriverName: "mysql",
		placeholder:         func(int) string { return "?" },
		day:                 func(col string) string { return "DATE_FORMAT(" + col + ", '%Y-%m-%d')" },
		week: func(col string) string {
			return "DATE_FORMAT(DATE_SUB(" + col + ", INTERVAL WEEKDAY(" + col + ") DAY), '%Y-%m-%d')"
		},
		month: func(col string) string { return "DATE_FORMAT(" + col + ", '%Y-%m-01')" },
	}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case SQLite.Name:
		return SQLite, nil
	case Postgres.Name:
		return Postgres, nil
	case MySQL.Name:
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported dialect: %s", name)
	}
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

// Bucket returns a text expression truncating col to the given granularity.
func (d Dialect) Bucket(g core.Granularity, col string) string {
	switch g {
	case core.GranularityWeek:
		return d.week(col)
	case core.GranularityMonth:
		return d.month(col)
	default:
		return d.day(col)
	}
}

// DateArg encodes a calendar day as a query argument. Every backend
// accepts the ISO text form for a DATE column.
func (d Dialect) DateArg(day core.Date) any {
	return day.String()
}

// Args accumulates positional arguments and hands out matching placeholders.
type Args struct {
	dialect Dialect
	values  []any
}

func NewArgs(d Dialect) *Args {
	return &Args{dialect: d}
}

// Add appends v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.values = append(a.values, v)
	return a.dialect.Placeholder(len(a.values))
}

func (a *Args) Values() []any {
	return a.values
}
