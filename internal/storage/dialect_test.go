package storage

import (
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestDialectFor(t *testing.T) {
	for _, name := range []string{"sqlite", "postgres", "mysql"} {
		d, err := DialectFor(name)
		if err != nil {
			t.Fatalf("DialectFor(%q) error = %v", name, err)
		}
		if d.Name != name {
			t.Errorf("DialectFor(%q).Name = %q", name, d.Name)
		}
	}
	if _, err := DialectFor("mssql"); err == nil {
		t.Error("DialectFor(mssql) should fail")
	}
}

func TestArgsPlaceholders(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{SQLite, "? ?"},
		{MySQL, "? ?"},
		{Postgres, "$1 $2"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name, func(t *testing.T) {
			a := NewArgs(tt.dialect)
			got := a.Add("x") + " " + a.Add(2)
			if got != tt.want {
				t.Errorf("placeholders = %q, want %q", got, tt.want)
			}
			if len(a.Values()) != 2 {
				t.Errorf("Values() len = %d, want 2", len(a.Values()))
			}
		})
	}
}

func TestBucketExpressions(t *testing.T) {
	tests := []struct {
		dialect Dialect
		g       core.Granularity
		contain string
	}{
		{SQLite, core.GranularityDay, "date(created_at)"},
		{SQLite, core.GranularityMonth, "start of month"},
		{Postgres, core.GranularityWeek, "date_trunc('week'"},
		{Postgres, core.GranularityMonth, "date_trunc('month'"},
		{MySQL, core.GranularityWeek, "WEEKDAY(created_at)"},
		{MySQL, core.GranularityMonth, "'%Y-%m-01'"},
	}
	for _, tt := range tests {
		got := tt.dialect.Bucket(tt.g, "created_at")
		if !strings.Contains(got, tt.contain) {
			t.Errorf("%s.Bucket(%s) = %q, want it to contain %q", tt.dialect.Name, tt.g, got, tt.contain)
		}
	}
}
