package http

import (
	"net/http"

	"fintrack/internal/analytics"
	"fintrack/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p := ParseAnalyticsParams(r, analytics.DefaultDashboardPeriod)
	res, err := s.analytics.Dashboard(r.Context(), p.UserID, p.Window)
	if err != nil {
		s.analyticsFailure(w, r, "dashboard", p, err)
		return
	}
	OK(w, res)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	p := ParseAnalyticsParams(r, analytics.DefaultBreakdownPeriod)
	res, err := s.analytics.CategoryBreakdown(r.Context(), p.UserID, p.Window)
	if err != nil {
		s.analyticsFailure(w, r, "category_breakdown", p, err)
		return
	}
	OK(w, res)
}

func (s *Server) handleSpendingTrends(w http.ResponseWriter, r *http.Request) {
	p := ParseAnalyticsParams(r, analytics.DefaultTrendsPeriod)
	res, err := s.analytics.SpendingTrends(r.Context(), p.UserID, p.Window)
	if err != nil {
		s.analyticsFailure(w, r, "trends", p, err)
		return
	}
	OK(w, res)
}

func (s *Server) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	p := ParseAnalyticsParams(r, analytics.DefaultTopPeriod)
	res, err := s.analytics.TopCategories(r.Context(), p.UserID, p.Window, p.Limit)
	if err != nil {
		s.analyticsFailure(w, r, "top_categories", p, err)
		return
	}
	OK(w, res)
}

func (s *Server) handleMonthlyComparison(w http.ResponseWriter, r *http.Request) {
	p := AnalyticsParams{UserID: r.PathValue("userId")}
	res, err := s.analytics.MonthlyComparison(r.Context(), p.UserID)
	if err != nil {
		s.analyticsFailure(w, r, "monthly_comparison", p, err)
		return
	}
	OK(w, res)
}

// analyticsFailure logs the store failure and answers with the generic 500.
func (s *Server) analyticsFailure(w http.ResponseWriter, r *http.Request, view string, p AnalyticsParams, err error) {
	fields := log.NewFields().
		WithOperation(log.OpAggregate).
		WithAnalytics(p.UserID, view, string(p.Window.Period)).
		WithError(err)
	s.requestLogger(r, log.ComponentAnalytics).ErrorContext(r.Context(), "Analytics query failed", fields.ToSlice()...)
	InternalServerError().Write(w)
}
