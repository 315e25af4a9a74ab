package security

import (
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"
	"unicode"

	"fintrack/internal/log"
)

// Finding names the reason a request was flagged.
type Finding string

const (
	FindingUnknownRoute   Finding = "unknown_route"
	FindingTraversal      Finding = "path_traversal"
	FindingMalformedParam Finding = "malformed_path_param"
	FindingMalformedQuery Finding = "malformed_query"
	FindingMethod         Finding = "unsupported_method"
	FindingScanner        Finding = "scanner_agent"
	FindingOversizedURL   Finding = "oversized_url"
)

// Findings lists every reason in reporting order.
var Findings = []Finding{
	FindingUnknownRoute,
	FindingTraversal,
	FindingMalformedParam,
	FindingMalformedQuery,
	FindingMethod,
	FindingScanner,
	FindingOversizedURL,
}

const (
	maxURLLength  = 2048
	maxParamRunes = 128
)

var (
	allowedMethods = map[string]bool{
		http.MethodGet:     true,
		http.MethodHead:    true,
		http.MethodPost:    true,
		http.MethodDelete:  true,
		http.MethodOptions: true,
	}

	// Exact paths served outside /api/.
	probePaths = map[string]bool{"/readyz": true, "/metrics": true}

	scannerAgents = []string{"sqlmap", "nikto", "nmap", "masscan", "zgrab", "gobuster", "dirbuster", "wpscan"}
)

// DetectionMetrics is a snapshot of the detector counters.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
	ByFinding          map[Finding]int64
}

// Detector flags requests that do not fit the API surface and resolves
// client addresses behind trusted proxies.
type Detector struct {
	trustedProxies []netip.Prefix
	logger         *log.Logger

	suspicious atomic.Int64
	invalidIPs atomic.Int64
	// Keys are fixed at construction; only the counters change.
	byFinding map[Finding]*atomic.Int64
}

// NewDetector creates a detector trusting the private and loopback ranges.
func NewDetector(logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.Discard()
	}
	d := &Detector{
		trustedProxies: defaultTrustedProxies,
		logger:         logger.WithComponent(log.ComponentSecurity),
		byFinding:      make(map[Finding]*atomic.Int64, len(Findings)),
	}
	for _, f := range Findings {
		d.byFinding[f] = new(atomic.Int64)
	}
	return d
}

// Inspect reports the first reason r looks like a probe rather than an API
// call, or false when it fits the routes the server exposes.
func (d *Detector) Inspect(r *http.Request) (Finding, bool) {
	f, ok := inspect(r)
	if ok {
		d.suspicious.Add(1)
		d.byFinding[f].Add(1)
	}
	return f, ok
}

func inspect(r *http.Request) (Finding, bool) {
	if !allowedMethods[r.Method] {
		return FindingMethod, true
	}
	if len(r.URL.RequestURI()) > maxURLLength {
		return FindingOversizedURL, true
	}

	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range scannerAgents {
		if strings.Contains(ua, agent) {
			return FindingScanner, true
		}
	}

	path := r.URL.Path
	if strings.Contains(path, "..") || strings.Contains(strings.ToLower(r.URL.EscapedPath()), "%2e%2e") {
		return FindingTraversal, true
	}

	rest, isAPI := strings.CutPrefix(path, "/api/")
	if !isAPI {
		if probePaths[path] {
			return "", false
		}
		return FindingUnknownRoute, true
	}

	for _, seg := range strings.Split(rest, "/") {
		if !validParam(seg) {
			return FindingMalformedParam, true
		}
	}

	// ParseQuery rejects semicolons and bad escapes that Query() drops silently.
	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return FindingMalformedQuery, true
	}
	for _, values := range query {
		for _, v := range values {
			if !validQueryValue(v) {
				return FindingMalformedQuery, true
			}
		}
	}
	return "", false
}

// validParam accepts the user ids, festival names and numeric ids that
// appear as path segments. Empty segments are left to the router.
func validParam(seg string) bool {
	if seg == "" {
		return true
	}
	n := 0
	for _, r := range seg {
		n++
		if n > maxParamRunes {
			return false
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case strings.ContainsRune(" -_.@+:", r):
		default:
			return false
		}
	}
	return true
}

// validQueryValue rejects markup and statement separators in period and
// limit values.
func validQueryValue(v string) bool {
	if len(v) > maxParamRunes {
		return false
	}
	return !strings.ContainsAny(v, "<>'\";`\\") && !strings.ContainsFunc(v, unicode.IsControl)
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	m := DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIPs.Load(),
		ByFinding:          make(map[Finding]int64, len(d.byFinding)),
	}
	for f, c := range d.byFinding {
		m.ByFinding[f] = c.Load()
	}
	return m
}

// Middleware logs flagged requests. They are still routed; unknown paths
// get the router's 404 and malformed parameters fail validation.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f, ok := d.Inspect(r); ok {
			d.logger.WarnContext(r.Context(), "Suspicious request detected",
				"finding", string(f),
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}
