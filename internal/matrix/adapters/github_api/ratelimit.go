package githubapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

// DefaultRateLimitThreshold is the remaining-call count below which a warning
// is raised.
const DefaultRateLimitThreshold = 10

const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateUsed      = "X-RateLimit-Used"
	headerRateReset     = "X-RateLimit-Reset"
)

// RateMonitor inspects quota headers on responses. It only remembers the
// last snapshot it saw and never blocks or retries.
type RateMonitor struct {
	threshold int
	logger    *slog.Logger
	last      atomic.Pointer[domain.RateLimitWarning]
}

// NewRateMonitor creates a monitor warning below threshold remaining calls.
func NewRateMonitor(threshold int, logger *slog.Logger) *RateMonitor {
	if threshold <= 0 {
		threshold = DefaultRateLimitThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateMonitor{threshold: threshold, logger: logger}
}

// Observe records the quota carried by h and returns a warning when the
// remaining count is below the threshold. Responses without quota headers
// are ignored.
func (m *RateMonitor) Observe(h http.Header) *domain.RateLimitWarning {
	remaining, err := strconv.Atoi(h.Get(headerRateRemaining))
	if err != nil {
		return nil
	}
	snapshot := domain.RateLimitWarning{
		Used:      headerInt(h, headerRateUsed),
		Limit:     headerInt(h, headerRateLimit),
		Remaining: remaining,
		Reset:     time.Unix(int64(headerInt(h, headerRateReset)), 0),
	}
	m.last.Store(&snapshot)

	if remaining >= m.threshold {
		return nil
	}
	return &snapshot
}

// ObserveAndWarn is Observe followed by logging any warning.
func (m *RateMonitor) ObserveAndWarn(h http.Header) {
	if w := m.Observe(h); w != nil {
		m.logger.Warn("github api rate limit running low",
			"used", w.Used,
			"limit", w.Limit,
			"remaining", w.Remaining,
			"reset", w.Reset,
		)
	}
}

// Last returns the most recent quota snapshot.
func (m *RateMonitor) Last() (domain.RateLimitWarning, bool) {
	p := m.last.Load()
	if p == nil {
		return domain.RateLimitWarning{}, false
	}
	return *p, true
}

func headerInt(h http.Header, key string) int {
	v, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return 0
	}
	return v
}
