package githubapi

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateHeader(limit, used, remaining string, reset int64) http.Header {
	h := http.Header{}
	h.Set(headerRateLimit, limit)
	h.Set(headerRateUsed, used)
	h.Set(headerRateRemaining, remaining)
	h.Set(headerRateReset, strconv.FormatInt(reset, 10))
	return h
}

func TestRateMonitor_Observe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		header      http.Header
		wantWarning bool
	}{
		{
			name:        "plenty of headroom",
			header:      rateHeader("5000", "10", "4990", 1700000000),
			wantWarning: false,
		},
		{
			name:        "below threshold",
			header:      rateHeader("5000", "4995", "5", 1700000000),
			wantWarning: true,
		},
		{
			name:        "exactly at threshold",
			header:      rateHeader("5000", "4990", "10", 1700000000),
			wantWarning: false,
		},
		{
			name:        "no rate headers",
			header:      http.Header{},
			wantWarning: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewRateMonitor(10, nil)
			w := m.Observe(tt.header)
			if !tt.wantWarning {
				assert.Nil(t, w)
				return
			}
			require.NotNil(t, w)
			assert.Equal(t, 4995, w.Used)
			assert.Equal(t, 5000, w.Limit)
			assert.Equal(t, 5, w.Remaining)
			assert.Equal(t, int64(1700000000), w.Reset.Unix())
		})
	}
}

func TestRateMonitor_LastSnapshot(t *testing.T) {
	t.Parallel()

	m := NewRateMonitor(0, nil)
	_, ok := m.Last()
	assert.False(t, ok)

	m.ObserveAndWarn(rateHeader("60", "59", "1", 1700000000))
	m.ObserveAndWarn(http.Header{})

	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, 1, last.Remaining, "responses without headers keep the previous snapshot")
}
