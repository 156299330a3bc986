package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", 200, 20*time.Millisecond)
	m.ObserveRequest("GET", 200, 30*time.Millisecond)
	m.ObserveRequest("POST", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("POST", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}

func TestObservePageAndTermination(t *testing.T) {
	m := New()
	m.ObservePage("reviews", 2)
	m.ObservePage("reviews", 1)
	m.ObserveTermination("reviews", "end_of_data")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Pages.WithLabelValues("reviews")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Records.WithLabelValues("reviews")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Terminations.WithLabelValues("reviews", "end_of_data")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", 200, time.Millisecond)
		m.ObservePage("catalog", 3)
		m.ObserveTermination("catalog", "failed")
		assert.NoError(t, m.WriteTextfile("unused.prom"))
	})
	assert.Nil(t, m.Registry())
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObservePage("catalog", 5)

	path := filepath.Join(t.TempDir(), "textfile", "brandscraper.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `brandscraper_records_total{phase="catalog"} 5`)
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObservePage("feed", 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Pages.WithLabelValues("feed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Pages.WithLabelValues("feed")))
}
