package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_IngestLifecycle(t *testing.T) {
	m := New()

	m.StartIngest()
	m.FinishIngest("ingested", 50*time.Millisecond, nil)
	m.StartIngest()
	m.FinishIngest("ingested", time.Millisecond, errors.New("boom"))

	body := scrape(t, m)
	assert.Contains(t, body, `casekb_ingest_files_total{status="ingested"} 1`)
	assert.Contains(t, body, `casekb_ingest_files_total{status="error"} 1`)
	assert.Contains(t, body, "casekb_ingest_in_flight 0")
}

func TestMetrics_Query(t *testing.T) {
	m := New()

	m.ObserveQuery("hybrid", 5*time.Millisecond, false)
	m.ObserveQuery("hybrid", 5*time.Millisecond, true)
	m.SetDocumentCount(42)

	body := scrape(t, m)
	assert.Contains(t, body, `casekb_query_requests_total{mode="hybrid"} 2`)
	assert.Contains(t, body, "casekb_query_degraded_total 1")
	assert.Contains(t, body, "casekb_store_documents 42")
}
