package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExposed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)

	m.SearchQueriesTotal.WithLabelValues("hit").Inc()
	m.SearchQueriesTotal.WithLabelValues("hit").Inc()
	m.DocsIndexedTotal.Add(4)
	m.IndexDocuments.Set(4)

	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")); got != 2 {
		t.Errorf("search_queries_total{hit} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.DocsIndexedTotal); got != 4 {
		t.Errorf("docs_indexed_total = %v, want 4", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"search_queries_total", "docs_indexed_total", "index_documents"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("scrape output missing %s", name)
		}
	}
}

func TestNewWithRegistryIsolated(t *testing.T) {
	// Two independent registries must not panic on duplicate registration.
	NewWithRegistry(prometheus.NewRegistry(), prometheus.NewRegistry())
	NewWithRegistry(prometheus.NewRegistry(), prometheus.NewRegistry())
}
