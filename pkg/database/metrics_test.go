package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectDescs(t *testing.T, c prometheus.Collector) []string {
	t.Helper()

	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	return names
}

func TestPoolCollector_DescribesAllMetrics(t *testing.T) {
	// Describe does not touch the pool, so a nil pool is fine here.
	c := newPoolCollector(nil, "backend")
	require.Equal(t, "backend", c.service)

	descs := collectDescs(t, c)
	assert.Len(t, descs, 12)
}

func TestPoolCollector_MetricNames(t *testing.T) {
	c := newPoolCollector(nil, "backend")
	descs := collectDescs(t, c)

	expected := []string{
		"pgx_pool_acquired_connections",
		"pgx_pool_idle_connections",
		"pgx_pool_total_connections",
		"pgx_pool_max_connections",
		"pgx_pool_constructing_connections",
		"pgx_pool_acquire_total",
		"pgx_pool_acquire_wait_seconds_total",
		"pgx_pool_acquire_canceled_total",
		"pgx_pool_acquire_empty_total",
		"pgx_pool_connections_opened_total",
		"pgx_pool_max_lifetime_closed_total",
		"pgx_pool_max_idle_closed_total",
	}

	for _, name := range expected {
		found := false
		for _, desc := range descs {
			if strings.Contains(desc, name) {
				found = true
				break
			}
		}
		assert.True(t, found, "missing descriptor %q", name)
	}
}

func TestPoolCollector_ImplementsCollector(t *testing.T) {
	var _ prometheus.Collector = newPoolCollector(nil, "backend")
}
