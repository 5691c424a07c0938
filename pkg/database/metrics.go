package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolCollector exports pgxpool statistics to Prometheus. Gauges reflect the
// pool at scrape time, counters are cumulative since the pool was created.
type poolCollector struct {
	pool    *pgxpool.Pool
	service string

	gauges   []poolMetric
	counters []poolMetric
}

type poolMetric struct {
	desc  *prometheus.Desc
	value func(*pgxpool.Stat) float64
}

func poolDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc("pgx_pool_"+name, help, []string{"service"}, nil)
}

func newPoolCollector(pool *pgxpool.Pool, service string) *poolCollector {
	return &poolCollector{
		pool:    pool,
		service: service,
		gauges: []poolMetric{
			{poolDesc("acquired_connections", "Connections currently checked out of the pool"),
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }},
			{poolDesc("idle_connections", "Connections currently idle in the pool"),
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }},
			{poolDesc("total_connections", "Total connections held by the pool"),
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }},
			{poolDesc("max_connections", "Configured connection ceiling"),
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }},
			{poolDesc("constructing_connections", "Connections currently being established"),
				func(s *pgxpool.Stat) float64 { return float64(s.ConstructingConns()) }},
		},
		counters: []poolMetric{
			{poolDesc("acquire_total", "Connection acquires since startup"),
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }},
			{poolDesc("acquire_wait_seconds_total", "Cumulative time spent waiting on acquires"),
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }},
			{poolDesc("acquire_canceled_total", "Acquires canceled before a connection was handed out"),
				func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }},
			{poolDesc("acquire_empty_total", "Acquires that found no idle connection and had to wait"),
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }},
			{poolDesc("connections_opened_total", "New connections established since startup"),
				func(s *pgxpool.Stat) float64 { return float64(s.NewConnsCount()) }},
			{poolDesc("max_lifetime_closed_total", "Connections closed for exceeding their max lifetime"),
				func(s *pgxpool.Stat) float64 { return float64(s.MaxLifetimeDestroyCount()) }},
			{poolDesc("max_idle_closed_total", "Connections closed for sitting idle too long"),
				func(s *pgxpool.Stat) float64 { return float64(s.MaxIdleDestroyCount()) }},
		},
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.gauges {
		ch <- m.desc
	}
	for _, m := range c.counters {
		ch <- m.desc
	}
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	for _, m := range c.gauges {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.GaugeValue, m.value(stat), c.service)
	}
	for _, m := range c.counters {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.CounterValue, m.value(stat), c.service)
	}
}

// RegisterPoolMetrics registers a collector for the pool's statistics with the
// default Prometheus registry, labeled with the owning service name.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) {
	prometheus.MustRegister(newPoolCollector(pool, service))
}
