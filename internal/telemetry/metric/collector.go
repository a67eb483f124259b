package metric

import "github.com/prometheus/client_golang/prometheus"

// Source supplies point-in-time keyspace and persistence figures.
type Source interface {
	Keys() int
	Expires() int
	ExpiredKeys() uint64
	AOFWrittenBytes() uint64
}

// Collector exports a Source as Prometheus metrics at scrape time.
type Collector struct {
	src Source

	keys        *prometheus.Desc
	expires     *prometheus.Desc
	expiredKeys *prometheus.Desc
	aofWritten  *prometheus.Desc
}

// NewCollector creates a collector over src.
func NewCollector(src Source) *Collector {
	c := &Collector{src: src}
	c.keys = prometheus.NewDesc(namespace+"_keys", "Keys in the keyspace.", nil, nil)
	c.expires = prometheus.NewDesc(namespace+"_keys_with_expiry", "Keys carrying a TTL.", nil, nil)
	c.expiredKeys = prometheus.NewDesc(namespace+"_expired_keys_total",
		"Keys removed because their TTL elapsed.", nil, nil)
	c.aofWritten = prometheus.NewDesc(namespace+"_aof_written_bytes_total",
		"Bytes appended to the append-only log.", nil, nil)
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.expires
	ch <- c.expiredKeys
	ch <- c.aofWritten
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(c.src.Keys()))
	ch <- prometheus.MustNewConstMetric(c.expires, prometheus.GaugeValue, float64(c.src.Expires()))
	ch <- prometheus.MustNewConstMetric(c.expiredKeys, prometheus.CounterValue, float64(c.src.ExpiredKeys()))
	ch <- prometheus.MustNewConstMetric(c.aofWritten, prometheus.CounterValue, float64(c.src.AOFWrittenBytes()))
}
