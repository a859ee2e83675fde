// Package metrics define los collectors Prometheus del servicio. Vive en su
// propio paquete para que telemetry, services y middlewares los usen sin
// ciclos de import.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/licensegate/internal/licensing"
)

var (
	LicenseValidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "license_validations_total",
		Help: "Validaciones de licencia por outcome",
	}, []string{"outcome"})

	TokenVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "license_token_verifications_total",
		Help: "Verificaciones de credenciales de acceso por resultado (ok|invalid)",
	}, []string{"result"})

	TelemetryDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_events_dropped_total",
		Help: "Eventos de telemetría descartados con la cola llena",
	}, []string{"kind"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo",
	})
)

func init() {
	// Pre-crear las series para que aparezcan en 0.
	for _, o := range licensing.Outcomes {
		LicenseValidations.WithLabelValues(o.String())
	}
	TokenVerifications.WithLabelValues("ok")
	TokenVerifications.WithLabelValues("invalid")
}

// Register registra los collectors en reg (o el default si es nil).
// pool puede ser nil (store en memoria).
func Register(reg prometheus.Registerer, pool func() *pgxpool.Pool) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cs := []prometheus.Collector{
		LicenseValidations, TokenVerifications, TelemetryDropped,
		HTTPRequests, HTTPDuration, HTTPInflight,
	}
	if pool != nil {
		cs = append(cs, newPoolCollector(pool))
	}
	for _, c := range cs {
		if err := register(reg, c); err != nil {
			return err
		}
	}
	return nil
}

// register ignora duplicados.
func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// poolCollector expone gauges del pgxpool.
type poolCollector struct {
	pool         func() *pgxpool.Pool
	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newPoolCollector(pool func() *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired", "Conexiones adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle", "Conexiones inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total", "Conexiones totales", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	p := c.pool()
	if p == nil {
		return
	}
	st := p.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(st.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(st.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(st.TotalConns()))
}
