// Package observability holds the Prometheus collectors and OpenTelemetry
// tracing setup for simulation runs.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngagementCollector bundles Prometheus metrics for the simulation loop and
// the interceptors it flies. Its methods are safe on a nil receiver.
type EngagementCollector struct {
	gatherer prometheus.Gatherer

	Ticks        prometheus.Counter
	StepDuration prometheus.Histogram
	TargetsAlive prometheus.Gauge
	SimTime      prometheus.Gauge

	InterceptorsLaunched prometheus.Counter
	InterceptorOutcomes  *prometheus.CounterVec
	DampingIterations    prometheus.Histogram
}

// NewEngagementCollector registers engagement metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewEngagementCollector(reg prometheus.Registerer) (*EngagementCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Total number of simulation ticks executed.",
	}), "sim_ticks_total")
	if err != nil {
		return nil, err
	}

	step, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall-clock duration of a single simulation tick.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	alive, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_targets_alive",
		Help: "Current number of registered bodies still flying.",
	}), "sim_targets_alive")
	if err != nil {
		return nil, err
	}

	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_time_seconds",
		Help: "Current simulation time.",
	}), "sim_time_seconds")
	if err != nil {
		return nil, err
	}

	launched, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interceptors_launched_total",
		Help: "Total number of interceptors launched.",
	}), "interceptors_launched_total")
	if err != nil {
		return nil, err
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "interceptor_outcomes_total",
		Help: "Terminal interceptor outcomes, labeled by outcome.",
	}, []string{"outcome"})
	outcomes, err = registerCounterVec(reg, outcomes, "interceptor_outcomes_total")
	if err != nil {
		return nil, err
	}

	damping, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "interceptor_damping_iterations",
		Help:    "Number of G-limit damping iterations per interceptor tick.",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
	}), "interceptor_damping_iterations")
	if err != nil {
		return nil, err
	}

	return &EngagementCollector{
		gatherer:             gatherer,
		Ticks:                ticks,
		StepDuration:         step,
		TargetsAlive:         alive,
		SimTime:              simTime,
		InterceptorsLaunched: launched,
		InterceptorOutcomes:  outcomes,
		DampingIterations:    damping,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *EngagementCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick records one simulation tick.
func (c *EngagementCollector) ObserveTick(now, wall time.Duration, alive int) {
	if c == nil {
		return
	}
	if c.Ticks != nil {
		c.Ticks.Inc()
	}
	if c.StepDuration != nil {
		c.StepDuration.Observe(wall.Seconds())
	}
	if c.TargetsAlive != nil {
		c.TargetsAlive.Set(float64(alive))
	}
	if c.SimTime != nil {
		c.SimTime.Set(now.Seconds())
	}
}

// InterceptorLaunched increments the launch counter.
func (c *EngagementCollector) InterceptorLaunched() {
	if c == nil || c.InterceptorsLaunched == nil {
		return
	}
	c.InterceptorsLaunched.Inc()
}

// InterceptorFinished counts a terminal outcome.
func (c *EngagementCollector) InterceptorFinished(outcome string) {
	if c == nil || c.InterceptorOutcomes == nil {
		return
	}
	c.InterceptorOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveDamping records the damping iterations of one interceptor tick.
func (c *EngagementCollector) ObserveDamping(iterations int) {
	if c == nil || c.DampingIterations == nil {
		return
	}
	c.DampingIterations.Observe(float64(iterations))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
