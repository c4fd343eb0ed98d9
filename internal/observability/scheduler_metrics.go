package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DetectorCollector exposes detector scan and tracking metrics, labeled by
// detector ID.
type DetectorCollector struct {
	gatherer prometheus.Gatherer

	Scans               *prometheus.CounterVec
	ScanDuration        prometheus.Histogram
	Tracks              *prometheus.GaugeVec
	TracksDropped       *prometheus.CounterVec
	InterceptorsCreated *prometheus.CounterVec
}

// NewDetectorCollector registers detector metrics against the provided registerer.
func NewDetectorCollector(reg prometheus.Registerer) (*DetectorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	scans, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detector_scans_total",
		Help: "Total number of radar scans performed.",
	}, []string{"detector"}), "detector_scans_total")
	if err != nil {
		return nil, err
	}

	scanHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "detector_scan_duration_seconds",
		Help:    "Wall-clock duration of a scan including track association and engagement.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})
	scanHistogram, err = registerHistogram(reg, scanHistogram, "detector_scan_duration_seconds")
	if err != nil {
		return nil, err
	}

	tracks, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "detector_tracks",
		Help: "Number of targets tracked after the latest scan.",
	}, []string{"detector"}), "detector_tracks")
	if err != nil {
		return nil, err
	}

	dropped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detector_tracks_dropped_total",
		Help: "Tracks lost between scans whose interceptor was destroyed.",
	}, []string{"detector"}), "detector_tracks_dropped_total")
	if err != nil {
		return nil, err
	}

	created, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detector_interceptors_assigned_total",
		Help: "Interceptors created and assigned to a track.",
	}, []string{"detector"}), "detector_interceptors_assigned_total")
	if err != nil {
		return nil, err
	}

	return &DetectorCollector{
		gatherer:            gatherer,
		Scans:               scans,
		ScanDuration:        scanHistogram,
		Tracks:              tracks,
		TracksDropped:       dropped,
		InterceptorsCreated: created,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *DetectorCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveScan records a completed scan.
func (c *DetectorCollector) ObserveScan(detector string, d time.Duration, tracks int) {
	if c == nil {
		return
	}
	if c.Scans != nil {
		c.Scans.WithLabelValues(detector).Inc()
	}
	if c.ScanDuration != nil {
		c.ScanDuration.Observe(d.Seconds())
	}
	if c.Tracks != nil {
		c.Tracks.WithLabelValues(detector).Set(float64(tracks))
	}
}

// TrackDropped increments the dropped-track counter.
func (c *DetectorCollector) TrackDropped(detector string) {
	if c == nil || c.TracksDropped == nil {
		return
	}
	c.TracksDropped.WithLabelValues(detector).Inc()
}

// InterceptorAssigned increments the assignment counter.
func (c *DetectorCollector) InterceptorAssigned(detector string) {
	if c == nil || c.InterceptorsCreated == nil {
		return
	}
	c.InterceptorsCreated.WithLabelValues(detector).Inc()
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
