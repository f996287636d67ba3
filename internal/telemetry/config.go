package telemetry

import (
	"fmt"
	"strings"
)

const (
	// DefaultServiceName is reported as service.name
	DefaultServiceName = "warmup"
	// DefaultEndpoint is the OTLP HTTP collector endpoint
	DefaultEndpoint = "localhost:4318"
	// DefaultSamplingRatio samples every trace
	DefaultSamplingRatio = 1.0
)

// Metrics exporters
const (
	MetricsPrometheus = "prometheus"
	MetricsOTLP       = "otlp"
	MetricsOff        = "off"
)

// Config selects exporters for metrics and traces
type Config struct {
	ServiceName    string
	ServiceVersion string
	Metrics        string  // prometheus, otlp or off
	Tracing        bool    // export spans over OTLP HTTP
	Endpoint       string  // OTLP collector host:port
	Insecure       bool    // plain HTTP to the collector
	SamplingRatio  float64 // 0..1
}

// Validate checks exporter names and ratios
func (c *Config) Validate() error {
	switch strings.ToLower(c.Metrics) {
	case MetricsPrometheus, MetricsOTLP, MetricsOff, "":
	default:
		return fmt.Errorf("unknown metrics exporter %q (want prometheus, otlp or off)", c.Metrics)
	}
	if !(c.SamplingRatio >= 0 && c.SamplingRatio <= 1) {
		return fmt.Errorf("sampling ratio must be in [0,1], got %v", c.SamplingRatio)
	}
	if (c.Tracing || strings.EqualFold(c.Metrics, MetricsOTLP)) && c.GetEndpoint() == "" {
		return fmt.Errorf("OTLP endpoint is required")
	}
	return nil
}

// GetServiceName returns the service name or the default
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the version or "unknown"
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the collector endpoint or the default
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio, defaulting to 1
func (c *Config) GetSampling() float64 {
	if c.SamplingRatio == 0 {
		return DefaultSamplingRatio
	}
	return c.SamplingRatio
}

func (c *Config) metricsMode() string {
	m := strings.ToLower(c.Metrics)
	if m == "" {
		return MetricsOff
	}
	return m
}
