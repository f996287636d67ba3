package scheduler

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Health check names, in execution order
const (
	CheckDatabaseConnectivity    = "DatabaseConnectivity"
	CheckConfigurationValidation = "ConfigurationValidation"
	CheckExternalServicePing     = "ExternalServicePing"
	CheckCacheWarmup             = "CacheWarmup"
	CheckSecurityValidation      = "SecurityValidation"
	CheckFinalReadiness          = "FinalReadiness"
)

// Step is one unit of work inside a check: either a delay or the outbound ping
type Step struct {
	Name  string
	Delay time.Duration
	Ping  bool
}

// Check is a named, ordered list of steps
type Check struct {
	Name  string
	Steps []Step
}

// Plan is the full health check sequence
type Plan []Check

// DefaultPlan returns the reference timings (47s of simulated work)
func DefaultPlan() Plan {
	return Plan{
		{Name: CheckDatabaseConnectivity, Steps: []Step{
			{Name: "opening connection", Delay: 2 * time.Second},
			{Name: "verifying schema", Delay: 3 * time.Second},
			{Name: "testing query round trip", Delay: 1500 * time.Millisecond},
		}},
		{Name: CheckConfigurationValidation, Steps: []Step{
			{Name: "loading settings", Delay: 1 * time.Second},
			{Name: "validating settings", Delay: 2 * time.Second},
			{Name: "resolving secrets", Delay: 1 * time.Second},
		}},
		{Name: CheckExternalServicePing, Steps: []Step{
			{Name: "pinging external service", Ping: true},
			{Name: "recording latency", Delay: 1 * time.Second},
		}},
		{Name: CheckCacheWarmup, Steps: []Step{
			{Name: "loading hot keys", Delay: 5 * time.Second},
			{Name: "priming lookups", Delay: 5 * time.Second},
			{Name: "building indexes", Delay: 5 * time.Second},
			{Name: "verifying cache", Delay: 3 * time.Second},
		}},
		{Name: CheckSecurityValidation, Steps: []Step{
			{Name: "checking certificates", Delay: 3 * time.Second},
			{Name: "verifying permissions", Delay: 4 * time.Second},
			{Name: "auditing policies", Delay: 2500 * time.Millisecond},
		}},
		{Name: CheckFinalReadiness, Steps: []Step{
			{Name: "final verification", Delay: 5 * time.Second},
			{Name: "signalling readiness", Delay: 3 * time.Second},
		}},
	}
}

// Total returns the sum of all step delays
func (p Plan) Total() time.Duration {
	var total time.Duration
	for _, c := range p {
		for _, s := range c.Steps {
			total += s.Delay
		}
	}
	return total
}

// Scale returns a copy with every delay multiplied by factor
func (p Plan) Scale(factor float64) Plan {
	out := make(Plan, len(p))
	for i, c := range p {
		steps := make([]Step, len(c.Steps))
		for j, s := range c.Steps {
			s.Delay = time.Duration(float64(s.Delay) * factor)
			steps[j] = s
		}
		out[i] = Check{Name: c.Name, Steps: steps}
	}
	return out
}

// Overrides replace the delay steps of named checks
type Overrides struct {
	Checks map[string][]time.Duration `yaml:"checks"`
}

// LoadOverrides reads a YAML file such as:
//
//	checks:
//	  CacheWarmup: [1s, 1s, 1s, 500ms]
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("failed to read checks file: %w", err)
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Overrides{}, fmt.Errorf("failed to parse checks yaml: %w", err)
	}
	return o, nil
}

// Apply returns a copy of p with overridden delays. The order and set of
// checks never change; an override must name a known check and give one
// delay per non-ping step.
func (o Overrides) Apply(p Plan) (Plan, error) {
	out := p.Scale(1)
	known := make(map[string]int, len(out))
	for i, c := range out {
		known[c.Name] = i
	}

	for name, delays := range o.Checks {
		i, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("unknown health check %q", name)
		}

		var slots []int
		for j, s := range out[i].Steps {
			if !s.Ping {
				slots = append(slots, j)
			}
		}
		if len(delays) != len(slots) {
			return nil, fmt.Errorf("health check %q has %d timed steps, got %d delays", name, len(slots), len(delays))
		}
		for k, j := range slots {
			if delays[k] < 0 {
				return nil, fmt.Errorf("health check %q: negative delay %v", name, delays[k])
			}
			out[i].Steps[j].Delay = delays[k]
		}
	}
	return out, nil
}

// BuildPlan resolves the plan from the defaults, an optional overrides file and a scale factor
func BuildPlan(checksFile string, scale float64) (Plan, error) {
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("check scale must be a finite number >= 0, got %v", scale)
	}
	plan := DefaultPlan()
	if checksFile != "" {
		o, err := LoadOverrides(checksFile)
		if err != nil {
			return nil, err
		}
		if plan, err = o.Apply(plan); err != nil {
			return nil, err
		}
	}
	return plan.Scale(scale), nil
}
