// Package metrics exposes a small registry of counters, timers and labels on
// top of go-metrics.
package metrics

import (
	"sort"

	gometrics "github.com/rcrowley/go-metrics"
)

type (
	Registry = gometrics.Registry
	Counter  = gometrics.Counter
	Timer    = gometrics.Timer
)

// DefaultRegistry is used when a nil registry is passed to a constructor.
var DefaultRegistry = gometrics.DefaultRegistry

func NewRegistry() Registry { return gometrics.NewRegistry() }

// NewRegisteredCounter constructs and registers a new Counter.
func NewRegisteredCounter(name string, r Registry) Counter {
	if r == nil {
		r = DefaultRegistry
	}
	return gometrics.NewRegisteredCounter(name, r)
}

// GetOrRegisterCounter returns an existing Counter or constructs and
// registers a new one.
func GetOrRegisterCounter(name string, r Registry) Counter {
	return getOrRegister(name, gometrics.NewCounter, r)
}

// GetOrRegisterTimer returns an existing Timer or constructs and registers a
// new one.
func GetOrRegisterTimer(name string, r Registry) Timer {
	return getOrRegister(name, gometrics.NewTimer, r)
}

func getOrRegister[T any](name string, ctor func() T, r Registry) T {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, func() T { return ctor() }).(T)
}

// Sample is a flattened view of one registered metric.
type Sample struct {
	Name  string
	Kind  string
	Value interface{}
}

// Collect flattens every metric in r, sorted by name.
func Collect(r Registry) []Sample {
	if r == nil {
		r = DefaultRegistry
	}
	var out []Sample
	r.Each(func(name string, m interface{}) {
		switch m := m.(type) {
		case Counter:
			out = append(out, Sample{name, "counter", m.Count()})
		case Timer:
			s := m.Snapshot()
			out = append(out, Sample{name, "timer", s.Mean()})
		default:
			out = append(out, Sample{name, "other", m})
		}
	})
	for name, l := range registeredLabels(r) {
		out = append(out, Sample{name, "label", l.Snapshot().Value()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
