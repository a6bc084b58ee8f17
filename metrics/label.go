package metrics

import (
	"maps"
	"sync"
)

// LabelValue is a mapping of keys to values
type LabelValue map[string]any

// LabelSnapshot is a read-only copy of a Label.
type LabelSnapshot LabelValue

// Value returns the value at the time the snapshot was taken.
func (l LabelSnapshot) Value() LabelValue { return LabelValue(l) }

// Label holds string-keyed run parameters, such as the effective
// configuration of an optimizer run.
type Label struct {
	value LabelValue

	mutex sync.Mutex
}

// go-metrics registries only accept their own metric kinds, so labels are
// tracked alongside the registry they were registered with.
var labels = struct {
	sync.Mutex
	byRegistry map[Registry]map[string]*Label
}{byRegistry: make(map[Registry]map[string]*Label)}

// GetOrRegisterLabel returns an existing Label or constructs and registers a
// new Label.
func GetOrRegisterLabel(name string, r Registry) *Label {
	if r == nil {
		r = DefaultRegistry
	}
	labels.Lock()
	defer labels.Unlock()
	named, ok := labels.byRegistry[r]
	if !ok {
		named = make(map[string]*Label)
		labels.byRegistry[r] = named
	}
	if l, ok := named[name]; ok {
		return l
	}
	l := NewLabel()
	named[name] = l
	return l
}

func registeredLabels(r Registry) map[string]*Label {
	labels.Lock()
	defer labels.Unlock()
	return maps.Clone(labels.byRegistry[r])
}

// NewLabel constructs a new Label.
func NewLabel() *Label {
	return &Label{value: make(map[string]any)}
}

// Snapshot returns a copy of the current label values.
func (l *Label) Snapshot() *LabelSnapshot {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	snapshot := LabelSnapshot(maps.Clone(l.value))
	return &snapshot
}

// Mark records the label.
func (l *Label) Mark(value map[string]interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	maps.Copy(l.value, value)
}
