package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	r := NewRegistry()
	c := NewRegisteredCounter("dce/test", r)
	c.Inc(2)
	same := GetOrRegisterCounter("dce/test", r)
	same.Inc(3)
	assert.Equal(t, int64(5), c.Count())

	GetOrRegisterTimer("dce/time", r)
	l := GetOrRegisterLabel("dce/config", r)
	l.Mark(map[string]interface{}{"workers": 4})
	assert.Same(t, l, GetOrRegisterLabel("dce/config", r))

	samples := Collect(r)
	require.Len(t, samples, 3)
	assert.Equal(t, Sample{"dce/config", "label", LabelValue{"workers": 4}}, samples[0])
	assert.Equal(t, Sample{"dce/test", "counter", int64(5)}, samples[1])
	assert.Equal(t, "timer", samples[2].Kind)
}

func TestLabelSnapshotIsolated(t *testing.T) {
	l := NewLabel()
	l.Mark(map[string]interface{}{"a": 1})
	snap := l.Snapshot()
	l.Mark(map[string]interface{}{"a": 2, "b": 3})
	assert.Equal(t, LabelValue{"a": 1}, snap.Value())
	assert.Len(t, l.Snapshot().Value(), 2)
}
