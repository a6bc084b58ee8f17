package log

import (
	"sync/atomic"

	"golang.org/x/exp/slog"
)

// LoggerFilter is used to print log when check func returns true.
type LoggerFilter interface {
	check() bool
}

// EveryN lets every N-th call through. A nil or zero EveryN lets all calls
// through.
type EveryN struct {
	N       uint32
	counter atomic.Uint32
}

func NewEveryN(n uint32) *EveryN {
	return &EveryN{N: n}
}

func (e *EveryN) check() bool {
	if e == nil || e.N == 0 {
		return true
	}
	return e.counter.Add(1)%e.N == 0
}

// Count is the number of calls seen so far.
func (e *EveryN) Count() uint32 {
	if e == nil {
		return 0
	}
	return e.counter.Load()
}

var _ LoggerFilter = &EveryN{}

type ifCondition bool

func (i ifCondition) check() bool { return bool(i) }

var _ LoggerFilter = ifCondition(false)

func writeBy(filter LoggerFilter, level slog.Level, msg string, ctx []interface{}) {
	if filter == nil || filter.check() {
		Root().Write(level, msg, ctx...)
	}
}

func DebugBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, slog.LevelDebug, msg, ctx)
}

func InfoIf(condition bool, msg string, ctx ...interface{}) {
	writeBy(ifCondition(condition), slog.LevelInfo, msg, ctx)
}
