package localdce

import "github.com/bnb-chain/dexdce/metrics"

var (
	deadCounter        = metrics.NewRegisteredCounter("dce/instructions/dead", nil)
	unreachableCounter = metrics.NewRegisteredCounter("dce/instructions/unreachable", nil)
	npeCounter         = metrics.NewRegisteredCounter("dce/instructions/npe", nil)
	aliasedCounter     = metrics.NewRegisteredCounter("dce/newinstances/aliased", nil)
	normalizedCounter  = metrics.NewRegisteredCounter("dce/newinstances/normalized", nil)
	methodsCounter     = metrics.NewRegisteredCounter("dce/methods", nil)
	batchTimer         = metrics.GetOrRegisterTimer("dce/batch", nil)
)

func publish(st Stats, methods int) {
	deadCounter.Inc(int64(st.DeadInstructions))
	unreachableCounter.Inc(int64(st.UnreachableInstructions))
	npeCounter.Inc(int64(st.NpeInstructions))
	aliasedCounter.Inc(int64(st.AliasedNewInstances))
	normalizedCounter.Inc(int64(st.NormalizedNewInstances))
	methodsCounter.Inc(int64(methods))
}
