package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(chainTxs.WithLabelValues("close", "failed"))
	ChainTx("close", false)
	require.Equal(t, before+1, testutil.ToFloat64(chainTxs.WithLabelValues("close", "failed")))

	FrameReceived("transfer")
	require.GreaterOrEqual(t, testutil.ToFloat64(framesReceived.WithLabelValues("transfer")), 1.0)

	w := testutil.ToFloat64(waitersPending)
	WaiterAdded()
	WaiterRemoved()
	require.Equal(t, w, testutil.ToFloat64(waitersPending))
}
