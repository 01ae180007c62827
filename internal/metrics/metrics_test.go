package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithNamespace("test"))

	c.ConnectionOpened()
	c.ConnectionOpened()
	c.ConnectionClosed()
	c.Echoed(19)
	c.ConnectionError("timed out")
	c.ShutdownSignal("lagged")
	c.GoodbyeSent()
	c.AcceptError()
	c.JoinError()
	c.Drained(10 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.accepted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.active))
	assert.Equal(t, 19.0, testutil.ToFloat64(c.echoedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connErrors.WithLabelValues("timed out")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.connErrors.WithLabelValues("reset")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.signals.WithLabelValues("lagged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.goodbyes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.acceptErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.joinErrors))

	n, err := testutil.GatherAndCount(reg, "test_drain_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ConnectionOpened()
		c.ConnectionClosed()
		c.ConnectionError("reset")
		c.AcceptError()
		c.Echoed(1)
		c.GoodbyeSent()
		c.ShutdownSignal("observed")
		c.JoinError()
		c.Drained(time.Second)
	})
}
