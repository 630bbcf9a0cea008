package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOp(t *testing.T) {
	c := NewCollector()

	c.RecordOp(htlc.OpWithdraw, nil)
	c.RecordOp(htlc.OpWithdraw, nil)
	c.RecordOp(htlc.OpWithdraw, htlc.ErrExpired)
	c.RecordOp(htlc.OpRefund, errors.New("disk full"))

	assert.Equal(t, float64(2), testutil.ToFloat64(c.operations.WithLabelValues(htlc.OpWithdraw, SuccessLabel)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.operations.WithLabelValues(htlc.OpWithdraw, htlc.KindTiming)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.operations.WithLabelValues(htlc.OpRefund, htlc.KindInternal)))
}

func TestRun(t *testing.T) {
	c := NewCollector()
	ch := make(chan *htlc.Event, 3)
	ch <- &htlc.Event{Kind: htlc.EventContractCreated}
	ch <- &htlc.Event{Kind: htlc.EventContractCreated}
	ch <- &htlc.Event{Kind: htlc.EventContractRefunded}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- c.Run(ctx, ch) }()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(c.events.WithLabelValues(string(htlc.EventContractCreated))) == 2 &&
			testutil.ToFloat64(c.events.WithLabelValues(string(htlc.EventContractRefunded))) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRegistryGathers(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest("GET", "/hello", "200", time.Millisecond)
	c.RecordOp(htlc.OpNewContract, nil)

	families, err := c.Registry().Gather()
	assert.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["htlc_operations_total"])
	assert.True(t, names["htlc_http_request_duration_seconds"])
}
