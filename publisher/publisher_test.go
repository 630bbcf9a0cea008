package publisher

import (
	"testing"
	"time"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch chan *htlc.Event) *htlc.Event {
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func TestPublisherService(t *testing.T) {
	p := NewPublisherService()

	all := make(chan *htlc.Event, 10)
	created := make(chan *htlc.Event, 10)
	p.RegisterObserver(all)
	p.RegisterObserver(created, htlc.EventContractCreated)

	id := htlc.ContractId(common.RandBytes32())
	p.Emit(&htlc.Event{Seq: 1, Kind: htlc.EventContractCreated, Id: id})
	p.Emit(&htlc.Event{Seq: 2, Kind: htlc.EventContractRefunded, Id: id})

	assert.Equal(t, uint64(1), recv(t, all).Seq)
	assert.Equal(t, uint64(2), recv(t, all).Seq)
	assert.Equal(t, uint64(1), recv(t, created).Seq)
	assert.Len(t, created, 0)
}

func TestPublisherDoesNotBlock(t *testing.T) {
	p := NewPublisherService()
	ch := make(chan *htlc.Event) // unbuffered, nobody reading yet
	p.RegisterObserver(ch)

	done := make(chan struct{})
	go func() {
		p.Emit(&htlc.Event{Seq: 7, Kind: htlc.EventContractRefunded})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked")
	}
	assert.Equal(t, uint64(7), recv(t, ch).Seq)
}

func TestMultiSink(t *testing.T) {
	a, b := &htlc.RecordingSink{}, &htlc.RecordingSink{}
	sink := MultiSink{LogSink{}, a, b}

	c := htlc.RandContract(100)
	sink.Emit(&htlc.Event{Kind: htlc.EventContractCreated, Id: c.Id(), Sender: c.Sender, Amount: c.Amount})
	sink.Emit(&htlc.Event{Kind: htlc.EventContractWithdrawn, Id: c.Id(), Preimage: common.RandBytes32()})

	require.Len(t, a.Events(), 2)
	require.Len(t, b.Events(), 2)
	assert.Equal(t, htlc.EventContractWithdrawn, b.Events()[1].Kind)
}
