package publisher

import (
	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/htlc"
	logger "github.com/sirupsen/logrus"
)

// LogSink writes every event to the logger.
type LogSink struct{}

func (LogSink) Emit(ev *htlc.Event) {
	fields := logger.Fields{
		"seq": ev.Seq,
		"id":  common.Shorten(ev.Id.Hex(), 8),
	}
	switch ev.Kind {
	case htlc.EventContractCreated:
		fields["sender"] = ev.Sender.Hex()
		fields["receiver"] = ev.Receiver.Hex()
		fields["token"] = ev.TokenContract.Hex()
		fields["amount"] = common.BigIntClone(ev.Amount).String()
		fields["timelock"] = ev.Timelock
	case htlc.EventContractWithdrawn:
		fields["preimage"] = common.Shorten(common.ByteSliceToPureHexStr(ev.Preimage[:]), 8)
	}
	logger.WithFields(fields).Info(string(ev.Kind))
}

// MultiSink emits to every sink in order.
type MultiSink []htlc.EventSink

func (sinks MultiSink) Emit(ev *htlc.Event) {
	for _, s := range sinks {
		s.Emit(ev)
	}
}
