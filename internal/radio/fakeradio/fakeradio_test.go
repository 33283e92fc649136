package fakeradio

import (
	"errors"
	"testing"

	"github.com/pelagos-tag/tracker-core/internal/model"
	"github.com/pelagos-tag/tracker-core/internal/radio"
)

type recorder struct {
	events []radio.Event
}

func (r *recorder) HandleRadioEvent(e radio.Event) {
	r.events = append(r.events, e)
}

func TestSendThenTxCompleteNotifiesListener(t *testing.T) {
	d := New()
	rec := &recorder{}
	d.Subscribe(rec)

	if err := d.Send(model.ArticA3, []byte{1, 2, 3}, 24); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !d.Sending {
		t.Fatal("expected Sending to be true after Send")
	}
	d.SimulateTxComplete()
	if d.Sending {
		t.Error("expected Sending to clear after SimulateTxComplete")
	}

	if len(rec.events) != 2 {
		t.Fatalf("got %d events, want 2 (TxStarted, TxComplete)", len(rec.events))
	}
	if _, ok := rec.events[1].(radio.TxComplete); !ok {
		t.Errorf("second event is %T, want radio.TxComplete", rec.events[1])
	}
}

func TestCannotSendWhileReceiving(t *testing.T) {
	d := New()
	_ = d.StartReceive(model.ArticA3)
	if err := d.Send(model.ArticA3, nil, 0); err == nil {
		t.Fatal("expected an error sending while receiving")
	}
}

func TestDeviceErrorClearsSendingAndReceiving(t *testing.T) {
	d := New()
	_ = d.Send(model.ArticA2, []byte{1}, 8)
	d.SimulateDeviceError(errors.New("radio fault"))
	if d.Sending {
		t.Error("expected Sending cleared after device error")
	}

	_ = d.StartReceive(model.ArticA3)
	d.SimulateDeviceError(errors.New("radio fault"))
	if d.Receiving {
		t.Error("expected Receiving cleared after device error")
	}
}

func TestCumulativeReceiveTimeAccumulates(t *testing.T) {
	d := New()
	_ = d.StartReceive(model.ArticA3)
	d.SimulateRxPacket([]byte{0xAA}, 8, 500)
	d.SimulateRxPacket([]byte{0xBB}, 8, 250)
	if got := d.CumulativeReceiveTimeMS(); got != 750 {
		t.Errorf("got %d, want 750", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	d := New()
	rec := &recorder{}
	d.Subscribe(rec)
	d.Unsubscribe(rec)
	_ = d.Send(model.ArticA2, nil, 0)
	if len(rec.events) != 0 {
		t.Errorf("expected no events after unsubscribe, got %d", len(rec.events))
	}
}
