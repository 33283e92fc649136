// Package fakeradio is a deterministic in-memory radio.Device, standing
// in for the Artic transceiver in tests: every Send/StartReceive call
// records its arguments and waits for the test to call the matching
// Simulate* method to fire the corresponding event, rather than
// completing on its own.
package fakeradio

import (
	"errors"

	"github.com/pelagos-tag/tracker-core/internal/model"
	"github.com/pelagos-tag/tracker-core/internal/radio"
)

// SentFrame records one Send call for test assertions.
type SentFrame struct {
	Mode     model.ArticMode
	Packet   []byte
	SizeBits int
}

// Device is the fake radio.Device.
type Device struct {
	radio.Notifier

	Sent       []SentFrame
	Sending    bool
	Receiving  bool
	ReceiveMode model.ArticMode

	FrequencyHz     float64
	TCXOWarmupMS    uint
	Power           model.PowerClass
	DeviceID        uint
	IdleTimeoutMS   uint
	cumulativeRxMS  uint
}

// New creates an idle fake device.
func New() *Device {
	return &Device{}
}

func (d *Device) Send(mode model.ArticMode, packet []byte, sizeBits int) error {
	if d.Receiving {
		return errors.New("fakeradio: cannot send while receiving")
	}
	d.Sending = true
	d.Sent = append(d.Sent, SentFrame{Mode: mode, Packet: append([]byte(nil), packet...), SizeBits: sizeBits})
	d.Notify(radio.TxStarted{})
	return nil
}

func (d *Device) SendAck(mode model.ArticMode, dcs, dlMsgID, execReport uint) error {
	return d.Send(mode, nil, 0)
}

func (d *Device) StopSend() error {
	d.Sending = false
	return nil
}

func (d *Device) StartReceive(mode model.ArticMode) error {
	if d.Sending {
		return errors.New("fakeradio: cannot receive while sending")
	}
	d.Receiving = true
	d.ReceiveMode = mode
	d.Notify(radio.RxStarted{})
	return nil
}

func (d *Device) StopReceive() error {
	d.Receiving = false
	return nil
}

func (d *Device) SetFrequency(hz float64)          { d.FrequencyHz = hz }
func (d *Device) SetTCXOWarmupTimeMS(ms uint)       { d.TCXOWarmupMS = ms }
func (d *Device) SetTXPower(p model.PowerClass)     { d.Power = p }
func (d *Device) CumulativeReceiveTimeMS() uint     { return d.cumulativeRxMS }
func (d *Device) SetDeviceIdentifier(id uint)       { d.DeviceID = id }
func (d *Device) SetIdleTimeoutMS(ms uint)          { d.IdleTimeoutMS = ms }

// SimulateTxComplete fires TxComplete as if the in-flight Send finished.
func (d *Device) SimulateTxComplete() {
	d.Sending = false
	d.Notify(radio.TxComplete{})
}

// SimulateRxPacket delivers a received frame and advances the
// cumulative receive-time counter by elapsedMS.
func (d *Device) SimulateRxPacket(packet []byte, sizeBits int, elapsedMS uint) {
	d.cumulativeRxMS += elapsedMS
	d.Notify(radio.RxPacket{Packet: packet, SizeBits: sizeBits})
}

// SimulateDeviceError fires a recoverable device error.
func (d *Device) SimulateDeviceError(err error) {
	d.Sending = false
	d.Receiving = false
	d.Notify(radio.DeviceError{Err: err})
}

var _ radio.Device = (*Device)(nil)
