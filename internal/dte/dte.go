// Package dte implements the configuration command surface named in
// spec.md §6/§7: a command-to-store dispatch table for PARMR, PARMW,
// STATR, PASPW, RSTVW, ERASE and FACTW, plus the error-reply envelope
// those commands (and anything else on the link) report failures
// through. It is not the UART/DTE protocol parser - that framing layer
// remains out of scope - callers hand Dispatch an already-split command
// name and argument list, grounded on
// original_source/core/protocol/dte_params.cpp's key<->parameter table.
package dte

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pelagos-tag/tracker-core/internal/argos/passpredict"
	"github.com/pelagos-tag/tracker-core/internal/clock"
	"github.com/pelagos-tag/tracker-core/internal/config"
)

// Reply error codes from spec.md §7's DTE error-reply row.
const (
	MissingArg     = "MissingArg"
	UnexpectedArg  = "UnexpectedArg"
	UnknownCommand = "UnknownCommand"
)

// ackReply is returned by commands that succeed and have nothing more
// specific to report.
const ackReply = "$A;CMD#001\r"

// FormatReply renders a DTE error reply in the firmware's fixed
// envelope, "$N;CMD#001;<code>\r".
func FormatReply(code string) string {
	return fmt.Sprintf("$N;CMD#001;%s\r", code)
}

// Dispatcher routes parsed DTE commands onto a config.Store. It holds
// no protocol-framing state of its own.
type Dispatcher struct {
	store   *config.Store
	clock   clock.Clock
	decoder *passpredict.Decoder
}

// NewDispatcher creates a Dispatcher over store, using c to timestamp
// PASPW's AOP commit.
func NewDispatcher(store *config.Store, c clock.Clock) *Dispatcher {
	return &Dispatcher{store: store, clock: c, decoder: passpredict.NewDecoder()}
}

// Dispatch runs one command, already split into its name and argument
// list, and returns its reply line.
func (d *Dispatcher) Dispatch(name string, args []string) string {
	switch name {
	case "PARMR":
		return d.parmr(args)
	case "PARMW":
		return d.parmw(args)
	case "STATR":
		return d.statr(args)
	case "PASPW":
		return d.paspw(args)
	case "RSTVW":
		return d.rstvw(args)
	case "ERASE":
		return d.erase(args)
	case "FACTW":
		return d.factw(args)
	default:
		return FormatReply(UnknownCommand)
	}
}

// parmr replies with the current value of each named parameter key.
func (d *Dispatcher) parmr(keys []string) string {
	if len(keys) == 0 {
		return FormatReply(MissingArg)
	}
	var b strings.Builder
	fmt.Fprint(&b, "$A;CMD#001;")
	for i, key := range keys {
		def, ok := config.LookupByName(key)
		if !ok || !def.Readable {
			return FormatReply(UnexpectedArg)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%v", key, d.store.Read(def.ID))
	}
	b.WriteByte('\r')
	return b.String()
}

// parmw writes a set of key=value pairs. A single malformed or
// out-of-range entry aborts the whole command: entries already written
// in this call are restored to their previous values, matching
// OutOfRange's "configuration is not modified" recovery rule, and
// SaveParams only runs once every entry has validated and written
// successfully.
func (d *Dispatcher) parmw(assignments []string) string {
	if len(assignments) == 0 {
		return FormatReply(MissingArg)
	}
	var undo []func()
	defer func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}()
	for _, kv := range assignments {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return FormatReply(UnexpectedArg)
		}
		def, ok := config.LookupByName(key)
		if !ok || !def.Writable {
			return FormatReply(UnexpectedArg)
		}
		v, err := parseValue(def, raw)
		if err != nil {
			return FormatReply(UnexpectedArg)
		}
		id, prev := def.ID, d.store.Read(def.ID)
		if err := d.store.Write(id, v); err != nil {
			return FormatReply(UnexpectedArg)
		}
		undo = append(undo, func() { _ = d.store.Write(id, prev) })
	}
	undo = nil
	if err := d.store.SaveParams(); err != nil {
		return FormatReply(UnexpectedArg)
	}
	return ackReply
}

// statrKeys is the fixed status subset STATR reports: the volatile
// counters RSTVW can reset, plus the last AOP commit date.
var statrKeys = []string{"ARGOS_TX_COUNTER", "ARGOS_RX_COUNTER", "ARGOS_RX_TIME", "ARGOS_AOP_DATE"}

func (d *Dispatcher) statr(args []string) string {
	if len(args) != 0 {
		return FormatReply(UnexpectedArg)
	}
	return d.parmr(statrKeys)
}

// paspw merges a hex-encoded raw allcast dump into the pass-predict
// database, the DTE equivalent of an RX service window closing with
// accumulated packets.
func (d *Dispatcher) paspw(args []string) string {
	if len(args) != 1 {
		return FormatReply(MissingArg)
	}
	raw, err := hex.DecodeString(args[0])
	if err != nil {
		return FormatReply(UnexpectedArg)
	}
	decoded, err := d.decoder.Decode(raw)
	if err != nil {
		return FormatReply(UnexpectedArg)
	}
	result := passpredict.Merge(d.store.ReadPassPredict(), decoded)
	if result.Committed {
		if err := d.store.WritePassPredict(result.Database); err != nil {
			return FormatReply(UnexpectedArg)
		}
		d.store.SetAOPDate(d.clock.Now())
	}
	if err := d.store.SaveParams(); err != nil {
		return FormatReply(UnexpectedArg)
	}
	return ackReply
}

// rstvw resets one or all of the volatile TX/RX/RX-time counters.
func (d *Dispatcher) rstvw(args []string) string {
	if len(args) != 1 {
		return FormatReply(MissingArg)
	}
	reset := func(id config.ParamID) error { return d.store.Write(id, uint32(0)) }
	var err error
	switch args[0] {
	case "TX":
		err = reset(config.ArgosTxCounter)
	case "RX":
		err = reset(config.ArgosRxCounter)
	case "RXTIME":
		err = reset(config.ArgosRxTimeMS)
	case "ALL":
		for _, id := range []config.ParamID{config.ArgosTxCounter, config.ArgosRxCounter, config.ArgosRxTimeMS} {
			if err = reset(id); err != nil {
				break
			}
		}
	default:
		return FormatReply(UnexpectedArg)
	}
	if err != nil {
		return FormatReply(UnexpectedArg)
	}
	if err := d.store.SaveParams(); err != nil {
		return FormatReply(UnexpectedArg)
	}
	return ackReply
}

// erase discards persisted data outside the parameter store. "sensor"
// is accepted but has no effect: this core implements no sensor-specific
// storage (spec.md §1 Non-goal).
func (d *Dispatcher) erase(args []string) string {
	if len(args) != 1 {
		return FormatReply(MissingArg)
	}
	switch args[0] {
	case "sys", "both":
		if err := d.store.ClearDatabases(); err != nil {
			return FormatReply(UnexpectedArg)
		}
	case "sensor":
	default:
		return FormatReply(UnexpectedArg)
	}
	return ackReply
}

func (d *Dispatcher) factw(args []string) string {
	if len(args) != 0 {
		return FormatReply(UnexpectedArg)
	}
	if err := d.store.FactoryReset(); err != nil {
		return FormatReply(UnexpectedArg)
	}
	return ackReply
}

// parseValue converts a DTE-supplied string argument to the Go value
// type the store's Write expects for def's encoding.
func parseValue(def config.ParamDef, s string) (any, error) {
	switch def.Encoding {
	case config.EncodingBoolean:
		switch strings.ToUpper(s) {
		case "0", "FALSE":
			return false, nil
		case "1", "TRUE":
			return true, nil
		default:
			return nil, fmt.Errorf("dte: invalid boolean %q", s)
		}
	case config.EncodingFloat:
		return strconv.ParseFloat(s, 64)
	case config.EncodingEnum:
		return strconv.ParseInt(s, 10, 64)
	default: // EncodingUnsigned, EncodingSigned
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return uint32(n), nil
	}
}
