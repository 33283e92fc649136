// Package depthpile implements the fixed-capacity FIFO of recent GPS
// fixes with per-entry burst counters, a direct Go translation of the
// ArgosDepthPile<T> template in argos_tx_service.hpp specialised to
// model.Fix (the firmware's GPSLogEntry is the template's only
// instantiation, so this drops the generic in favour of a single
// concrete type, matching the teacher's own avoidance of unnecessary
// abstraction).
package depthpile

import "github.com/pelagos-tag/tracker-core/internal/model"

// entry pairs a stored fix with its remaining burst count. A zero count
// means infinite: never decrements.
type entry struct {
	fix          model.Fix
	burstCounter uint32
	infinite     bool
}

// DefaultMaxSize matches the firmware's ArgosDepthPile default capacity.
const DefaultMaxSize = 24

// DefaultMaxMessages is the retrieval policy's default messages-per-slot
// cap, matching ArgosDepthPile::retrieve's default argument.
const DefaultMaxMessages = 4

// Pile is a fixed-capacity FIFO of depth-pile entries.
type Pile struct {
	entries       []entry
	maxSize       uint
	retrieveIndex uint
}

// New creates an empty Pile with the given capacity.
func New(maxSize uint) *Pile {
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	return &Pile{maxSize: maxSize}
}

// Clear discards all stored entries and resets the retrieval cursor.
func (p *Pile) Clear() {
	p.entries = nil
	p.retrieveIndex = 0
}

// Store appends fix with the given burst count, evicting the oldest
// entry first if the pile is already at capacity. burstCount == 0 means
// the entry never runs out of transmit opportunities.
func (p *Pile) Store(fix model.Fix, burstCount uint32) {
	p.entries = append(p.entries, entry{fix: fix, burstCounter: burstCount, infinite: burstCount == 0})
	if uint(len(p.entries)) > p.maxSize {
		p.entries = p.entries[1:]
	}
}

// Size returns the number of entries currently stored.
func (p *Pile) Size() int {
	return len(p.entries)
}

// Eligible returns the count of entries with a non-zero (or infinite)
// burst counter.
func (p *Pile) Eligible() int {
	count := 0
	for _, e := range p.entries {
		if e.infinite || e.burstCounter > 0 {
			count++
		}
	}
	return count
}

func (e entry) eligible() bool {
	return e.infinite || e.burstCounter > 0
}

// RetrieveLatest returns the most recent entry's fix without decrementing
// its burst counter, for time-sync bursts. It returns (fix, true) if the
// pile is non-empty and the latest entry is eligible, else (zero, false).
func (p *Pile) RetrieveLatest() (model.Fix, bool) {
	if len(p.entries) == 0 {
		return model.Fix{}, false
	}
	last := p.entries[len(p.entries)-1]
	if !last.eligible() {
		return model.Fix{}, false
	}
	return last.fix, true
}

// Retrieve implements the round-robin retrieval policy from §4.2: the
// caller asks for a depth d and a maximum of maxMessages per slot; the
// pile walks slots starting from its internal cursor and returns the
// first slot whose span of min(d, maxMessages) consecutive entries
// contains at least one eligible fix, decrementing the burst counter of
// every fix actually returned (a lone eligible fix decrements only
// itself; a slot with more than one eligible fix returns and decrements
// the whole span).
func (p *Pile) Retrieve(depth uint, maxMessages uint) []model.Fix {
	if maxMessages == 0 || depth == 0 {
		return nil
	}
	if maxMessages > depth {
		maxMessages = depth
	}
	maxIndex := (depth + maxMessages - 1) / maxMessages
	span := maxMessages
	if uint(len(p.entries)) < span {
		span = uint(len(p.entries))
	}
	if span == 0 {
		return nil
	}

	maxMsgIndex := p.retrieveIndex + maxIndex
	var retrieveIndex uint
	eligibleCount := 0
	firstEligible := -1

	for p.retrieveIndex < maxMsgIndex && eligibleCount == 0 {
		retrieveIndex = p.retrieveIndex % maxIndex
		for k := uint(0); k < span; k++ {
			idx := int(uint(len(p.entries))-(span*(retrieveIndex+1))) + int(k)
			if idx >= 0 && idx < len(p.entries) && p.entries[idx].eligible() {
				eligibleCount++
				if firstEligible == -1 {
					firstEligible = idx
				}
			}
		}
		p.retrieveIndex++
	}

	var out []model.Fix
	switch {
	case eligibleCount == 1:
		p.decrement(firstEligible)
		out = append(out, p.entries[firstEligible].fix)
	case eligibleCount > 1:
		for k := uint(0); k < span; k++ {
			idx := int(uint(len(p.entries))-(span*(retrieveIndex+1))) + int(k)
			if idx < 0 || idx >= len(p.entries) {
				continue
			}
			p.decrement(idx)
			out = append(out, p.entries[idx].fix)
		}
	}
	return out
}

func (p *Pile) decrement(idx int) {
	if p.entries[idx].infinite {
		return
	}
	if p.entries[idx].burstCounter > 0 {
		p.entries[idx].burstCounter--
	}
}
