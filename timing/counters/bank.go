// Package counters provides the external performance-counter bank. The CSR
// unit multiplexes an address/data/write-enable triple to this bank; the
// event counting itself lives here, outside the CSR state machine.
package counters

// Event identifies a countable micro-architectural event.
type Event uint8

// Countable events.
const (
	EventCycles Event = iota
	EventInstructions
	EventICacheMiss
	EventDCacheMiss
	EventBranchMiss
	EventTrap
	numEvents
)

// Counter address ranges served by the bank. These mirror the CSR
// addresses the unit forwards: mhpmcounter3..31 and mhpmevent3..31.
const (
	counterBase = 0xB03
	counterLast = 0xB1F
	eventBase   = 0x323
	eventLast   = 0x33F
)

// numSlots is the number of programmable counters (hpmcounter3..31).
const numSlots = counterLast - counterBase + 1

// Bank is the programmable event-counter bank.
type Bank struct {
	counts  [numSlots]uint64
	events  [numSlots]Event
	pending [numEvents]uint64
}

// NewBank creates a counter bank with all counters unprogrammed.
func NewBank() *Bank {
	return &Bank{}
}

// Record notes that an event occurred this tick. Counters programmed for
// the event accumulate it on the next Tick call.
func (b *Bank) Record(ev Event) {
	if ev < numEvents {
		b.pending[ev]++
	}
}

// Tick folds this tick's recorded events into the programmed counters.
func (b *Bank) Tick() {
	for i := range b.counts {
		b.counts[i] += b.pending[b.events[i]]
	}
	for i := range b.pending {
		b.pending[i] = 0
	}
}

// Access services one transfer on the CSR unit's perf port: a read returns
// the addressed counter or event selector, a write (we set) replaces it.
// Addresses outside the bank's ranges read as zero and drop writes.
func (b *Bank) Access(addr uint16, wdata uint64, we bool) uint64 {
	switch {
	case addr >= counterBase && addr <= counterLast:
		slot := addr - counterBase
		old := b.counts[slot]
		if we {
			b.counts[slot] = wdata
		}
		return old

	case addr >= eventBase && addr <= eventLast:
		slot := addr - eventBase
		old := uint64(b.events[slot])
		if we {
			ev := Event(wdata)
			if ev >= numEvents {
				ev = EventCycles
			}
			b.events[slot] = ev
		}
		return old
	}

	return 0
}
