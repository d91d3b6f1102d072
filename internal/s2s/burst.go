package s2s

// BurstPhase enumerates the mandatory ordering for initial state sync
// after a link completes, per spec section 4.6.3: bans, then users,
// then channels, then topics, then topology. Sending out of order
// risks applying a channel join before its bans are known, or a topic
// change before the channel itself exists.
type BurstPhase int

const (
	BurstBans BurstPhase = iota
	BurstUsers
	BurstChannels
	BurstTopics
	BurstTopology
	burstPhaseCount
)

func (p BurstPhase) String() string {
	switch p {
	case BurstBans:
		return "bans"
	case BurstUsers:
		return "users"
	case BurstChannels:
		return "channels"
	case BurstTopics:
		return "topics"
	case BurstTopology:
		return "topology"
	default:
		return "unknown"
	}
}

// BurstSequencer enforces the ordering at the sending and receiving
// side: Advance only allows moving forward, never skipping a phase,
// and Accept rejects any unit presented for a phase other than the
// current one.
type BurstSequencer struct {
	phase BurstPhase
	done  bool
}

// NewBurstSequencer starts at the first phase.
func NewBurstSequencer() *BurstSequencer { return &BurstSequencer{phase: BurstBans} }

// Phase returns the current phase.
func (b *BurstSequencer) Phase() BurstPhase { return b.phase }

// Advance moves to the next phase in order. At BurstTopology, or once
// Finish has been called, it returns an error and leaves the phase
// unchanged.
func (b *BurstSequencer) Advance() error {
	if b.done {
		return errBurstAlreadyFinished
	}
	if b.phase == BurstTopology {
		return errBurstAlreadyAtLastPhase
	}
	b.phase++
	return nil
}

// Finish marks the burst complete; only valid once BurstTopology has
// been reached.
func (b *BurstSequencer) Finish() error {
	if b.phase != BurstTopology {
		return errBurstIncomplete
	}
	b.done = true
	return nil
}

// Done reports whether Finish has been called.
func (b *BurstSequencer) Done() bool { return b.done }

// Accept validates that a unit tagged with phase is acceptable at the
// sequencer's current position -- units for a past phase are rejected
// (they should have already been sent/applied), and units for a future
// phase are rejected (dependencies not yet established).
func (b *BurstSequencer) Accept(phase BurstPhase) error {
	if phase != b.phase {
		return errBurstOutOfOrder
	}
	return nil
}

var (
	errBurstAlreadyFinished    = burstErr("burst already finished")
	errBurstAlreadyAtLastPhase = burstErr("burst already at final phase")
	errBurstIncomplete         = burstErr("cannot finish burst before reaching the topology phase")
	errBurstOutOfOrder         = burstErr("burst unit received out of phase order")
)

type burstErr string

func (e burstErr) Error() string { return "s2s: " + string(e) }
