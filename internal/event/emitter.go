package event

import (
	"sync/atomic"

	"TourneyLedger/internal/observability"
)

// Emitter receives envelopes after a state change has committed. The engine
// never blocks on consumers beyond the persistence channel.
type Emitter interface {
	Emit(env Envelope)
}

// NoopEmitter discards everything. Used in tests that don't care about
// notifications.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Envelope) {}

// ChanEmitter fans envelopes out to the persistence and notification
// channels. The persist channel uses a BLOCKING send — backpressure stalls
// the emitting operation so no audit record is lost. The notify channel uses
// a NON-BLOCKING send with silent drop; consumers can rebuild from the
// persisted log if they fall behind.
type ChanEmitter struct {
	sequence atomic.Int64
	persist  chan<- Envelope
	notify   chan<- Envelope
	metrics  *observability.Metrics
}

func NewChanEmitter(persist, notify chan<- Envelope, metrics *observability.Metrics) *ChanEmitter {
	return &ChanEmitter{
		persist: persist,
		notify:  notify,
		metrics: metrics,
	}
}

func (e *ChanEmitter) Emit(env Envelope) {
	env.Sequence = e.sequence.Add(1)
	if e.metrics != nil {
		e.metrics.EngineSequence.Set(float64(env.Sequence))
	}

	if e.persist != nil {
		select {
		case e.persist <- env:
		default:
			// Channel full, the send below stalls the operation until the
			// persistence worker drains.
			if e.metrics != nil {
				e.metrics.PersistBackpressure.Inc()
			}
			e.persist <- env
		}
	}

	if e.notify != nil {
		select {
		case e.notify <- env:
		default:
			// Dropped — notification consumers catch up from the event log
			if e.metrics != nil {
				e.metrics.NotifyDrops.Inc()
			}
		}
	}
}
