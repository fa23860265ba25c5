package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TourneyLedger/internal/event"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// Publisher pushes committed tournament events to NATS for external
// consumers (lobby UIs, leaderboards, payout watchers). It drains the notify
// channel, which the engine fills with a non-blocking send; a slow publisher
// therefore never stalls a tournament operation, it just misses envelopes
// that consumers can recover from the event log.
//
// Subjects follow tourney.events.{event_type}.{instance_id}.
type Publisher struct {
	js    jetstream.JetStream
	input <-chan event.Envelope
	log   zerolog.Logger
}

func NewPublisher(js jetstream.JetStream, input <-chan event.Envelope, log zerolog.Logger) *Publisher {
	return &Publisher{
		js:    js,
		input: input,
		log:   log,
	}
}

// Run starts the publish loop. Blocks until ctx is cancelled or the channel
// closes.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case env, ok := <-p.input:
			if !ok {
				return nil
			}

			if err := p.publish(ctx, env); err != nil {
				// Non-fatal: consumers can query the event log directly.
				p.log.Warn().
					Err(err).
					Int64("sequence", env.Sequence).
					Msg("notify publish failed")
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, env event.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	subject := fmt.Sprintf("tourney.events.%s.%s", env.Type, env.InstanceID)
	_, err = p.js.Publish(ctx, subject, data)
	return err
}

// EnsureStream creates the notification stream if it does not exist.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "TOURNEY_EVENTS",
		Subjects:  []string{"tourney.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create notify stream: %w", err)
	}
	return nil
}
