package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Permanent dispatch failures. Messages that hit them are acknowledged so
// Pub/Sub does not redeliver a trigger that can never succeed.
var (
	ErrUnknownJobType   = errors.New("unknown job type")
	ErrMalformedMessage = errors.New("malformed job message")
)

// JobMessage is a worker trigger message.
type JobMessage struct {
	JobType  string `json:"job_type"`
	Detailed bool   `json:"detailed,omitempty"`
}

// Dispatcher routes trigger payloads to the sweep job.
type Dispatcher struct {
	sweep  *SweepJob
	logger zerolog.Logger
}

func NewDispatcher(sweep *SweepJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{sweep: sweep, logger: logger}
}

// Handle decodes one trigger payload and runs the job it names. A sweep
// skipped because the pause switch is on counts as handled.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobComplianceSweep:
		_, err := d.sweep.run(ctx, msg.Detailed || d.sweep.config.Detailed)
		if errors.Is(err, ErrSweepDisabled) {
			d.logger.Info().Msg("compliance sweep paused, trigger acknowledged")
			return nil
		}
		return err
	case JobHealthCheck:
		if err := d.sweep.HealthCheck(ctx); err != nil {
			return fmt.Errorf("health check: %w", err)
		}
		return nil
	case "":
		return fmt.Errorf("%w: missing job_type", ErrMalformedMessage)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

// Settle reports whether a message whose dispatch returned err should be
// acknowledged. Only transient failures are redelivered.
func Settle(err error) bool {
	return err == nil || errors.Is(err, ErrUnknownJobType) || errors.Is(err, ErrMalformedMessage)
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
	// MaxOutstanding bounds concurrent sweeps. Zero means 1.
	MaxOutstanding int
}

// PubSubHandler feeds a Pub/Sub subscription into a Dispatcher.
type PubSubHandler struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	dispatcher   *Dispatcher
	logger       zerolog.Logger
}

func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	outstanding := cfg.MaxOutstanding
	if outstanding <= 0 {
		outstanding = 1
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = outstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:       client,
		subscriber:   subscriber,
		subscription: cfg.SubscriptionName,
		dispatcher:   cfg.Dispatcher,
		logger:       cfg.Logger,
	}, nil
}

// Start receives until ctx is cancelled or the subscription fails.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().Str("subscription", h.subscription).Msg("receiving sweep triggers")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		start := time.Now()
		err := h.dispatcher.Handle(ctx, msg.Data)
		ack := Settle(err)

		event := h.logger.Info()
		switch {
		case err != nil && ack:
			event = h.logger.Warn().Err(err)
		case err != nil:
			event = h.logger.Error().Err(err)
		}
		event.
			Str("message_id", msg.ID).
			Time("published", msg.PublishTime).
			Int("delivery_attempt", deliveryAttempt(msg)).
			Bool("ack", ack).
			Dur("duration", time.Since(start)).
			Msg("sweep trigger handled")

		if ack {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func deliveryAttempt(msg *pubsub.Message) int {
	if msg.DeliveryAttempt == nil {
		return 0
	}
	return *msg.DeliveryAttempt
}
