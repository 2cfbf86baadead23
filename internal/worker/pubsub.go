package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	warmJob          *WarmJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	WarmJob          *WarmJob
	Logger           zerolog.Logger
}

// WarmMessage represents a network warm job message.
type WarmMessage struct {
	JobType string `json:"job_type"`

	// Datasets restricts the warm run to the named datasets. Empty means
	// all configured targets.
	Datasets []string `json:"datasets,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings. Warm runs rebuild whole networks, so a
	// single message can legitimately take minutes.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 2
	subscriber.ReceiveSettings.MaxExtension = 15 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		warmJob:          cfg.WarmJob,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var warmMsg WarmMessage
	if err := json.Unmarshal(msg.Data, &warmMsg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch warmMsg.JobType {
	case "network_warm":
		err = h.handleNetworkWarm(ctx, warmMsg)
	case "health_check":
		err = h.handleHealthCheck(ctx)
	default:
		logger.Warn().Str("job_type", warmMsg.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("job_type", warmMsg.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleNetworkWarm(ctx context.Context, msg WarmMessage) error {
	h.logger.Info().
		Strs("datasets", msg.Datasets).
		Msg("starting network warm")

	job := h.warmJob
	if len(msg.Datasets) > 0 {
		job = h.warmJob.Restricted(msg.Datasets)
	}

	result := job.Run(ctx)

	h.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("total_targets", result.TotalTargets).
		Msg("network warm completed")

	// Consider it successful if more targets succeeded than failed.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many warm failures: %d/%d", result.Failed, result.TotalTargets)
	}

	return nil
}

func (h *PubSubHandler) handleHealthCheck(ctx context.Context) error {
	h.logger.Debug().Msg("running health check")

	// Warm the highest-priority target only, without the buffer surface, to
	// verify the dataset sources and build pipeline end to end.
	targets := h.warmJob.config.Targets
	if len(targets) == 0 {
		return nil
	}
	first := targets[0]
	for _, t := range targets[1:] {
		if t.Priority < first.Priority {
			first = t
		}
	}

	healthCheckJob := NewWarmJob(WarmJobConfig{
		Config: WarmConfig{
			Targets:       []WarmTarget{first},
			Concurrency:   1,
			Timeout:       time.Minute,
			ComputeBuffer: false,
		},
		Logger:     h.logger,
		Catalog:    h.warmJob.catalog,
		Loader:     h.warmJob.loader,
		Thresholds: h.warmJob.thresholds,
	})

	result := healthCheckJob.Run(ctx)
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %d errors", result.Failed)
	}

	h.logger.Debug().Msg("health check passed")
	return nil
}
