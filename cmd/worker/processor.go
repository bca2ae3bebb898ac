package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-tryon-cartflow/internal/aws"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryon"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryonstore"
)

// Processor handles render queue messages and moves try-ons from
// processing to completed or failed.
type Processor struct {
	store    *tryonstore.Store
	renderer Renderer
	metrics  *aws.Metrics
}

// NewProcessor creates a new worker processor with AWS clients injected.
func NewProcessor(clients *aws.AWSClients, tryOnsTable, namespace string, r Renderer) *Processor {
	return &Processor{
		store:    tryonstore.NewStore(clients.DynamoDB, tryOnsTable),
		renderer: r,
		metrics:  aws.NewMetrics(clients.CloudWatch, namespace),
	}
}

// Handle processes an SQS batch. Messages that hit a transient error are
// reported back as batch item failures so only they are redelivered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			log.Error().Err(err).Str("messageId", rec.MessageId).Msg("Render message failed, will retry")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg tryonstore.RenderMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil || msg.TryOnID == "" {
		// redelivery cannot fix a malformed body
		log.Error().Err(err).Str("body", rec.Body).Msg("Dropping invalid render message")
		p.count(ctx, metricSkipped, "invalid")
		return nil
	}
	logger := log.With().Str("tryOnId", msg.TryOnID).Str("productId", msg.ProductID).Logger()

	item, err := p.store.Get(ctx, msg.TryOnID)
	if err != nil {
		return fmt.Errorf("fetch try-on: %w", err)
	}
	if item == nil {
		logger.Warn().Msg("Try-on deleted before render")
		p.count(ctx, metricSkipped, "deleted")
		return nil
	}
	if item.Status != tryon.StatusProcessing {
		// duplicate delivery or a record that was never started
		logger.Info().Str("status", string(item.Status)).Msg("Skipping render")
		p.count(ctx, metricSkipped, string(item.Status))
		return nil
	}

	if err := p.store.IncrementAttempts(ctx, msg.TryOnID); err != nil {
		logger.Warn().Err(err).Msg("Failed to increment attempts")
	}

	result, rerr := p.renderer.Render(ctx, *item, msg.ProductID)
	if rerr != nil {
		logger.Error().Err(rerr).Msg("Render failed")
		err := p.store.Fail(ctx, msg.TryOnID, rerr.Error())
		if err != nil && !errors.Is(err, tryonstore.ErrStatusMismatch) {
			return fmt.Errorf("mark failed: %w", err)
		}
		p.count(ctx, metricFailed, msg.ProductID)
		return nil
	}

	err = p.store.Complete(ctx, msg.TryOnID, result)
	if errors.Is(err, tryonstore.ErrStatusMismatch) {
		logger.Info().Msg("Try-on already finished by another delivery")
		return nil
	}
	if err != nil {
		return fmt.Errorf("complete try-on: %w", err)
	}

	p.count(ctx, metricCompleted, msg.ProductID)
	logger.Info().Str("result", result).Msg("Render completed")
	return nil
}

// count publishes a metric; failures are logged and never fail a message.
func (p *Processor) count(ctx context.Context, name, reason string) {
	if p.metrics == nil {
		return
	}
	if err := p.metrics.Count(ctx, name, 1, map[string]string{"Reason": reason}); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to publish metric")
	}
}
