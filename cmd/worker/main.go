package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-tryon-cartflow/internal/aws"
	"github.com/imrishuroy/go-tryon-cartflow/internal/config"
	"github.com/imrishuroy/go-tryon-cartflow/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.RunLocal)

	clients, err := aws.NewAWSClients(context.Background(), cfg.AWSRegion)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init aws clients")
	}
	p := NewProcessor(clients, cfg.TryOnsTable, cfg.MetricsNamespace, PassThroughRenderer{})

	// RUN_LOCAL processes a single message taken from LOCAL_SQS_BODY.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			log.Fatal().Msg("LOCAL_SQS_BODY is required when RUN_LOCAL=true")
		}
		event := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "local-1", Body: body}}}
		resp, err := p.Handle(context.Background(), event)
		if err != nil || len(resp.BatchItemFailures) > 0 {
			log.Fatal().Err(err).Msg("Local render failed")
		}
		return
	}

	lambda.Start(p.Handle)
}
