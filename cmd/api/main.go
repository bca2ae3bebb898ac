package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-tryon-cartflow/internal/aws"
	"github.com/imrishuroy/go-tryon-cartflow/internal/config"
	"github.com/imrishuroy/go-tryon-cartflow/internal/handlers"
	"github.com/imrishuroy/go-tryon-cartflow/internal/logging"
)

func setupRouter(cfg handlers.HandlerConfig, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware(origins), requestLogger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.Register(r, cfg)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", handlers.UserHeader, handlers.IdempotencyHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	})
}

func requestLogger(c *gin.Context) {
	c.Next()
	log.Debug().
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Int("status", c.Writer.Status()).
		Str("userId", c.GetHeader(handlers.UserHeader)).
		Msg("Request handled")
}

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.RunLocal)

	clients, err := aws.NewAWSClients(context.Background(), cfg.AWSRegion)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init aws clients")
	}

	r := setupRouter(handlers.HandlerConfig{
		DynamoDBClient:   clients.DynamoDB,
		SQSClient:        clients.SQS,
		S3Client:         clients.S3,
		S3Presigner:      clients.S3Presign,
		TryOnsTable:      cfg.TryOnsTable,
		CartTable:        cfg.CartTable,
		ProductsTable:    cfg.ProductsTable,
		IdempotencyTable: cfg.IdempotencyTable,
		RenderQueueURL:   cfg.RenderQueueURL,
		PhotoBucket:      cfg.PhotoBucket,
		PhotoURLExpiry:   cfg.PhotoURLTTL,
		TTLWindow:        cfg.IdempotencyTTL,
	}, cfg.CORSOrigins)

	// RUN_LOCAL=true serves plain HTTP for development.
	if cfg.RunLocal {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Msg("Running local server")
		if err := r.Run(addr); err != nil {
			log.Fatal().Err(err).Msg("Local server stopped")
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
