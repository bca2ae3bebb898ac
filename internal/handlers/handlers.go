// Package handlers exposes the try-on, cart and product catalog HTTP API on gin.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-tryon-cartflow/internal/aws"
)

// UserHeader carries the caller's identity. Authentication happens in front
// of this service.
const UserHeader = "X-User-Id"

const userKey = "userID"

// HandlerConfig groups dependencies for the API handlers.
type HandlerConfig struct {
	DynamoDBClient   aws.DynamoDBAPI
	SQSClient        aws.SQSAPI
	S3Client         aws.S3API
	S3Presigner      aws.S3PresignAPI
	TryOnsTable      string
	CartTable        string
	ProductsTable    string
	IdempotencyTable string
	RenderQueueURL   string
	PhotoBucket      string
	PhotoURLExpiry   time.Duration
	TTLWindow        time.Duration
}

// Register registers every API route on r.
func Register(r *gin.Engine, cfg HandlerConfig) {
	// the catalog is public
	RegisterProductRoutes(r.Group("/api"), cfg)

	api := r.Group("/api", requireUser)
	RegisterTryOnRoutes(api, cfg)
	RegisterCartRoutes(api, cfg)
}

func requireUser(c *gin.Context) {
	id := c.GetHeader(UserHeader)
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_user_id"})
		return
	}
	c.Set(userKey, id)
	c.Next()
}

func userID(c *gin.Context) string {
	return c.GetString(userKey)
}
