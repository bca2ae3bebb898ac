package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-tryon-cartflow/internal/aws"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryon"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryonstore"
	"github.com/imrishuroy/go-tryon-cartflow/internal/validation"
)

// MaxPhotoSize bounds uploaded photos.
const MaxPhotoSize = 10 << 20

// RegisterTryOnRoutes registers the try-on routes under /try-on.
func RegisterTryOnRoutes(r gin.IRoutes, cfg HandlerConfig) {
	v := validation.New()
	store := tryonstore.NewStore(cfg.DynamoDBClient, cfg.TryOnsTable)
	photos := aws.NewPhotoStore(cfg.S3Client, cfg.S3Presigner, cfg.PhotoBucket, cfg.PhotoURLExpiry)
	publisher := aws.NewPublisher(cfg.SQSClient, cfg.RenderQueueURL)

	r.POST("/try-on/upload", func(c *gin.Context) {
		ctx := c.Request.Context()
		user := userID(c)

		fh, err := c.FormFile("photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_photo"})
			return
		}
		if fh.Size > MaxPhotoSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo_too_large"})
			return
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, "image/") {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "not_an_image"})
			return
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_photo"})
			return
		}
		defer f.Close()

		id := uuid.NewString()
		key := fmt.Sprintf("uploads/%s/%s%s", user, id, strings.ToLower(filepath.Ext(fh.Filename)))
		if _, err := photos.Put(ctx, key, f, contentType); err != nil {
			log.Error().Err(err).Str("userId", user).Msg("Failed to store photo")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload_failed"})
			return
		}

		item, err := store.Create(ctx, tryonstore.Item{
			TryOnID:       id,
			UserID:        user,
			OriginalImage: key,
		})
		if err != nil {
			log.Error().Err(err).Str("tryOnId", id).Msg("Failed to create try-on")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
			return
		}

		log.Info().Str("tryOnId", id).Str("userId", user).Msg("Photo uploaded")
		c.JSON(http.StatusCreated, presentRecord(ctx, photos, item))
	})

	r.POST("/try-on/process", func(c *gin.Context) {
		ctx := c.Request.Context()
		user := userID(c)

		var req validation.ProcessTryOnRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		item, ok := loadOwned(c, store, req.TryOnID)
		if !ok {
			return
		}

		err := store.StartProcessing(ctx, req.TryOnID, user, req.ProductID)
		if errors.Is(err, tryonstore.ErrStatusMismatch) {
			c.JSON(http.StatusConflict, gin.H{"error": "invalid_status", "status": item.Status})
			return
		}
		if err != nil {
			log.Error().Err(err).Str("tryOnId", req.TryOnID).Msg("Failed to start processing")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "process_failed"})
			return
		}

		msg := tryonstore.RenderMessage{TryOnID: req.TryOnID, ProductID: req.ProductID, UserID: user}
		attrs := map[string]string{
			"try_on_id":      req.TryOnID,
			"correlation_id": c.GetHeader("X-Request-Id"),
		}
		if err := publisher.SendJSON(ctx, msg, attrs); err != nil {
			log.Error().Err(err).Str("tryOnId", req.TryOnID).Msg("Failed to enqueue render")
			if ferr := store.Fail(ctx, req.TryOnID, "enqueue_failed"); ferr != nil {
				log.Error().Err(ferr).Str("tryOnId", req.TryOnID).Msg("Failed to mark try-on failed")
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue_failed"})
			return
		}

		item.Status = tryon.StatusProcessing
		item.ProductID = req.ProductID
		log.Info().Str("tryOnId", req.TryOnID).Str("productId", req.ProductID).Msg("Render enqueued")
		c.JSON(http.StatusAccepted, presentRecord(ctx, photos, *item))
	})

	r.GET("/try-on/history", func(c *gin.Context) {
		items, err := store.ListByUser(c.Request.Context(), userID(c))
		if err != nil {
			log.Error().Err(err).Str("userId", userID(c)).Msg("Failed to list try-ons")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
			return
		}
		records := make([]tryon.Record, 0, len(items))
		for _, it := range items {
			records = append(records, presentRecord(c.Request.Context(), photos, it))
		}
		c.JSON(http.StatusOK, gin.H{"try_ons": records})
	})

	r.GET("/try-on/:id", func(c *gin.Context) {
		item, ok := loadOwned(c, store, c.Param("id"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, presentRecord(c.Request.Context(), photos, *item))
	})

	r.DELETE("/try-on/history/:id", func(c *gin.Context) {
		err := store.Delete(c.Request.Context(), c.Param("id"), userID(c))
		if errors.Is(err, tryonstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if err != nil {
			log.Error().Err(err).Str("tryOnId", c.Param("id")).Msg("Failed to delete try-on")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

// loadOwned fetches the record and writes a 404 unless it belongs to the caller.
func loadOwned(c *gin.Context, store *tryonstore.Store, id string) (*tryonstore.Item, bool) {
	item, err := store.Get(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("tryOnId", id).Msg("Failed to load try-on")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return nil, false
	}
	if item == nil || item.UserID != userID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return nil, false
	}
	return item, true
}

// presentRecord swaps the stored photo keys for presigned URLs. A key that
// cannot be presigned is returned as is.
func presentRecord(ctx context.Context, photos *aws.PhotoStore, item tryonstore.Item) tryon.Record {
	rec := item.Record()
	for _, field := range []*string{&rec.OriginalImage, &rec.ResultImage} {
		u, err := photos.URL(ctx, *field)
		if err != nil {
			log.Warn().Err(err).Str("tryOnId", rec.ID).Msg("Failed to presign photo")
			continue
		}
		*field = u
	}
	return rec
}
