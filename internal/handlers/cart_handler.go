package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-tryon-cartflow/internal/cart"
	"github.com/imrishuroy/go-tryon-cartflow/internal/cartstore"
	"github.com/imrishuroy/go-tryon-cartflow/internal/idempotency"
	"github.com/imrishuroy/go-tryon-cartflow/internal/validation"
)

// IdempotencyHeader names the optional client retry key on cart adds.
const IdempotencyHeader = "Idempotency-Key"

// AddToCartResponse is the body returned by POST /api/cart. CartItem carries
// the quantity that was added; LineQuantity is the stored total.
type AddToCartResponse struct {
	CartItem     cart.LineItem `json:"cart_item"`
	LineQuantity int           `json:"line_quantity"`
}

// RegisterCartRoutes registers the cart routes under /cart.
func RegisterCartRoutes(r gin.IRoutes, cfg HandlerConfig) {
	v := validation.New()
	carts := cartstore.NewStore(cfg.DynamoDBClient, cfg.CartTable)
	idempStore := idempotency.NewStore(cfg.DynamoDBClient, cfg.IdempotencyTable, cfg.TTLWindow)

	r.POST("/cart", func(c *gin.Context) {
		ctx := c.Request.Context()
		user := userID(c)

		var req validation.AddToCartRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		// keys are scoped per user so two shoppers cannot collide
		var idempKey string
		if k := c.GetHeader(IdempotencyHeader); k != "" {
			idempKey = user + "#" + k
			hash := requestHash(req)
			created, err := idempStore.CreateIfNotExists(ctx, idempKey, hash)
			if err != nil {
				log.Error().Err(err).Str("userId", user).Msg("Idempotency check failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed"})
				return
			}
			if !created {
				replay(c, idempStore, idempKey, hash)
				return
			}
		}

		line, total, err := carts.AddOrMerge(ctx, user, cart.LineItem{
			ProductID: req.ProductID,
			Name:      req.Name,
			Price:     req.Price,
			Size:      req.Size,
			Quantity:  req.Quantity,
			ImageURL:  req.ImageURL,
		})
		if err != nil {
			log.Error().Err(err).Str("userId", user).Str("productId", req.ProductID).Msg("Failed to add cart line")
			if idempKey != "" {
				if merr := idempStore.MarkFailed(ctx, idempKey, fmt.Sprintf("add_failed: %v", err)); merr != nil {
					log.Warn().Err(merr).Str("userId", user).Msg("Failed to mark idempotency key failed")
				}
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "add_failed"})
			return
		}

		resp := AddToCartResponse{CartItem: line, LineQuantity: total}
		if idempKey != "" {
			body, _ := json.Marshal(resp)
			if err := idempStore.MarkDone(ctx, idempKey, line.ID, string(body), http.StatusCreated); err != nil {
				log.Warn().Err(err).Str("userId", user).Msg("Failed to store idempotent response")
			}
		}
		c.JSON(http.StatusCreated, resp)
	})

	r.GET("/cart", func(c *gin.Context) {
		items, err := carts.List(c.Request.Context(), userID(c))
		if err != nil {
			log.Error().Err(err).Str("userId", userID(c)).Msg("Failed to list cart")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart_items": items})
	})

	r.PUT("/cart/:id", func(c *gin.Context) {
		var req validation.UpdateQuantityRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		err := carts.SetQuantity(c.Request.Context(), userID(c), c.Param("id"), req.Quantity)
		writeCartResult(c, err, "update")
	})

	r.DELETE("/cart/:id", func(c *gin.Context) {
		err := carts.Remove(c.Request.Context(), userID(c), c.Param("id"))
		writeCartResult(c, err, "remove")
	})

	r.DELETE("/cart", func(c *gin.Context) {
		err := carts.Clear(c.Request.Context(), userID(c))
		writeCartResult(c, err, "clear")
	})
}

func writeCartResult(c *gin.Context, err error, op string) {
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, cartstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		log.Error().Err(err).Str("userId", userID(c)).Str("op", op).Msg("Cart operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + "_failed"})
	}
}

// replay answers a request whose idempotency key was already used.
func replay(c *gin.Context, store *idempotency.Store, key, hash string) {
	rec, err := store.Get(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed"})
		return
	}
	if rec == nil {
		// expired and swept between the conditional put and the read
		c.JSON(http.StatusConflict, gin.H{"error": "retry_request"})
		return
	}
	if rec.RequestHash != "" && rec.RequestHash != hash {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency_key_reused"})
		return
	}

	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"resource_id": rec.ResourceID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress"})
	case idempotency.StatusFailed:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "previous_attempt_failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
	}
}

func requestHash(req validation.AddToCartRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
