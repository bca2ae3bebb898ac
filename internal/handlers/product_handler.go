package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-tryon-cartflow/internal/catalog"
	"github.com/imrishuroy/go-tryon-cartflow/internal/productstore"
	"github.com/imrishuroy/go-tryon-cartflow/internal/validation"
)

// RegisterProductRoutes registers the read-only catalog routes under /products.
func RegisterProductRoutes(r gin.IRoutes, cfg HandlerConfig) {
	v := validation.New()
	store := productstore.NewStore(cfg.DynamoDBClient, cfg.ProductsTable)

	r.GET("/products", func(c *gin.Context) {
		var q validation.ListProductsQuery
		if err := validation.BindQueryAndValidate(c, &q, v); err != nil {
			return
		}
		products, err := store.List(c.Request.Context(), catalog.Filter{Category: q.Category, Brand: q.Brand})
		if err != nil {
			log.Error().Err(err).Str("category", q.Category).Str("brand", q.Brand).Msg("Failed to list products")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
	})

	r.GET("/products/:id", func(c *gin.Context) {
		p, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			log.Error().Err(err).Str("productId", c.Param("id")).Msg("Failed to load product")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
			return
		}
		if p == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": p})
	})
}
