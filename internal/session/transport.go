package session

import (
	"context"
	"io"

	"github.com/imrishuroy/go-tryon-cartflow/internal/cart"
	"github.com/imrishuroy/go-tryon-cartflow/internal/catalog"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryon"
)

// AddToCartRequest is what the shopper picked on a product page.
type AddToCartRequest struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"image_url"`
}

// Transport is the remote side of every flow. Implementations own encoding,
// retries and timeouts.
type Transport interface {
	// UploadPhoto stores a photo and returns the created record.
	UploadPhoto(ctx context.Context, filename string, photo io.Reader) (tryon.Record, error)
	// ProcessTryOn renders productID onto the photo of tryOnID and returns
	// the result image reference.
	ProcessTryOn(ctx context.Context, tryOnID, productID string) (string, error)
	ListTryOns(ctx context.Context) ([]tryon.Record, error)

	// AddToCart returns the confirmed line. Its Quantity is the amount added,
	// not the line total.
	AddToCart(ctx context.Context, req AddToCartRequest) (cart.LineItem, error)
	ListCart(ctx context.Context) ([]cart.LineItem, error)
	RemoveCartLine(ctx context.Context, id string) error
	SetCartQuantity(ctx context.Context, id string, quantity int) error
	ClearCart(ctx context.Context) error

	// ListProducts and GetProduct read the catalog the shopper picks from.
	ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}
