package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-tryon-cartflow/internal/cart"
	"github.com/imrishuroy/go-tryon-cartflow/internal/catalog"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryon"
)

// Messages shown to the shopper when a flow fails.
const (
	MsgUploadFailed  = "Failed to upload photo"
	MsgProcessFailed = "Failed to process try-on"
	MsgAddFailed     = "Failed to add item to cart"
)

var (
	// ErrNoCurrentTryOn is returned by Process when no photo has been uploaded.
	ErrNoCurrentTryOn = errors.New("no current try-on")
	// ErrNoProductSelected is returned by Process without a product id.
	ErrNoProductSelected = errors.New("no product selected")
	// ErrInvalidQuantity is returned by UpdateQuantity for quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrUnknownLine is returned for cart line ids not in the cart.
	ErrUnknownLine = errors.New("unknown cart line")
	// ErrSizeUnavailable is returned by AddProduct for a size the product
	// is not offered in.
	ErrSizeUnavailable = errors.New("size not available")
)

// TryOnStore is the store holding try-on state.
type TryOnStore = Store[tryon.State, tryon.Event]

// CartStore is the store holding cart state.
type CartStore = Store[cart.State, cart.Event]

// Shop runs the shopper's flows: each one emits a begin event, calls the
// transport and emits the matching complete or fail event. Shop never
// mutates state except through the stores.
type Shop struct {
	TryOn *TryOnStore
	Cart  *CartStore

	transport Transport
}

// NewShop returns a Shop with empty stores.
func NewShop(t Transport) *Shop {
	return &Shop{
		TryOn:     NewStore[tryon.State, tryon.Event]("tryon", tryon.New(), tryon.Apply),
		Cart:      NewStore[cart.State, cart.Event]("cart", cart.New(), cart.Apply),
		transport: t,
	}
}

// Upload sends photo and makes the created record current.
func (s *Shop) Upload(ctx context.Context, filename string, photo io.Reader) error {
	s.TryOn.Dispatch(tryon.BeginUpload{})

	rec, err := s.transport.UploadPhoto(ctx, filename, photo)
	if err != nil {
		log.Error().Err(err).Str("file", filename).Msg("Upload failed")
		s.TryOn.Dispatch(tryon.FailUpload{Message: MsgUploadFailed})
		return fmt.Errorf("upload photo: %w", err)
	}

	s.TryOn.Dispatch(tryon.CompleteUpload{Record: rec})
	log.Info().Str("tryOnId", rec.ID).Msg("Photo uploaded")
	return nil
}

// Process renders productID onto the current record. The product id has
// to come from the shopper's selection; Process refuses to start without it.
func (s *Shop) Process(ctx context.Context, productID string) error {
	cur, ok := s.TryOn.State().Current()
	if !ok {
		return ErrNoCurrentTryOn
	}
	if productID == "" {
		return ErrNoProductSelected
	}

	s.TryOn.Dispatch(tryon.BeginProcess{})

	img, err := s.transport.ProcessTryOn(ctx, cur.ID, productID)
	if err != nil {
		log.Error().Err(err).Str("tryOnId", cur.ID).Str("productId", productID).Msg("Try-on processing failed")
		s.TryOn.Dispatch(tryon.FailProcess{Message: MsgProcessFailed})
		return fmt.Errorf("process try-on %s: %w", cur.ID, err)
	}

	s.TryOn.Dispatch(tryon.CompleteProcess{ID: cur.ID, ResultImage: img})
	log.Info().Str("tryOnId", cur.ID).Msg("Try-on completed")
	return nil
}

// LoadHistory replaces the history with the server's copy.
func (s *Shop) LoadHistory(ctx context.Context) error {
	records, err := s.transport.ListTryOns(ctx)
	if err != nil {
		return fmt.Errorf("list try-ons: %w", err)
	}
	s.TryOn.Dispatch(tryon.ReplaceHistory{Records: records})
	return nil
}

// ResetTryOn drops the current record so a new photo can be uploaded.
func (s *Shop) ResetTryOn() {
	s.TryOn.Dispatch(tryon.ClearCurrent{})
}

// AddToCart adds req and merges the confirmed line into the cart.
func (s *Shop) AddToCart(ctx context.Context, req AddToCartRequest) error {
	s.Cart.Dispatch(cart.BeginAdd{})

	item, err := s.transport.AddToCart(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("productId", req.ProductID).Str("size", req.Size).Msg("Add to cart failed")
		s.Cart.Dispatch(cart.FailAdd{Message: MsgAddFailed})
		return fmt.Errorf("add to cart: %w", err)
	}

	s.Cart.Dispatch(cart.CompleteAdd{Item: item})
	return nil
}

// Products lists the catalog.
func (s *Shop) Products(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	products, err := s.transport.ListProducts(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// AddProduct adds a catalog product in size, taking name, price and image
// from the catalog entry.
func (s *Shop) AddProduct(ctx context.Context, productID, size string, quantity int) error {
	p, err := s.transport.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product %s: %w", productID, err)
	}
	if len(p.Sizes) > 0 && !p.HasSize(size) {
		return fmt.Errorf("%w: %s in %s", ErrSizeUnavailable, productID, size)
	}
	return s.AddToCart(ctx, AddToCartRequest{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Size:      size,
		Quantity:  quantity,
		ImageURL:  p.ImageURL,
	})
}

// LoadCart replaces the cart with the server's copy.
func (s *Shop) LoadCart(ctx context.Context) error {
	items, err := s.transport.ListCart(ctx)
	if err != nil {
		return fmt.Errorf("list cart: %w", err)
	}
	s.Cart.Dispatch(cart.ReplaceAll{Items: items})
	return nil
}

// RemoveFromCart removes the line on the server, then locally.
func (s *Shop) RemoveFromCart(ctx context.Context, id string) error {
	if _, ok := s.Cart.State().Find(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLine, id)
	}
	if err := s.transport.RemoveCartLine(ctx, id); err != nil {
		return fmt.Errorf("remove cart line %s: %w", id, err)
	}
	s.Cart.Dispatch(cart.Remove{ID: id})
	return nil
}

// UpdateQuantity sets a line's quantity. Quantities below one are rejected
// here; the cart state itself accepts any value.
func (s *Shop) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if _, ok := s.Cart.State().Find(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLine, id)
	}
	if err := s.transport.SetCartQuantity(ctx, id, quantity); err != nil {
		return fmt.Errorf("set quantity %s: %w", id, err)
	}
	s.Cart.Dispatch(cart.SetQuantity{ID: id, Quantity: quantity})
	return nil
}

// ClearCart empties the cart on the server, then locally.
func (s *Shop) ClearCart(ctx context.Context) error {
	if err := s.transport.ClearCart(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	s.Cart.Dispatch(cart.Clear{})
	return nil
}
