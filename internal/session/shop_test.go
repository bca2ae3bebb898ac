package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-tryon-cartflow/internal/cart"
	"github.com/imrishuroy/go-tryon-cartflow/internal/catalog"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryon"
)

type fakeTransport struct {
	mu sync.Mutex

	uploadErr  error
	processErr error
	addErr     error
	removeErr  error

	nextID   int
	history  []tryon.Record
	cart     []cart.LineItem
	removed  []string
	setQty   map[string]int
	cleared  bool
	lastProc [2]string
	products []catalog.Product
}

func (f *fakeTransport) UploadPhoto(ctx context.Context, filename string, photo io.Reader) (tryon.Record, error) {
	if f.uploadErr != nil {
		return tryon.Record{}, f.uploadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b, _ := io.ReadAll(photo)
	return tryon.Record{
		ID:            "t" + string(rune('0'+f.nextID)),
		OriginalImage: "uploads/" + filename + ":" + string(b),
		Status:        tryon.StatusPending,
		CreatedAt:     time.Date(2024, 5, 1, 10, 0, f.nextID, 0, time.UTC),
	}, nil
}

func (f *fakeTransport) ProcessTryOn(ctx context.Context, tryOnID, productID string) (string, error) {
	f.mu.Lock()
	f.lastProc = [2]string{tryOnID, productID}
	f.mu.Unlock()
	if f.processErr != nil {
		return "", f.processErr
	}
	return "results/" + tryOnID + ".png", nil
}

func (f *fakeTransport) ListTryOns(ctx context.Context) ([]tryon.Record, error) {
	return f.history, nil
}

func (f *fakeTransport) AddToCart(ctx context.Context, req AddToCartRequest) (cart.LineItem, error) {
	if f.addErr != nil {
		return cart.LineItem{}, f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return cart.LineItem{
		ID:        "line-" + string(rune('0'+f.nextID)),
		ProductID: req.ProductID,
		Name:      req.Name,
		Price:     req.Price,
		Size:      req.Size,
		Quantity:  req.Quantity,
		ImageURL:  req.ImageURL,
	}, nil
}

func (f *fakeTransport) ListCart(ctx context.Context) ([]cart.LineItem, error) {
	return f.cart, nil
}

func (f *fakeTransport) RemoveCartLine(ctx context.Context, id string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeTransport) SetCartQuantity(ctx context.Context, id string, quantity int) error {
	if f.setQty == nil {
		f.setQty = map[string]int{}
	}
	f.setQty[id] = quantity
	return nil
}

func (f *fakeTransport) ClearCart(ctx context.Context) error {
	f.cleared = true
	return nil
}

func (f *fakeTransport) ListProducts(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range f.products {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeTransport) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, errors.New("product not found")
}

func TestShop_UploadThenProcess(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	shop := NewShop(ft)

	require.NoError(t, shop.Upload(ctx, "me.jpg", strings.NewReader("x")))

	cur, ok := shop.TryOn.State().Current()
	require.True(t, ok)
	assert.Equal(t, tryon.StatusPending, cur.Status)
	assert.False(t, shop.TryOn.State().Loading())

	require.NoError(t, shop.Process(ctx, "prod-1"))
	assert.Equal(t, [2]string{cur.ID, "prod-1"}, ft.lastProc)

	st := shop.TryOn.State()
	cur, _ = st.Current()
	assert.Equal(t, tryon.StatusCompleted, cur.Status)
	assert.Equal(t, "results/"+cur.ID+".png", cur.ResultImage)
	require.Len(t, st.History(), 1)
	assert.Equal(t, tryon.StatusCompleted, st.History()[0].Status)
}

func TestShop_UploadFailure(t *testing.T) {
	shop := NewShop(&fakeTransport{uploadErr: errors.New("boom")})

	err := shop.Upload(context.Background(), "me.jpg", strings.NewReader("x"))
	require.Error(t, err)

	st := shop.TryOn.State()
	assert.Equal(t, MsgUploadFailed, st.Err())
	assert.False(t, st.Loading())
	_, ok := st.Current()
	assert.False(t, ok)
}

func TestShop_ProcessFailureMarksRecordFailed(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	shop := NewShop(ft)
	require.NoError(t, shop.Upload(ctx, "me.jpg", strings.NewReader("x")))

	ft.processErr = errors.New("render crashed")
	require.Error(t, shop.Process(ctx, "prod-1"))

	st := shop.TryOn.State()
	cur, _ := st.Current()
	assert.Equal(t, tryon.StatusFailed, cur.Status)
	assert.Equal(t, tryon.StatusFailed, st.History()[0].Status)
	assert.Equal(t, MsgProcessFailed, st.Err())
}

func TestShop_ProcessPreconditions(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	shop := NewShop(ft)

	assert.ErrorIs(t, shop.Process(ctx, "prod-1"), ErrNoCurrentTryOn)

	require.NoError(t, shop.Upload(ctx, "me.jpg", strings.NewReader("x")))
	assert.ErrorIs(t, shop.Process(ctx, ""), ErrNoProductSelected)

	cur, _ := shop.TryOn.State().Current()
	assert.Equal(t, tryon.StatusPending, cur.Status, "refused process leaves record untouched")
	assert.Empty(t, ft.lastProc[0])
}

func TestShop_LoadHistoryAndReset(t *testing.T) {
	ft := &fakeTransport{history: []tryon.Record{
		{ID: "h2", Status: tryon.StatusCompleted, ResultImage: "r2"},
		{ID: "h1", Status: tryon.StatusFailed},
	}}
	shop := NewShop(ft)
	ctx := context.Background()
	require.NoError(t, shop.Upload(ctx, "me.jpg", strings.NewReader("x")))

	require.NoError(t, shop.LoadHistory(ctx))
	hist := shop.TryOn.State().History()
	require.Len(t, hist, 2)
	assert.Equal(t, "h2", hist[0].ID)

	shop.ResetTryOn()
	_, ok := shop.TryOn.State().Current()
	assert.False(t, ok)
}

func TestShop_CartFlow(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	shop := NewShop(ft)

	req := AddToCartRequest{ProductID: "p1", Name: "Tee", Price: 20, Size: "M", Quantity: 1}
	require.NoError(t, shop.AddToCart(ctx, req))
	req.Quantity = 2
	require.NoError(t, shop.AddToCart(ctx, req))

	items := shop.Cart.State().Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	id := items[0].ID

	assert.ErrorIs(t, shop.UpdateQuantity(ctx, id, 0), ErrInvalidQuantity)
	require.NoError(t, shop.UpdateQuantity(ctx, id, 5))
	assert.Equal(t, 5, ft.setQty[id])
	assert.Equal(t, 5, shop.Cart.State().Items()[0].Quantity)

	assert.ErrorIs(t, shop.RemoveFromCart(ctx, "nope"), ErrUnknownLine)
	require.NoError(t, shop.RemoveFromCart(ctx, id))
	assert.Equal(t, []string{id}, ft.removed)
	assert.Equal(t, 0, shop.Cart.State().Len())
}

func TestShop_AddToCartFailure(t *testing.T) {
	shop := NewShop(&fakeTransport{addErr: errors.New("503")})

	require.Error(t, shop.AddToCart(context.Background(), AddToCartRequest{ProductID: "p1", Size: "M", Quantity: 1}))
	st := shop.Cart.State()
	assert.Equal(t, MsgAddFailed, st.Err())
	assert.False(t, st.Loading())
	assert.Equal(t, 0, st.Len())
}

func TestShop_RemoveFailureKeepsLine(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	shop := NewShop(ft)
	require.NoError(t, shop.AddToCart(ctx, AddToCartRequest{ProductID: "p1", Size: "M", Quantity: 1}))

	ft.removeErr = errors.New("down")
	id := shop.Cart.State().Items()[0].ID
	require.Error(t, shop.RemoveFromCart(ctx, id))
	assert.Equal(t, 1, shop.Cart.State().Len())
}

func TestShop_LoadAndClearCart(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{cart: []cart.LineItem{
		{ID: "a", ProductID: "p1", Size: "M", Quantity: 1},
		{ID: "b", ProductID: "p2", Size: "L", Quantity: 2},
	}}
	shop := NewShop(ft)

	require.NoError(t, shop.LoadCart(ctx))
	assert.Equal(t, 3, shop.Cart.State().TotalQuantity())

	require.NoError(t, shop.ClearCart(ctx))
	assert.True(t, ft.cleared)
	assert.Equal(t, 0, shop.Cart.State().Len())
}

func TestShop_Products(t *testing.T) {
	tr := &fakeTransport{products: []catalog.Product{
		{ID: "1", Name: "Classic Tee", Category: "shirts"},
		{ID: "2", Name: "Denim Jacket", Category: "jackets"},
	}}
	shop := NewShop(tr)

	got, err := shop.Products(context.Background(), catalog.Filter{Category: "jackets"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestShop_AddProductUsesCatalogEntry(t *testing.T) {
	tr := &fakeTransport{products: []catalog.Product{
		{ID: "1", Name: "Classic Tee", Price: 19.99, ImageURL: "https://cdn.example.com/tee.jpg", Sizes: []string{"S", "M"}},
	}}
	shop := NewShop(tr)
	ctx := context.Background()

	require.NoError(t, shop.AddProduct(ctx, "1", "M", 2))
	items := shop.Cart.State().Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Classic Tee", items[0].Name)
	assert.InDelta(t, 19.99, items[0].Price, 0.0001)
	assert.Equal(t, "https://cdn.example.com/tee.jpg", items[0].ImageURL)
	assert.Equal(t, 2, items[0].Quantity)

	err := shop.AddProduct(ctx, "1", "XL", 1)
	assert.ErrorIs(t, err, ErrSizeUnavailable)
	assert.Empty(t, shop.Cart.State().Err(), "a rejected size never starts an add")

	err = shop.AddProduct(ctx, "9", "M", 1)
	require.Error(t, err)
	assert.Equal(t, 1, shop.Cart.State().Len())
}
