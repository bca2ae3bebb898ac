// Package client implements session.Transport over the try-on and cart HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-tryon-cartflow/internal/cart"
	"github.com/imrishuroy/go-tryon-cartflow/internal/catalog"
	"github.com/imrishuroy/go-tryon-cartflow/internal/session"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryon"
)

// ErrRenderFailed is returned by ProcessTryOn when the server marks the
// record failed.
var ErrRenderFailed = errors.New("render failed")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Code)
}

// retryable reports whether a cart add may be resent with the same key.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusConflict || e.StatusCode >= 500
}

// HTTPTransport talks to the API as one user.
type HTTPTransport struct {
	BaseURL      string
	UserID       string
	PollInterval time.Duration
	AddAttempts  int
	HTTP         *http.Client

	newKey func() string
}

var _ session.Transport = (*HTTPTransport)(nil)

// NewHTTPTransport returns a transport for baseURL acting as userID.
func NewHTTPTransport(baseURL, userID string, pollInterval time.Duration) *HTTPTransport {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &HTTPTransport{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		UserID:       userID,
		PollInterval: pollInterval,
		AddAttempts:  3,
		HTTP:         &http.Client{Timeout: 30 * time.Second},
		newKey:       uuid.NewString,
	}
}

func (t *HTTPTransport) UploadPhoto(ctx context.Context, filename string, photo io.Reader) (tryon.Record, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(photoHeader(filename))
	if err != nil {
		return tryon.Record{}, err
	}
	if _, err := io.Copy(part, photo); err != nil {
		return tryon.Record{}, fmt.Errorf("read photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return tryon.Record{}, err
	}

	var rec tryon.Record
	err = t.do(ctx, http.MethodPost, "/api/try-on/upload", &buf, mw.FormDataContentType(), nil, &rec)
	return rec, err
}

// ProcessTryOn starts the render and polls the record until it is terminal
// or ctx is done.
func (t *HTTPTransport) ProcessTryOn(ctx context.Context, tryOnID, productID string) (string, error) {
	body := map[string]string{"try_on_id": tryOnID, "product_id": productID}
	if err := t.doJSON(ctx, http.MethodPost, "/api/try-on/process", body, nil, nil); err != nil {
		return "", err
	}

	ticker := time.NewTicker(t.PollInterval)
	defer ticker.Stop()
	for {
		var rec tryon.Record
		if err := t.doJSON(ctx, http.MethodGet, "/api/try-on/"+url.PathEscape(tryOnID), nil, nil, &rec); err != nil {
			return "", err
		}
		switch rec.Status {
		case tryon.StatusCompleted:
			return rec.ResultImage, nil
		case tryon.StatusFailed:
			return "", fmt.Errorf("%w: %s", ErrRenderFailed, tryOnID)
		}
		log.Debug().Str("tryOnId", tryOnID).Str("status", string(rec.Status)).Msg("Waiting for render")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *HTTPTransport) ListTryOns(ctx context.Context) ([]tryon.Record, error) {
	var resp struct {
		TryOns []tryon.Record `json:"try_ons"`
	}
	err := t.doJSON(ctx, http.MethodGet, "/api/try-on/history", nil, nil, &resp)
	return resp.TryOns, err
}

// AddToCart sends req under one idempotency key, resending on transport
// errors, conflicts and 5xx so a retried add is never applied twice.
func (t *HTTPTransport) AddToCart(ctx context.Context, req session.AddToCartRequest) (cart.LineItem, error) {
	var resp struct {
		CartItem cart.LineItem `json:"cart_item"`
	}
	header := map[string]string{"Idempotency-Key": t.newKey()}

	attempts := t.AddAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			log.Warn().Err(err).Int("attempt", i+1).Str("productId", req.ProductID).Msg("Retrying add to cart")
			select {
			case <-ctx.Done():
				return cart.LineItem{}, ctx.Err()
			case <-time.After(t.PollInterval):
			}
		}
		err = t.doJSON(ctx, http.MethodPost, "/api/cart", req, header, &resp)
		if err == nil {
			return resp.CartItem, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			break
		}
	}
	return cart.LineItem{}, err
}

func (t *HTTPTransport) ListCart(ctx context.Context) ([]cart.LineItem, error) {
	var resp struct {
		CartItems []cart.LineItem `json:"cart_items"`
	}
	err := t.doJSON(ctx, http.MethodGet, "/api/cart", nil, nil, &resp)
	return resp.CartItems, err
}

func (t *HTTPTransport) RemoveCartLine(ctx context.Context, id string) error {
	return t.doJSON(ctx, http.MethodDelete, "/api/cart/"+url.PathEscape(id), nil, nil, nil)
}

func (t *HTTPTransport) SetCartQuantity(ctx context.Context, id string, quantity int) error {
	body := map[string]int{"quantity": quantity}
	return t.doJSON(ctx, http.MethodPut, "/api/cart/"+url.PathEscape(id), body, nil, nil)
}

func (t *HTTPTransport) ClearCart(ctx context.Context) error {
	return t.doJSON(ctx, http.MethodDelete, "/api/cart", nil, nil, nil)
}

func (t *HTTPTransport) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Brand != "" {
		q.Set("brand", f.Brand)
	}
	path := "/api/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Products []catalog.Product `json:"products"`
	}
	err := t.doJSON(ctx, http.MethodGet, path, nil, nil, &resp)
	return resp.Products, err
}

func (t *HTTPTransport) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	var resp struct {
		Product catalog.Product `json:"product"`
	}
	err := t.doJSON(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, nil, &resp)
	return resp.Product, err
}

func (t *HTTPTransport) doJSON(ctx context.Context, method, path string, in interface{}, header map[string]string, out interface{}) error {
	var body io.Reader
	var contentType string
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return t.do(ctx, method, path, body, contentType, header, out)
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, body io.Reader, contentType string, header map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, t.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-User-Id", t.UserID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := t.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func photoHeader(filename string) textproto.MIMEHeader {
	ct := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		ct = "image/jpeg"
	case ".png":
		ct = "image/png"
	case ".webp":
		ct = "image/webp"
	}
	return textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="photo"; filename="%s"`, filepath.Base(filename))},
		"Content-Type":        {ct},
	}
}
