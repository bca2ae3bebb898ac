package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/imrishuroy/go-tryon-cartflow/internal/cart"
	"github.com/imrishuroy/go-tryon-cartflow/internal/catalog"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryon"
)

func printTryOn(w io.Writer, s tryon.State) {
	cur, ok := s.Current()
	switch {
	case !ok:
		fmt.Fprintln(w, "try-on: none")
	case cur.Status == tryon.StatusCompleted:
		fmt.Fprintf(w, "try-on %s: %s (result %s)\n", cur.ID, cur.Status, cur.ResultImage)
	default:
		fmt.Fprintf(w, "try-on %s: %s\n", cur.ID, cur.Status)
	}
	if msg := s.Err(); msg != "" {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
}

func printHistory(w io.Writer, s tryon.State) {
	hist := s.History()
	if len(hist) == 0 {
		fmt.Fprintln(w, "history: empty")
		return
	}
	for _, r := range hist {
		line := fmt.Sprintf("%s  %-10s  %s", r.CreatedAt.Format("2006-01-02 15:04"), r.Status, r.ID)
		if r.ProductID != "" {
			line += "  product=" + r.ProductID
		}
		if r.ResultImage != "" {
			line += "  result=" + r.ResultImage
		}
		fmt.Fprintln(w, line)
	}
}

func printCart(w io.Writer, s cart.State) {
	items := s.Items()
	if len(items) == 0 {
		fmt.Fprintln(w, "cart: empty")
	}
	for _, it := range items {
		fmt.Fprintf(w, "%s  %s (%s) x%d  %.2f\n", it.ID, it.Name, it.Size, it.Quantity, it.Price*float64(it.Quantity))
	}
	if len(items) > 0 {
		fmt.Fprintf(w, "items: %d  subtotal: %.2f\n", s.TotalQuantity(), s.Subtotal())
	}
	if msg := s.Err(); msg != "" {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
}

func printProducts(w io.Writer, products []catalog.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "products: none")
		return
	}
	for _, p := range products {
		fmt.Fprintf(w, "%s  %s  %.2f  [%s]  sizes=%s\n", p.ID, p.Name, p.Price, p.Category, strings.Join(p.Sizes, ","))
	}
}
