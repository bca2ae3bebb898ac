package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/imrishuroy/go-tryon-cartflow/internal/catalog"
	"github.com/imrishuroy/go-tryon-cartflow/internal/session"
)

// runner executes script lines against one session.
type runner struct {
	shop     *session.Shop
	out      io.Writer
	imageURL string

	cartLoaded bool
}

func (r *runner) run(ctx context.Context, lines [][]string) error {
	for i, fields := range lines {
		if err := r.exec(ctx, fields); err != nil {
			if len(lines) == 1 {
				return err
			}
			return fmt.Errorf("line %d (%s): %w", i+1, strings.Join(fields, " "), err)
		}
	}
	return nil
}

func (r *runner) exec(ctx context.Context, f []string) error {
	if len(f) == 0 {
		return nil
	}
	switch f[0] {
	case "upload":
		if len(f) != 2 {
			return fmt.Errorf("usage: upload <photo>")
		}
		photo, err := os.Open(f[1])
		if err != nil {
			return err
		}
		defer photo.Close()
		err = r.shop.Upload(ctx, f[1], photo)
		printTryOn(r.out, r.shop.TryOn.State())
		return err
	case "process":
		if len(f) != 2 {
			return fmt.Errorf("usage: process <productId>")
		}
		err := r.shop.Process(ctx, f[1])
		printTryOn(r.out, r.shop.TryOn.State())
		return err
	case "history":
		if err := r.shop.LoadHistory(ctx); err != nil {
			return err
		}
		printHistory(r.out, r.shop.TryOn.State())
		return nil
	case "reset":
		r.shop.ResetTryOn()
		printTryOn(r.out, r.shop.TryOn.State())
		return nil
	case "products":
		var filter catalog.Filter
		for _, arg := range f[1:] {
			k, v, ok := strings.Cut(arg, "=")
			switch {
			case ok && k == "category":
				filter.Category = v
			case ok && k == "brand":
				filter.Brand = v
			default:
				return fmt.Errorf("usage: products [category=<c>] [brand=<b>]")
			}
		}
		products, err := r.shop.Products(ctx, filter)
		if err != nil {
			return err
		}
		printProducts(r.out, products)
		return nil
	case "cart":
		if len(f) < 2 {
			return fmt.Errorf("usage: cart add|list|remove|qty|clear")
		}
		return r.cart(ctx, f[1], f[2:])
	default:
		return fmt.Errorf("unknown command %q", f[0])
	}
}

func (r *runner) cart(ctx context.Context, op string, args []string) error {
	if !r.cartLoaded {
		if err := r.shop.LoadCart(ctx); err != nil {
			return err
		}
		r.cartLoaded = true
	}

	var err error
	switch op {
	case "add":
		var req session.AddToCartRequest
		req, err = parseAdd(args)
		if err != nil {
			return err
		}
		if len(args) <= 3 {
			// no price given: name, price and image come from the catalog
			err = r.shop.AddProduct(ctx, req.ProductID, req.Size, req.Quantity)
			break
		}
		req.ImageURL = r.imageURL
		err = r.shop.AddToCart(ctx, req)
	case "list":
	case "remove":
		if len(args) != 1 {
			return fmt.Errorf("usage: cart remove <lineId>")
		}
		err = r.shop.RemoveFromCart(ctx, args[0])
	case "qty":
		if len(args) != 2 {
			return fmt.Errorf("usage: cart qty <lineId> <quantity>")
		}
		n, perr := strconv.Atoi(args[1])
		if perr != nil {
			return fmt.Errorf("quantity %q: %w", args[1], perr)
		}
		err = r.shop.UpdateQuantity(ctx, args[0], n)
	case "clear":
		err = r.shop.ClearCart(ctx)
	default:
		return fmt.Errorf("unknown cart command %q", op)
	}
	printCart(r.out, r.shop.Cart.State())
	return err
}

// parseAdd reads <productId> <size> [quantity] [price] [name...].
func parseAdd(args []string) (session.AddToCartRequest, error) {
	if len(args) < 2 {
		return session.AddToCartRequest{}, fmt.Errorf("usage: cart add <productId> <size> [quantity] [price] [name]")
	}
	req := session.AddToCartRequest{ProductID: args[0], Size: args[1], Quantity: 1, Name: args[0]}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return req, fmt.Errorf("quantity %q: %w", args[2], err)
		}
		req.Quantity = n
	}
	if len(args) > 3 {
		p, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return req, fmt.Errorf("price %q: %w", args[3], err)
		}
		req.Price = p
	}
	if len(args) > 4 {
		req.Name = strings.Join(args[4:], " ")
	}
	return req, nil
}

func readScript(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseScript(f)
}

func parseScript(r io.Reader) ([][]string, error) {
	var lines [][]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return lines, nil
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
