package main

import (
	"context"

	"github.com/imrishuroy/go-tryon-cartflow/internal/tryonstore"
)

// Renderer produces the try-on image for a record and product and returns
// its storage reference.
type Renderer interface {
	Render(ctx context.Context, item tryonstore.Item, productID string) (string, error)
}

// PassThroughRenderer returns the original photo as the result. It stands
// in until a real image model is wired.
type PassThroughRenderer struct{}

func (PassThroughRenderer) Render(ctx context.Context, item tryonstore.Item, productID string) (string, error) {
	return item.OriginalImage, nil
}

// Metric names published by the worker.
const (
	metricCompleted = "RenderCompleted"
	metricFailed    = "RenderFailed"
	metricSkipped   = "RenderSkipped"
)
