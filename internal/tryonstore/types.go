package tryonstore

import (
	"time"

	"github.com/imrishuroy/go-tryon-cartflow/internal/tryon"
)

// Item is a try-on record as stored in the try-ons DynamoDB table.
type Item struct {
	TryOnID       string       `dynamodbav:"try_on_id"` // PK
	UserID        string       `dynamodbav:"user_id"`   // GSI partition key
	OriginalImage string       `dynamodbav:"original_image"`
	ResultImage   string       `dynamodbav:"result_image,omitempty"`
	ProductID     string       `dynamodbav:"product_id,omitempty"`
	Status        tryon.Status `dynamodbav:"status"`
	FailureReason string       `dynamodbav:"failure_reason,omitempty"`
	Attempts      int          `dynamodbav:"attempts,omitempty"`
	CreatedAt     time.Time    `dynamodbav:"created_at,unixtime"` // GSI sort key
	UpdatedAt     time.Time    `dynamodbav:"updated_at"`
}

// Record converts the stored item to its wire form.
func (i Item) Record() tryon.Record {
	r := tryon.Record{
		ID:            i.TryOnID,
		OriginalImage: i.OriginalImage,
		Status:        i.Status,
		ProductID:     i.ProductID,
		CreatedAt:     i.CreatedAt,
	}
	if i.Status == tryon.StatusCompleted {
		r.ResultImage = i.ResultImage
	}
	return r
}

// RenderMessage is the body of a render queue message.
type RenderMessage struct {
	TryOnID   string `json:"try_on_id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
}
