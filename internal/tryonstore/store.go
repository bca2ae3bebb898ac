// Package tryonstore persists try-on records in DynamoDB. Status changes are
// conditional on the expected current status so the API and the render
// worker cannot move a record backwards.
package tryonstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-tryon-cartflow/internal/aws"
	"github.com/imrishuroy/go-tryon-cartflow/internal/tryon"
)

// UserIndex is the GSI on (user_id, created_at).
const UserIndex = "user_id-created_at-index"

var (
	// ErrStatusMismatch is returned when a conditional status change fails.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrNotFound is returned when the record does not exist or belongs to another user.
	ErrNotFound = errors.New("try-on not found")
	// ErrExists is returned by Create for a duplicate id.
	ErrExists = errors.New("try-on already exists")
)

// Store encapsulates operations on the try-ons table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new try-ons Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create writes a new record. Status is forced to pending.
func (s *Store) Create(ctx context.Context, item Item) (Item, error) {
	now := s.nowFunc().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.Status = tryon.StatusPending
	item.ResultImage = ""

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return Item{}, fmt.Errorf("marshal try-on: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: awsString("attribute_not_exists(try_on_id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return Item{}, ErrExists
		}
		return Item{}, fmt.Errorf("put item: %w", err)
	}
	return item, nil
}

// Get fetches a record by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, tryOnID string) (*Item, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key(tryOnID),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var it Item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal try-on: %w", err)
	}
	return &it, nil
}

// ListByUser returns the user's records, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Item, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(UserIndex),
		KeyConditionExpression: awsString("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: awsBool(false),
	}

	var items []Item
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query try-ons: %w", err)
		}
		var page []Item
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal try-ons: %w", err)
		}
		items = append(items, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return items, nil
}

// StartProcessing moves a pending record owned by userID to processing and
// records the product being rendered.
func (s *Store) StartProcessing(ctx context.Context, tryOnID, userID, productID string) error {
	return s.transition(ctx, tryOnID, tryon.StatusPending, tryon.StatusProcessing,
		"user_id = :u", map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		"product_id = :p", map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: productID},
		})
}

// Complete moves a processing record to completed with its result image.
func (s *Store) Complete(ctx context.Context, tryOnID, resultImage string) error {
	return s.transition(ctx, tryOnID, tryon.StatusProcessing, tryon.StatusCompleted, "", nil,
		"result_image = :r", map[string]types.AttributeValue{
			":r": &types.AttributeValueMemberS{Value: resultImage},
		})
}

// Fail moves a processing record to failed.
func (s *Store) Fail(ctx context.Context, tryOnID, reason string) error {
	return s.transition(ctx, tryOnID, tryon.StatusProcessing, tryon.StatusFailed, "", nil,
		"failure_reason = :fr", map[string]types.AttributeValue{
			":fr": &types.AttributeValueMemberS{Value: reason},
		})
}

// transition conditionally updates status from expected -> next. extraCond
// and extraSet are AND-ed onto the condition and appended to the SET clause.
func (s *Store) transition(ctx context.Context, tryOnID string, expected, next tryon.Status, extraCond string, condValues map[string]types.AttributeValue, extraSet string, setValues map[string]types.AttributeValue) error {
	now := s.nowFunc().UTC()

	updateExpr := "SET #s = :new, updated_at = :ua"
	if extraSet != "" {
		updateExpr += ", " + extraSet
	}
	cond := "#s = :expected"
	if extraCond != "" {
		cond += " AND " + extraCond
	}

	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: string(next)},
		":expected": &types.AttributeValueMemberS{Value: string(expected)},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
	}
	for k, v := range condValues {
		values[k] = v
	}
	for k, v := range setValues {
		values[k] = v
	}

	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       key(tryOnID),
		UpdateExpression:          &updateExpr,
		ConditionExpression:       &cond,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// IncrementAttempts increases the attempts counter by 1 (render retries).
func (s *Store) IncrementAttempts(ctx context.Context, tryOnID string) error {
	now := s.nowFunc().UTC()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       key(tryOnID),
		UpdateExpression:          awsString("SET attempts = if_not_exists(attempts, :zero) + :inc, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":zero": &types.AttributeValueMemberN{Value: "0"}, ":inc": &types.AttributeValueMemberN{Value: "1"}, ":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

// Delete removes a record owned by userID.
func (s *Store) Delete(ctx context.Context, tryOnID, userID string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:           &s.tableName,
		Key:                 key(tryOnID),
		ConditionExpression: awsString("attribute_exists(try_on_id) AND user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func key(tryOnID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"try_on_id": &types.AttributeValueMemberS{Value: tryOnID},
	}
}

func isConditionFailed(err error) bool {
	var cc *types.ConditionalCheckFailedException
	return errors.As(err, &cc)
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
