// Package cartstore persists cart lines in DynamoDB, one item per
// (user, product, size). Adding an existing (product, size) increments the
// stored quantity in place.
package cartstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/go-tryon-cartflow/internal/aws"
	"github.com/imrishuroy/go-tryon-cartflow/internal/cart"
)

// ErrNotFound is returned when a line id is not in the user's cart.
var ErrNotFound = errors.New("cart line not found")

// Line is a cart line as stored in the cart table.
type Line struct {
	UserID    string  `dynamodbav:"user_id"`  // PK
	LineKey   string  `dynamodbav:"line_key"` // SK: see LineKey
	LineID    string  `dynamodbav:"line_id"`
	ProductID string  `dynamodbav:"product_id"`
	Name      string  `dynamodbav:"name"`
	Price     float64 `dynamodbav:"price"`
	Size      string  `dynamodbav:"size"`
	Quantity  int     `dynamodbav:"quantity"`
	ImageURL  string  `dynamodbav:"image_url,omitempty"`
	AddedAt   int64   `dynamodbav:"added_at"` // unix nanos of the first add
	UpdatedAt string  `dynamodbav:"updated_at"`
}

// LineItem converts the stored line to its wire form.
func (l Line) LineItem() cart.LineItem {
	return cart.LineItem{
		ID:        l.LineID,
		ProductID: l.ProductID,
		Name:      l.Name,
		Price:     l.Price,
		Size:      l.Size,
		Quantity:  l.Quantity,
		ImageURL:  l.ImageURL,
	}
}

// LineKey is the sort key for a (product, size) pair. The product id is
// length-prefixed so a '#' inside either field cannot make two pairs share
// a key.
func LineKey(productID, size string) string {
	return strconv.Itoa(len(productID)) + ":" + productID + "#" + size
}

// Store encapsulates operations on the cart table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	newID     func() string
}

// NewStore creates a new cart Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

// AddOrMerge adds item to the user's cart. When a line for the same product
// and size exists its quantity is incremented and its id, name, price and
// image are kept. The returned line carries the stored id and descriptive
// fields with Quantity set to the amount added, so callers can merge it into
// a local cart without double counting. The stored total is returned second.
func (s *Store) AddOrMerge(ctx context.Context, userID string, item cart.LineItem) (cart.LineItem, int, error) {
	now := s.nowFunc().UTC()
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key:       lineKey(userID, LineKey(item.ProductID, item.Size)),
		UpdateExpression: awsString("SET line_id = if_not_exists(line_id, :id), product_id = :p, #n = if_not_exists(#n, :n), " +
			"price = if_not_exists(price, :pr), #sz = :sz, image_url = if_not_exists(image_url, :img), " +
			"added_at = if_not_exists(added_at, :at), updated_at = :ua ADD quantity :q"),
		ExpressionAttributeNames: map[string]string{"#n": "name", "#sz": "size"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id":  &types.AttributeValueMemberS{Value: s.newID()},
			":p":   &types.AttributeValueMemberS{Value: item.ProductID},
			":n":   &types.AttributeValueMemberS{Value: item.Name},
			":pr":  &types.AttributeValueMemberN{Value: strconv.FormatFloat(item.Price, 'f', -1, 64)},
			":sz":  &types.AttributeValueMemberS{Value: item.Size},
			":img": &types.AttributeValueMemberS{Value: item.ImageURL},
			":at":  &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixNano(), 10)},
			":ua":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":q":   &types.AttributeValueMemberN{Value: strconv.Itoa(item.Quantity)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return cart.LineItem{}, 0, fmt.Errorf("add cart line: %w", err)
	}

	var stored Line
	if err := attributevalue.UnmarshalMap(out.Attributes, &stored); err != nil {
		return cart.LineItem{}, 0, fmt.Errorf("unmarshal cart line: %w", err)
	}
	added := stored.LineItem()
	added.Quantity = item.Quantity
	return added, stored.Quantity, nil
}

// List returns the user's lines in the order they were first added.
func (s *Store) List(ctx context.Context, userID string) ([]cart.LineItem, error) {
	lines, err := s.query(ctx, userID, "", nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].AddedAt < lines[j].AddedAt })

	items := make([]cart.LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, l.LineItem())
	}
	return items, nil
}

// Remove deletes the line with lineID.
func (s *Store) Remove(ctx context.Context, userID, lineID string) error {
	l, err := s.find(ctx, userID, lineID)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key:       lineKey(userID, l.LineKey),
	})
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

// SetQuantity overwrites the quantity of the line with lineID.
func (s *Store) SetQuantity(ctx context.Context, userID, lineID string, quantity int) error {
	l, err := s.find(ctx, userID, lineID)
	if err != nil {
		return err
	}
	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 lineKey(userID, l.LineKey),
		UpdateExpression:    awsString("SET quantity = :q, updated_at = :ua"),
		ConditionExpression: awsString("line_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q":  &types.AttributeValueMemberN{Value: strconv.Itoa(quantity)},
			":ua": &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339)},
			":id": &types.AttributeValueMemberS{Value: lineID},
		},
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrNotFound
		}
		return fmt.Errorf("set quantity: %w", err)
	}
	return nil
}

// Clear deletes every line of the user's cart.
func (s *Store) Clear(ctx context.Context, userID string) error {
	lines, err := s.query(ctx, userID, "", nil)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, l := range lines {
		l := l
		g.Go(func() error {
			_, err := s.client.DeleteItem(gctx, &dyn.DeleteItemInput{
				TableName: &s.tableName,
				Key:       lineKey(userID, l.LineKey),
			})
			if err != nil {
				return fmt.Errorf("delete cart line %s: %w", l.LineID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Store) find(ctx context.Context, userID, lineID string) (Line, error) {
	lines, err := s.query(ctx, userID, "line_id = :id", map[string]types.AttributeValue{
		":id": &types.AttributeValueMemberS{Value: lineID},
	})
	if err != nil {
		return Line{}, err
	}
	if len(lines) == 0 {
		return Line{}, ErrNotFound
	}
	return lines[0], nil
}

func (s *Store) query(ctx context.Context, userID, filter string, filterValues map[string]types.AttributeValue) ([]Line, error) {
	values := map[string]types.AttributeValue{
		":u": &types.AttributeValueMemberS{Value: userID},
	}
	for k, v := range filterValues {
		values[k] = v
	}
	input := &dyn.QueryInput{
		TableName:                 &s.tableName,
		KeyConditionExpression:    awsString("user_id = :u"),
		ExpressionAttributeValues: values,
	}
	if filter != "" {
		input.FilterExpression = &filter
	}

	var lines []Line
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query cart: %w", err)
		}
		var page []Line
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal cart lines: %w", err)
		}
		lines = append(lines, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return lines, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func lineKey(userID, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id":  &types.AttributeValueMemberS{Value: userID},
		"line_key": &types.AttributeValueMemberS{Value: key},
	}
}

func awsString(s string) *string { return &s }
