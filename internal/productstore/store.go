// Package productstore reads and writes the product catalog table.
package productstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-tryon-cartflow/internal/aws"
	"github.com/imrishuroy/go-tryon-cartflow/internal/catalog"
)

// Store encapsulates operations on the products table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new products Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Put creates or replaces a product. A missing id is generated.
func (s *Store) Put(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.nowFunc().UTC()
	}
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	av, err := attributevalue.MarshalMap(p)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("marshal product: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      av,
	}); err != nil {
		return catalog.Product{}, fmt.Errorf("put product: %w", err)
	}
	return p, nil
}

// Get fetches a product by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*catalog.Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p catalog.Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// List returns the products matching f, ordered by name.
func (s *Store) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	input := &dyn.ScanInput{TableName: &s.tableName}

	var terms []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	if f.Category != "" {
		terms = append(terms, "#c = :c")
		names["#c"] = "category"
		values[":c"] = &types.AttributeValueMemberS{Value: f.Category}
	}
	if f.Brand != "" {
		terms = append(terms, "#b = :b")
		names["#b"] = "brand"
		values[":b"] = &types.AttributeValueMemberS{Value: f.Brand}
	}
	if len(terms) > 0 {
		filter := strings.Join(terms, " AND ")
		input.FilterExpression = &filter
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	products := []catalog.Product{}
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		var page []catalog.Product
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal products: %w", err)
		}
		products = append(products, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	sort.SliceStable(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}
