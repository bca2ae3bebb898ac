package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-tryon-cartflow/internal/aws/awstest"
)

const table = "idempotency-table"

func newTestStore() (*Store, *awstest.DynamoDB) {
	db := awstest.NewDynamoDB().CreateTable(table, "idempotency_key", "")
	return NewStore(db, table, 48*time.Hour), db
}

func rawItem(t *testing.T, db *awstest.DynamoDB, key string) map[string]types.AttributeValue {
	t.Helper()
	for _, it := range db.Items(table) {
		if k, ok := it["idempotency_key"].(*types.AttributeValueMemberS); ok && k.Value == key {
			return it
		}
	}
	t.Fatalf("item %s missing", key)
	return nil
}

func TestCreateIfNotExists_Get_MarkDone_MarkFailed(t *testing.T) {
	s, db := newTestStore()
	ctx := context.Background()
	key := "u1#test-key-1"

	created, err := s.CreateIfNotExists(ctx, key, "hash-1")
	if err != nil {
		t.Fatalf("CreateIfNotExists error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	// second create should return created=false (exists)
	created2, err := s.CreateIfNotExists(ctx, key, "hash-1")
	if err != nil {
		t.Fatalf("second CreateIfNotExists error: %v", err)
	}
	if created2 {
		t.Fatalf("expected created=false on duplicate create")
	}

	rec, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected record, got nil")
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", rec.Status)
	}
	if rec.RequestHash != "hash-1" {
		t.Fatalf("request hash mismatch: %q", rec.RequestHash)
	}

	if err := s.MarkDone(ctx, key, "line-1", "{\"ok\":true}", 201); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}
	item := rawItem(t, db, key)
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusDone {
		t.Fatalf("status not updated to DONE, got %+v", item["status"])
	}
	if rb, ok := item["response_body"].(*types.AttributeValueMemberS); !ok || rb.Value != "{\"ok\":true}" {
		t.Fatalf("response_body not set correctly: %+v", item["response_body"])
	}

	rec, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after done: %v", err)
	}
	if rec.ResourceID != "line-1" || rec.ResponseStatus != 201 {
		t.Fatalf("unexpected record after done: %+v", rec)
	}

	if err := s.MarkFailed(ctx, key, "failed-reason"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	item2 := rawItem(t, db, key)
	if st, ok := item2["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusFailed {
		t.Fatalf("status not updated to FAILED, got %+v", item2["status"])
	}
	if n, ok := item2["note"].(*types.AttributeValueMemberS); !ok || n.Value != "failed-reason" {
		t.Fatalf("note not set, got %+v", item2["note"])
	}
}

func TestCreateIfNotExists_ReclaimsExpiredKey(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return start }

	if created, err := s.CreateIfNotExists(ctx, "k", "h1"); err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}

	s.nowFunc = func() time.Time { return start.Add(47 * time.Hour) }
	if created, err := s.CreateIfNotExists(ctx, "k", "h2"); err != nil || created {
		t.Fatalf("live key must not be reclaimed: created=%v err=%v", created, err)
	}

	s.nowFunc = func() time.Time { return start.Add(49 * time.Hour) }
	created, err := s.CreateIfNotExists(ctx, "k", "h2")
	if err != nil || !created {
		t.Fatalf("expired key should be reclaimed: created=%v err=%v", created, err)
	}
	rec, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.RequestHash != "h2" {
		t.Fatalf("expected new holder, got %+v", rec)
	}
}

func TestGet_Missing(t *testing.T) {
	s, _ := newTestStore()
	rec, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestAttributevalueMarshal_Unmarshal(t *testing.T) {
	rec := IdempotencyRecord{
		IdempotencyKey: "k1",
		Status:         StatusInProgress,
		ResourceID:     "r1",
		CreatedAt:      time.Now().Round(time.Second),
		UpdatedAt:      time.Now().Round(time.Second),
		ExpiresAt:      time.Now().Add(24 * time.Hour).Unix(),
	}
	m, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out IdempotencyRecord
	if err := attributevalue.UnmarshalMap(m, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.IdempotencyKey != rec.IdempotencyKey || out.ResourceID != rec.ResourceID {
		t.Fatalf("unmarshal mismatch: %+v", out)
	}
}
