// Package awstest provides small in-memory fakes of the AWS clients used by
// this module. The DynamoDB fake understands the handful of expression forms
// the stores issue; it is not a general DynamoDB emulator.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type keySchema struct {
	pk, sk string
}

type table struct {
	keys    keySchema
	indexes map[string]keySchema
	items   map[string]map[string]types.AttributeValue
}

// DynamoDB is an in-memory DynamoDB fake safe for concurrent use.
type DynamoDB struct {
	mu     sync.Mutex
	tables map[string]*table
	calls  map[string]int

	// Err, when set, is returned by every call.
	Err    error
	// FailOn, when set, is consulted per call; a non-nil result fails it.
	FailOn func(op, tableName string) error
}

// NewDynamoDB returns an empty fake. Tables must be declared with CreateTable.
func NewDynamoDB() *DynamoDB {
	return &DynamoDB{
		tables: map[string]*table{},
		calls:  map[string]int{},
	}
}

// CreateTable declares a table with partition key pk and optional sort key sk.
func (d *DynamoDB) CreateTable(name, pk, sk string) *DynamoDB {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[name] = &table{
		keys:    keySchema{pk: pk, sk: sk},
		indexes: map[string]keySchema{},
		items:   map[string]map[string]types.AttributeValue{},
	}
	return d
}

// CreateIndex declares a secondary index on an existing table.
func (d *DynamoDB) CreateIndex(tableName, index, pk, sk string) *DynamoDB {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[tableName].indexes[index] = keySchema{pk: pk, sk: sk}
	return d
}

// Put stores item directly, bypassing conditions.
func (d *DynamoDB) Put(tableName string, item map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.tables[tableName]
	t.items[t.key(item)] = copyItem(item)
}

// Items returns a snapshot of every item in tableName.
func (d *DynamoDB) Items(tableName string) []map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.tables[tableName]
	out := make([]map[string]types.AttributeValue, 0, len(t.items))
	for _, it := range t.items {
		out = append(out, copyItem(it))
	}
	return out
}

// Calls returns how many times op (e.g. "UpdateItem") was invoked.
func (d *DynamoDB) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

func (d *DynamoDB) begin(op, tableName string) (*table, error) {
	d.calls[op]++
	if d.Err != nil {
		return nil, d.Err
	}
	if d.FailOn != nil {
		if err := d.FailOn(op, tableName); err != nil {
			return nil, err
		}
	}
	t, ok := d.tables[tableName]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: strPtr("table not found: " + tableName)}
	}
	return t, nil
}

func (d *DynamoDB) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.begin("PutItem", deref(in.TableName))
	if err != nil {
		return nil, err
	}
	k := t.key(in.Item)
	if in.ConditionExpression != nil {
		ok, err := evalCondition(*in.ConditionExpression, t.items[k], in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, conditionFailed()
		}
	}
	t.items[k] = copyItem(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *DynamoDB) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.begin("GetItem", deref(in.TableName))
	if err != nil {
		return nil, err
	}
	item, ok := t.items[t.key(in.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (d *DynamoDB) DeleteItem(ctx context.Context, in *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.begin("DeleteItem", deref(in.TableName))
	if err != nil {
		return nil, err
	}
	k := t.key(in.Key)
	old := t.items[k]
	if in.ConditionExpression != nil {
		ok, err := evalCondition(*in.ConditionExpression, old, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, conditionFailed()
		}
	}
	delete(t.items, k)
	out := &dyn.DeleteItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld && old != nil {
		out.Attributes = copyItem(old)
	}
	return out, nil
}

func (d *DynamoDB) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.begin("UpdateItem", deref(in.TableName))
	if err != nil {
		return nil, err
	}
	k := t.key(in.Key)
	old := t.items[k]
	if in.ConditionExpression != nil {
		ok, err := evalCondition(*in.ConditionExpression, old, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, conditionFailed()
		}
	}

	item := copyItem(old)
	if item == nil {
		item = copyItem(in.Key)
	}
	if in.UpdateExpression != nil {
		if err := applyUpdate(*in.UpdateExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}
	t.items[k] = item

	out := &dyn.UpdateItemOutput{}
	switch in.ReturnValues {
	case types.ReturnValueAllNew, types.ReturnValueUpdatedNew:
		out.Attributes = copyItem(item)
	case types.ReturnValueAllOld, types.ReturnValueUpdatedOld:
		out.Attributes = copyItem(old)
	}
	return out, nil
}

func (d *DynamoDB) Query(ctx context.Context, in *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.begin("Query", deref(in.TableName))
	if err != nil {
		return nil, err
	}
	schema := t.keys
	if in.IndexName != nil {
		s, ok := t.indexes[*in.IndexName]
		if !ok {
			return nil, fmt.Errorf("awstest: unknown index %s", *in.IndexName)
		}
		schema = s
	}
	if in.KeyConditionExpression == nil {
		return nil, errors.New("awstest: query without key condition")
	}

	var matched []map[string]types.AttributeValue
	for _, item := range t.items {
		ok, err := evalCondition(*in.KeyConditionExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if ok && in.FilterExpression != nil {
			ok, err = evalCondition(*in.FilterExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
		}
		if ok {
			matched = append(matched, copyItem(item))
		}
	}

	desc := in.ScanIndexForward != nil && !*in.ScanIndexForward
	if schema.sk != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compare(matched[i][schema.sk], matched[j][schema.sk])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	if in.Limit != nil && int(*in.Limit) < len(matched) {
		matched = matched[:*in.Limit]
	}
	return &dyn.QueryOutput{Items: matched, Count: int32(len(matched))}, nil
}

func (d *DynamoDB) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.begin("Scan", deref(in.TableName))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var matched []map[string]types.AttributeValue
	for _, k := range keys {
		item := t.items[k]
		if in.FilterExpression != nil {
			ok, err := evalCondition(*in.FilterExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, copyItem(item))
	}
	return &dyn.ScanOutput{Items: matched, Count: int32(len(matched))}, nil
}

func (t *table) key(item map[string]types.AttributeValue) string {
	k := scalar(item[t.keys.pk])
	if t.keys.sk != "" {
		k += "\x00" + scalar(item[t.keys.sk])
	}
	return k
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
}

var clauseRe = regexp.MustCompile(`\b(SET|ADD|REMOVE)\b`)

// applyUpdate supports SET (plain values, if_not_exists and +/-), ADD on
// numbers, and REMOVE.
func applyUpdate(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) error {
	locs := clauseRe.FindAllStringIndex(expr, -1)
	if len(locs) == 0 {
		return fmt.Errorf("awstest: unsupported update expression %q", expr)
	}
	for i, loc := range locs {
		end := len(expr)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		keyword := expr[loc[0]:loc[1]]
		for _, action := range splitTopLevel(expr[loc[1]:end]) {
			if err := applyAction(keyword, action, item, names, values); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyAction(keyword, action string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) error {
	switch keyword {
	case "SET":
		parts := strings.SplitN(action, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("awstest: bad SET action %q", action)
		}
		path := resolveName(strings.TrimSpace(parts[0]), names)
		v, err := evalValue(strings.TrimSpace(parts[1]), item, names, values)
		if err != nil {
			return err
		}
		item[path] = v
	case "ADD":
		fields := strings.Fields(action)
		if len(fields) != 2 {
			return fmt.Errorf("awstest: bad ADD action %q", action)
		}
		path := resolveName(fields[0], names)
		delta, ok := values[fields[1]]
		if !ok {
			return fmt.Errorf("awstest: missing value %s", fields[1])
		}
		cur, exists := item[path]
		if !exists {
			item[path] = delta
			return nil
		}
		sum, err := arith(cur, delta, '+')
		if err != nil {
			return err
		}
		item[path] = sum
	case "REMOVE":
		delete(item, resolveName(action, names))
	}
	return nil
}

func evalValue(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	for _, op := range []byte{'+', '-'} {
		if idx := topLevelIndex(expr, op); idx > 0 {
			l, err := evalValue(strings.TrimSpace(expr[:idx]), item, names, values)
			if err != nil {
				return nil, err
			}
			r, err := evalValue(strings.TrimSpace(expr[idx+1:]), item, names, values)
			if err != nil {
				return nil, err
			}
			return arith(l, r, op)
		}
	}
	if strings.HasPrefix(expr, "if_not_exists(") && strings.HasSuffix(expr, ")") {
		args := splitTopLevel(expr[len("if_not_exists(") : len(expr)-1])
		if len(args) != 2 {
			return nil, fmt.Errorf("awstest: bad if_not_exists %q", expr)
		}
		if cur, ok := item[resolveName(args[0], names)]; ok {
			return cur, nil
		}
		return evalValue(args[1], item, names, values)
	}
	if strings.HasPrefix(expr, ":") {
		v, ok := values[expr]
		if !ok {
			return nil, fmt.Errorf("awstest: missing value %s", expr)
		}
		return v, nil
	}
	v, ok := item[resolveName(expr, names)]
	if !ok {
		return nil, fmt.Errorf("awstest: attribute %s does not exist", expr)
	}
	return v, nil
}

// evalCondition supports AND-joined terms of the forms attribute_exists(p),
// attribute_not_exists(p), p = :v and p <> :v.
func evalCondition(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	for _, term := range strings.Split(expr, " AND ") {
		term = strings.TrimSpace(term)
		switch {
		case strings.HasPrefix(term, "attribute_exists(") && strings.HasSuffix(term, ")"):
			path := resolveName(term[len("attribute_exists("):len(term)-1], names)
			if _, ok := item[path]; !ok {
				return false, nil
			}
		case strings.HasPrefix(term, "attribute_not_exists(") && strings.HasSuffix(term, ")"):
			path := resolveName(term[len("attribute_not_exists("):len(term)-1], names)
			if _, ok := item[path]; ok {
				return false, nil
			}
		case strings.Contains(term, "<>"):
			l, r := splitPair(term, "<>")
			want, ok := values[r]
			if !ok {
				return false, fmt.Errorf("awstest: missing value %s", r)
			}
			if got, exists := item[resolveName(l, names)]; exists && compare(got, want) == 0 {
				return false, nil
			}
		case strings.Contains(term, "="):
			l, r := splitPair(term, "=")
			want, ok := values[r]
			if !ok {
				return false, fmt.Errorf("awstest: missing value %s", r)
			}
			got, exists := item[resolveName(l, names)]
			if !exists || compare(got, want) != 0 {
				return false, nil
			}
		default:
			return false, fmt.Errorf("awstest: unsupported condition %q", term)
		}
	}
	return true, nil
}

func splitPair(term, sep string) (string, string) {
	parts := strings.SplitN(term, sep, 2)
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func resolveName(p string, names map[string]string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "#") {
		if n, ok := names[p]; ok {
			return n
		}
	}
	return p
}

func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func topLevelIndex(s string, op byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case op:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func arith(a, b types.AttributeValue, op byte) (types.AttributeValue, error) {
	an, ok1 := a.(*types.AttributeValueMemberN)
	bn, ok2 := b.(*types.AttributeValueMemberN)
	if !ok1 || !ok2 {
		return nil, errors.New("awstest: arithmetic on non-number")
	}
	x, err := strconv.ParseFloat(an.Value, 64)
	if err != nil {
		return nil, err
	}
	y, err := strconv.ParseFloat(bn.Value, 64)
	if err != nil {
		return nil, err
	}
	if op == '-' {
		y = -y
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(x+y, 'f', -1, 64)}, nil
}

func compare(a, b types.AttributeValue) int {
	an, aok := a.(*types.AttributeValueMemberN)
	bn, bok := b.(*types.AttributeValueMemberN)
	if aok && bok {
		x, _ := strconv.ParseFloat(an.Value, 64)
		y, _ := strconv.ParseFloat(bn.Value, 64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(scalar(a), scalar(b))
}

func scalar(v types.AttributeValue) string {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value
	case *types.AttributeValueMemberN:
		return tv.Value
	case *types.AttributeValueMemberBOOL:
		return strconv.FormatBool(tv.Value)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", tv)
	}
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string { return &s }
