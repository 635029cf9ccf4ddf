package movies

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

// ─── filter evaluation ────────────────────────────────────────────────────────

// evalFilter evaluates the subset of DynamoDB filter syntax this package
// emits: "#a = :v", contains(#a, :v) on strings and lists, and/or, and
// parenthesised sub-expressions.
func evalFilter(
	item map[string]types.AttributeValue,
	expr string,
	names map[string]string,
	vals map[string]types.AttributeValue,
) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		if inner := expr[1 : len(expr)-1]; balanced(inner) {
			return evalFilter(item, inner, names, vals)
		}
	}
	if parts := splitTopLevel(expr, " and "); len(parts) > 1 {
		for _, p := range parts {
			if !evalFilter(item, p, names, vals) {
				return false
			}
		}
		return true
	}
	if parts := splitTopLevel(expr, " or "); len(parts) > 1 {
		for _, p := range parts {
			if evalFilter(item, p, names, vals) {
				return true
			}
		}
		return false
	}

	resolveName := func(tok string) string {
		tok = strings.TrimSpace(tok)
		if v, ok := names[tok]; ok {
			return v
		}
		return tok
	}
	resolveVal := func(tok string) string {
		return avStr(vals[strings.TrimSpace(tok)])
	}

	if strings.HasPrefix(expr, "contains(") {
		inner := strings.TrimSuffix(expr[len("contains("):], ")")
		attr, valTok, ok := strings.Cut(inner, ",")
		if !ok {
			return false
		}
		return containsAV(item[resolveName(attr)], resolveVal(valTok))
	}
	if lhs, rhs, ok := strings.Cut(expr, "="); ok {
		av, exists := item[resolveName(lhs)]
		return exists && avStr(av) == resolveVal(rhs)
	}
	panic("mock: unsupported filter expression " + expr)
}

// containsAV mirrors DynamoDB contains(): substring on strings, element
// equality on lists and sets.
func containsAV(av types.AttributeValue, needle string) bool {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return strings.Contains(v.Value, needle)
	case *types.AttributeValueMemberL:
		for _, e := range v.Value {
			if s, ok := e.(*types.AttributeValueMemberS); ok && s.Value == needle {
				return true
			}
		}
	case *types.AttributeValueMemberSS:
		for _, s := range v.Value {
			if s == needle {
				return true
			}
		}
	}
	return false
}

func balanced(s string) bool {
	depth := 0
	for _, c := range s {
		if c == '(' {
			depth++
		} else if c == ')' {
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// splitTopLevel splits expr on sep only at depth 0 (not inside parens).
func splitTopLevel(expr, sep string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(expr[i:], sep) {
			parts = append(parts, strings.TrimSpace(expr[last:i]))
			last = i + len(sep)
			i += len(sep) - 1
		}
	}
	return append(parts, strings.TrimSpace(expr[last:]))
}

func avStr(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

// ─── fullMock ─────────────────────────────────────────────────────────────────

// fullMock is a thread-safe in-memory DynamoDB substitute keyed on
// (year, title).
type fullMock struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
	calls  map[string]int
	fail   map[string]error // op → error returned instead of running it

	pageSize      int  // > 0 paginates Scan
	unprocessOnce bool // first BatchWriteItem leaves its last request unprocessed
	unprocessAll  bool // every BatchWriteItem leaves its last request unprocessed
}

func newFullMock() *fullMock {
	return &fullMock{
		tables: map[string]map[string]map[string]types.AttributeValue{},
		calls:  map[string]int{},
		fail:   map[string]error{},
	}
}

var _ DynamoClient = (*fullMock)(nil)

func itemKey(item map[string]types.AttributeValue) string {
	return avStr(item[AttrYear]) + "||" + avStr(item[AttrTitle])
}

func notFound() error {
	return &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
}

// begin records the call and returns the table, or an error.
func (m *fullMock) begin(op string, table *string) (map[string]map[string]types.AttributeValue, error) {
	m.calls[op]++
	if err := m.fail[op]; err != nil {
		return nil, err
	}
	t, ok := m.tables[aws.ToString(table)]
	if !ok {
		return nil, notFound()
	}
	return t, nil
}

func (m *fullMock) PutItem(_ context.Context, p *ddb.PutItemInput, _ ...func(*ddb.Options)) (*ddb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.begin("PutItem", p.TableName)
	if err != nil {
		return nil, err
	}
	t[itemKey(p.Item)] = p.Item
	return &ddb.PutItemOutput{}, nil
}

func (m *fullMock) DeleteItem(_ context.Context, p *ddb.DeleteItemInput, _ ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.begin("DeleteItem", p.TableName)
	if err != nil {
		return nil, err
	}
	k := itemKey(p.Key)
	prior := t[k]
	delete(t, k)
	return &ddb.DeleteItemOutput{Attributes: prior}, nil
}

func (m *fullMock) Scan(_ context.Context, p *ddb.ScanInput, _ ...func(*ddb.Options)) (*ddb.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.begin("Scan", p.TableName)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	startAfter := ""
	if p.ExclusiveStartKey != nil {
		startAfter = itemKey(p.ExclusiveStartKey)
	}
	out := &ddb.ScanOutput{}
	for _, k := range keys {
		if startAfter != "" && k <= startAfter {
			continue
		}
		item := t[k]
		out.ScannedCount++
		if evalFilter(item, aws.ToString(p.FilterExpression), p.ExpressionAttributeNames, p.ExpressionAttributeValues) {
			out.Items = append(out.Items, item)
		}
		if m.pageSize > 0 && int(out.ScannedCount) == m.pageSize {
			out.LastEvaluatedKey = map[string]types.AttributeValue{
				AttrYear:  item[AttrYear],
				AttrTitle: item[AttrTitle],
			}
			break
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (m *fullMock) BatchWriteItem(_ context.Context, p *ddb.BatchWriteItemInput, _ ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["BatchWriteItem"]++
	if err := m.fail["BatchWriteItem"]; err != nil {
		return nil, err
	}
	out := &ddb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for name, reqs := range p.RequestItems {
		t, ok := m.tables[name]
		if !ok {
			return nil, notFound()
		}
		if (m.unprocessOnce || m.unprocessAll) && len(reqs) > 0 {
			m.unprocessOnce = false
			out.UnprocessedItems[name] = reqs[len(reqs)-1:]
			reqs = reqs[:len(reqs)-1]
		}
		for _, req := range reqs {
			if req.PutRequest != nil {
				t[itemKey(req.PutRequest.Item)] = req.PutRequest.Item
			} else if req.DeleteRequest != nil {
				delete(t, itemKey(req.DeleteRequest.Key))
			}
		}
	}
	return out, nil
}

func (m *fullMock) CreateTable(_ context.Context, p *ddb.CreateTableInput, _ ...func(*ddb.Options)) (*ddb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["CreateTable"]++
	if err := m.fail["CreateTable"]; err != nil {
		return nil, err
	}
	name := aws.ToString(p.TableName)
	if _, ok := m.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists: " + name)}
	}
	m.tables[name] = map[string]map[string]types.AttributeValue{}
	return &ddb.CreateTableOutput{}, nil
}

func (m *fullMock) DeleteTable(_ context.Context, p *ddb.DeleteTableInput, _ ...func(*ddb.Options)) (*ddb.DeleteTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.begin("DeleteTable", p.TableName); err != nil {
		return nil, err
	}
	delete(m.tables, aws.ToString(p.TableName))
	return &ddb.DeleteTableOutput{}, nil
}

func (m *fullMock) DescribeTable(_ context.Context, p *ddb.DescribeTableInput, _ ...func(*ddb.Options)) (*ddb.DescribeTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.begin("DescribeTable", p.TableName); err != nil {
		return nil, err
	}
	return &ddb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   p.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (m *fullMock) count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func (m *fullMock) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// ─── fixtures ─────────────────────────────────────────────────────────────────

func bg() context.Context { return context.Background() }

// newTestStore returns a store over a mock that already has the catalog table.
func newTestStore(t *testing.T) (*DynamoStore, *fullMock) {
	t.Helper()
	mock := newFullMock()
	mock.tables[DefaultTableName] = map[string]map[string]types.AttributeValue{}
	store, err := NewDynamoStore(StoreParams{Client: mock, RetryInterval: time.Millisecond})
	require.NoError(t, err)
	return store, mock
}

func newTestDispatcher(t *testing.T, params DispatcherParams) (*Dispatcher, *fullMock) {
	t.Helper()
	store, mock := newTestStore(t)
	params.Store = store
	d, err := NewDispatcher(params)
	require.NoError(t, err)
	return d, mock
}

// script answers prompts in order and records which prompts were asked.
type script struct {
	answers []string
	asked   []string
}

func answers(vals ...string) *script { return &script{answers: vals} }

func (s *script) Prompt(label string) (string, error) {
	s.asked = append(s.asked, label)
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	v := s.answers[0]
	s.answers = s.answers[1:]
	return v, nil
}
