/*
Package movies – DynamoDB store.

DynamoStore is the only code that talks to DynamoDB. It satisfies Store, the
narrow collaborator contract the dispatcher depends on.
*/
package movies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v5"
)

// Store is what the dispatcher and the catalog bootstrap need from the
// database.
type Store interface {
	CreateTable(ctx context.Context, spec TableSpec) error
	Put(ctx context.Context, table string, item Item) error
	BatchPut(ctx context.Context, table string, items []Item) error
	Scan(ctx context.Context, table string, filter *Filter) ([]Item, error)
	DeleteItem(ctx context.Context, table string, key Item) error
	DropTable(ctx context.Context, table string) error
}

// DynamoClient is the interface satisfied by both the real AWS DynamoDB client
// and any test doubles / local stubs.
type DynamoClient interface {
	PutItem(ctx context.Context, params *ddb.PutItemInput, optFns ...func(*ddb.Options)) (*ddb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *ddb.DeleteItemInput, optFns ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *ddb.ScanInput, optFns ...func(*ddb.Options)) (*ddb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *ddb.BatchWriteItemInput, optFns ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error)

	// DDL
	CreateTable(ctx context.Context, params *ddb.CreateTableInput, optFns ...func(*ddb.Options)) (*ddb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *ddb.DeleteTableInput, optFns ...func(*ddb.Options)) (*ddb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *ddb.DescribeTableInput, optFns ...func(*ddb.Options)) (*ddb.DescribeTableOutput, error)
}

// maxBatchWrite is DynamoDB's per-request limit for BatchWriteItem.
const maxBatchWrite = 25

const maxBatchAttempts = 5

const (
	defaultRetryInterval = 50 * time.Millisecond
	maxRetryInterval     = 2 * time.Second
)

// StoreParams configures a DynamoStore.
type StoreParams struct {
	Client DynamoClient
	Logger Logger

	// WaitTimeout bounds how long CreateTable waits for the table to become
	// ACTIVE. Zero skips waiting.
	WaitTimeout time.Duration
	// WaitDelay is the minimum delay between table status polls.
	WaitDelay time.Duration
	// RetryInterval is the first pause before resubmitting unprocessed batch
	// writes. It doubles on each retry. Defaults to 50ms.
	RetryInterval time.Duration
}

// DynamoStore implements Store on top of a DynamoClient.
type DynamoStore struct {
	client        DynamoClient
	log           Logger
	waitTimeout   time.Duration
	waitDelay     time.Duration
	retryInterval time.Duration
}

var _ Store = (*DynamoStore)(nil)

// NewDynamoStore creates a store. The client is held for the store's lifetime.
func NewDynamoStore(params StoreParams) (*DynamoStore, error) {
	if params.Client == nil {
		return nil, NewError("Store has no DynamoDB client configured", WithCode(ErrArgument))
	}
	delay := params.WaitDelay
	if delay <= 0 {
		delay = 10 * time.Second
	}
	retry := params.RetryInterval
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	return &DynamoStore{
		client:        params.Client,
		log:           orNop(params.Logger),
		waitTimeout:   params.WaitTimeout,
		waitDelay:     delay,
		retryInterval: retry,
	}, nil
}

// ─── DDL ──────────────────────────────────────────────────────────────────────

// CreateTable creates the table and waits until it is ACTIVE. An existing
// table yields an error with code ErrAlreadyExists.
func (s *DynamoStore) CreateTable(ctx context.Context, spec TableSpec) error {
	input := tableInput(spec)
	start := time.Now()
	if _, err := s.client.CreateTable(ctx, input); err != nil {
		return s.fail("createTable", spec.Name, err)
	}
	s.log.Info(fmt.Sprintf("Table %s created", spec.Name), map[string]any{"elapsed": time.Since(start).String()})

	if s.waitTimeout <= 0 {
		return nil
	}
	waiter := ddb.NewTableExistsWaiter(s.client, func(o *ddb.TableExistsWaiterOptions) {
		o.MinDelay = s.waitDelay
		if o.MaxDelay < o.MinDelay {
			o.MaxDelay = o.MinDelay
		}
	})
	desc, err := waiter.WaitForOutput(ctx, &ddb.DescribeTableInput{TableName: aws.String(spec.Name)}, s.waitTimeout)
	if err != nil {
		return s.fail("waitTable", spec.Name, err)
	}
	s.log.Info(fmt.Sprintf("Table %s %s", spec.Name, desc.Table.TableStatus),
		map[string]any{"elapsed": time.Since(start).String()})
	return nil
}

// tableInput translates a TableSpec into the SDK request.
func tableInput(spec TableSpec) *ddb.CreateTableInput {
	input := &ddb.CreateTableInput{TableName: aws.String(spec.Name)}
	for _, k := range spec.Key {
		input.KeySchema = append(input.KeySchema, types.KeySchemaElement{
			AttributeName: aws.String(k.Name),
			KeyType:       types.KeyType(k.Role),
		})
		input.AttributeDefinitions = append(input.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(k.Name),
			AttributeType: types.ScalarAttributeType(k.Type),
		})
	}
	tp := spec.Throughput
	if tp.Read == 0 && tp.Write == 0 {
		input.BillingMode = types.BillingModePayPerRequest
	} else {
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(tp.Read),
			WriteCapacityUnits: aws.Int64(tp.Write),
		}
	}
	return input
}

// DropTable deletes the table. A missing table yields ErrNotFound.
func (s *DynamoStore) DropTable(ctx context.Context, table string) error {
	if _, err := s.client.DeleteTable(ctx, &ddb.DeleteTableInput{TableName: aws.String(table)}); err != nil {
		return s.fail("deleteTable", table, err)
	}
	s.log.Info(fmt.Sprintf("Table %s deleted", table), nil)
	return nil
}

// ─── items ────────────────────────────────────────────────────────────────────

// Put writes item, replacing any existing item with the same key.
func (s *DynamoStore) Put(ctx context.Context, table string, item Item) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return NewError("cannot marshal item", WithCode(ErrArgument), WithCause(err))
	}
	s.log.Trace("put", map[string]any{"table": table, "item": item})
	if _, err := s.client.PutItem(ctx, &ddb.PutItemInput{TableName: aws.String(table), Item: av}); err != nil {
		return s.fail("put", table, err)
	}
	return nil
}

// BatchPut writes items in batches of 25, resubmitting unprocessed items.
func (s *DynamoStore) BatchPut(ctx context.Context, table string, items []Item) error {
	requests := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return NewError("cannot marshal item", WithCode(ErrArgument), WithCause(err))
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	for start := 0; start < len(requests); start += maxBatchWrite {
		end := min(start+maxBatchWrite, len(requests))
		if err := s.writeBatch(ctx, table, requests[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// writeBatch resubmits unprocessed requests with exponential backoff, at most
// maxBatchAttempts calls in all. An SDK error is not retried.
func (s *DynamoStore) writeBatch(ctx context.Context, table string, batch []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{table: batch}
	_, err := backoff.Retry(ctx, func() (int, error) {
		out, err := s.client.BatchWriteItem(ctx, &ddb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return 0, backoff.Permanent(s.fail("batchWrite", table, err))
		}
		left := len(out.UnprocessedItems[table])
		s.log.Trace("batchWrite", map[string]any{"table": table, "size": len(pending[table]), "unprocessed": left})
		if left > 0 {
			pending = out.UnprocessedItems
			return left, NewError(fmt.Sprintf("%d items left unprocessed in %s", left, table), WithCode(ErrStore))
		}
		return 0, nil
	},
		backoff.WithBackOff(s.batchBackOff()),
		backoff.WithMaxTries(maxBatchAttempts),
		backoff.WithNotify(func(_ error, wait time.Duration) {
			s.log.Trace("batchWrite retry", map[string]any{"table": table, "wait": wait})
		}),
	)
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if CodeOf(err) == "" {
		return NewError(fmt.Sprintf("Batch write to %s interrupted", table), WithCode(ErrStore), WithCause(err))
	}
	return err
}

func (s *DynamoStore) batchBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	b.MaxInterval = maxRetryInterval
	b.Multiplier = 2
	return b
}

// Scan reads every item matching filter, following pagination to the end.
func (s *DynamoStore) Scan(ctx context.Context, table string, filter *Filter) ([]Item, error) {
	input := &ddb.ScanInput{TableName: aws.String(table)}
	if filter != nil && filter.Expression != "" {
		values, err := attributevalue.MarshalMap(filter.Values)
		if err != nil {
			return nil, NewError("cannot marshal filter values", WithCode(ErrArgument), WithCause(err))
		}
		input.FilterExpression = aws.String(filter.Expression)
		input.ExpressionAttributeNames = filter.Names
		input.ExpressionAttributeValues = values
	}
	s.log.Trace("scan", map[string]any{"table": table, "filter": filter.String()})

	var items []Item
	paginator := ddb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.fail("scan", table, err)
		}
		for _, raw := range page.Items {
			item, err := fromDynamo(raw)
			if err != nil {
				return nil, NewError("cannot unmarshal item", WithCode(ErrStore), WithCause(err))
			}
			items = append(items, item)
		}
	}
	s.log.Data("scan result", map[string]any{"table": table, "count": len(items)})
	return items, nil
}

// DeleteItem removes the item with the given key.
func (s *DynamoStore) DeleteItem(ctx context.Context, table string, key Item) error {
	av, err := attributevalue.MarshalMap(key)
	if err != nil {
		return NewError("cannot marshal key", WithCode(ErrArgument), WithCause(err))
	}
	s.log.Trace("delete", map[string]any{"table": table, "key": key})
	if _, err := s.client.DeleteItem(ctx, &ddb.DeleteItemInput{TableName: aws.String(table), Key: av}); err != nil {
		return s.fail("delete", table, err)
	}
	return nil
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// fail classifies an SDK error into an *Error carrying a StoreError cause.
func (s *DynamoStore) fail(op, table string, err error) error {
	cause := toStoreError(err)
	where := map[string]any{"op": op, "table": table, "code": cause.Code}
	s.log.Error(fmt.Sprintf("DynamoDB %s failed", op), map[string]any{"table": table, "error": err})

	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return NewError(fmt.Sprintf("Table %s already exists", table),
			WithCode(ErrAlreadyExists), WithAttrs(where), WithCause(cause))
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return NewError(fmt.Sprintf("Table %s not found", table),
			WithCode(ErrNotFound), WithAttrs(where), WithCause(cause))
	}
	return NewError(fmt.Sprintf(`DynamoDB "%s" failed for "%s": %s`, op, table, cause.Message),
		WithCode(ErrStore), WithAttrs(where), WithCause(cause))
}

func toStoreError(err error) *StoreError {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return &StoreError{Code: ae.ErrorCode(), Message: ae.ErrorMessage()}
	}
	return &StoreError{Message: err.Error()}
}

// fromDynamo unmarshals a raw item. Numbers arrive as float64 and lists as
// []any; lists made only of strings are narrowed to []string so items read
// back have the same shape they were written with.
func fromDynamo(raw map[string]types.AttributeValue) (Item, error) {
	var item Item
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, err
	}
	for k, v := range item {
		if list, ok := v.([]any); ok {
			if strs, ok := stringList(list); ok {
				item[k] = strs
			}
		}
	}
	return item, nil
}

func stringList(list []any) ([]string, bool) {
	out := make([]string, len(list))
	for i, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}
