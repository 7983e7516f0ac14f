// Package dynamo is a domain.KVStore backed by a single DynamoDB table with
// a string partition key "pk".
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/domain"
)

const backend = "dynamodb"

// API is the slice of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	dynamodb.ScanAPIClient
}

type item struct {
	PK        string `dynamodbav:"pk"`
	Value     string `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

type Store struct {
	api   API
	table string
	now   func() time.Time
}

var _ domain.CASStore = (*Store)(nil)

// Condition expressions for CompareAndSwap; "value" is a reserved word.
const (
	condAbsent  = "attribute_not_exists(pk)"
	condValueIs = "#v = :old"
)

// NewClient loads the default AWS config chain (env, shared files, IAM role).
func NewClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

func New(api API, table string) *Store {
	return &Store{api: api, table: table, now: time.Now}
}

func key(k string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: k}}
}

func (s *Store) Get(ctx context.Context, k string) (json.RawMessage, bool, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(k),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		observability.ObserveStore(backend, "get", false, err)
		return nil, false, fmt.Errorf("dynamodb get %q: %w", k, err)
	}
	if len(out.Item) == 0 {
		observability.ObserveStore(backend, "get", false, nil)
		return nil, false, nil
	}
	v, ok := decode(out.Item)
	observability.ObserveStore(backend, "get", ok, nil)
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, k string, value json.RawMessage) error {
	av, err := attributevalue.MarshalMap(item{PK: k, Value: string(value), UpdatedAt: s.now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return fmt.Errorf("marshal %q: %w", k, err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: av})
	observability.ObserveStore(backend, "set", false, err)
	if err != nil {
		return fmt.Errorf("dynamodb put %q: %w", k, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, k string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String(s.table), Key: key(k)})
	observability.ObserveStore(backend, "delete", false, err)
	if err != nil {
		return fmt.Errorf("dynamodb delete %q: %w", k, err)
	}
	return nil
}

func (s *Store) GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	out, err := s.scan(ctx, prefix)
	observability.ObserveStore(backend, "scan", false, err)
	return out, err
}

func (s *Store) scan(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	items, err := s.items(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		if !json.Valid([]byte(it.Value)) {
			log.Warn().Str("key", it.PK).Msg("skipping malformed JSON value")
			continue
		}
		out = append(out, json.RawMessage(it.Value))
	}
	return out, nil
}

func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	n, err := s.deletePrefix(ctx, prefix)
	observability.ObserveStore(backend, "delete_prefix", false, err)
	return n, err
}

func (s *Store) deletePrefix(ctx context.Context, prefix string) (int, error) {
	items, err := s.items(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, it := range items {
		_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String(s.table), Key: key(it.PK)})
		if err != nil {
			return i, fmt.Errorf("dynamodb delete %q: %w", it.PK, err)
		}
	}
	return len(items), nil
}

// CompareAndSwap uses conditional writes: PutItem guarded by
// attribute_not_exists to create, PutItem or DeleteItem guarded on the old
// value otherwise.
func (s *Store) CompareAndSwap(ctx context.Context, k string, old, next json.RawMessage) (bool, error) {
	ok, err := s.swap(ctx, k, old, next)
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		ok, err = false, nil
	}
	observability.ObserveStore(backend, "cas", ok, err)
	if err != nil {
		return false, fmt.Errorf("dynamodb cas %q: %w", k, err)
	}
	return ok, nil
}

func (s *Store) swap(ctx context.Context, k string, old, next json.RawMessage) (bool, error) {
	if old == nil && next == nil {
		_, exists, err := s.Get(ctx, k)
		return err == nil && !exists, err
	}
	cond := aws.String(condValueIs)
	names := map[string]string{"#v": "value"}
	values := map[string]types.AttributeValue{":old": &types.AttributeValueMemberS{Value: string(old)}}
	if old == nil {
		cond, names, values = aws.String(condAbsent), nil, nil
	}
	if next == nil {
		_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                 aws.String(s.table),
			Key:                       key(k),
			ConditionExpression:       cond,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		})
		return err == nil, err
	}
	av, err := attributevalue.MarshalMap(item{PK: k, Value: string(next), UpdatedAt: s.now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return false, err
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.table),
		Item:                      av,
		ConditionExpression:       cond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err == nil, err
}

// items scans the table for keys under prefix, sorted by key.
func (s *Store) items(ctx context.Context, prefix string) ([]item, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(s.table), ConsistentRead: aws.Bool(true)}
	if prefix != "" {
		expr, err := expression.NewBuilder().
			WithFilter(expression.Name("pk").BeginsWith(prefix)).
			Build()
		if err != nil {
			return nil, fmt.Errorf("build filter: %w", err)
		}
		in.FilterExpression = expr.Filter()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}

	var items []item
	p := dynamodb.NewScanPaginator(s.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan %q: %w", prefix, err)
		}
		for _, av := range page.Items {
			var it item
			if err := attributevalue.UnmarshalMap(av, &it); err != nil {
				// keep the key so prefix deletes still reach it; reads skip the empty value
				log.Warn().Err(err).Msg("undecodable item")
				it = item{PK: pkAttr(av)}
			}
			if strings.HasPrefix(it.PK, prefix) {
				items = append(items, it)
			}
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PK < items[j].PK })
	return items, nil
}

func pkAttr(av map[string]types.AttributeValue) string {
	if s, ok := av["pk"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func decode(av map[string]types.AttributeValue) (json.RawMessage, bool) {
	var it item
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		log.Warn().Err(err).Msg("undecodable item; treating as absent")
		return nil, false
	}
	if !json.Valid([]byte(it.Value)) {
		log.Warn().Str("key", it.PK).Msg("malformed JSON value; treating as absent")
		return nil, false
	}
	return json.RawMessage(it.Value), true
}
