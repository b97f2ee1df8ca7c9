package database

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"sushiorders/metrics"
	"sushiorders/model"
)

// BatchGetItem の1リクエストあたりの上限
const dynamoBatchGetLimit = 100

const maxUnprocessedAttempts = 5

// DynamoAPI は DynamoStore が使う DynamoDB クライアントの操作です。
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
}

// DynamoStore は本番環境の DynamoDB テーブルを読み書きする Store 実装です。
// 属性名は JSON タグと同じものを使います。
type DynamoStore struct {
	client   DynamoAPI
	pageSize int32
}

type DynamoConfig struct {
	Region   string
	Endpoint string // DynamoDB Local などを使う場合のみ
	PageSize int
}

func NewDynamoStore(ctx context.Context, cfg DynamoConfig) (*DynamoStore, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamoStoreWithClient(client, cfg.PageSize), nil
}

func NewDynamoStoreWithClient(client DynamoAPI, pageSize int) *DynamoStore {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &DynamoStore{client: client, pageSize: int32(pageSize)}
}

func withJSONTags(o *attributevalue.EncoderOptions) { o.TagKey = "json" }

func fromJSONTags(o *attributevalue.DecoderOptions) { o.TagKey = "json" }

func (s *DynamoStore) GetConfig(ctx context.Context, year string) (*model.Configuration, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ConfigTable),
		Key: map[string]types.AttributeValue{
			"configYear": &types.AttributeValueMemberS{Value: year},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get config %s: %w", year, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var cfg model.Configuration
	if err := attributevalue.UnmarshalMapWithOptions(out.Item, &cfg, fromJSONTags); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", year, err)
	}
	return &cfg, nil
}

func (s *DynamoStore) ScanOrderDetails(ctx context.Context, year string, filter ScanFilter, token string) ([]model.OrderDetail, string, error) {
	table, err := OrderDetailsTable(year)
	if err != nil {
		return nil, "", err
	}

	expr := "begins_with(orderId, :day)"
	values := map[string]types.AttributeValue{
		":day": &types.AttributeValueMemberS{Value: filter.DayPrefix},
	}
	if len(filter.Routes) > 0 {
		placeholders := make([]string, len(filter.Routes))
		for i, r := range filter.Routes {
			ph := fmt.Sprintf(":route%d", i)
			placeholders[i] = ph
			values[ph] = &types.AttributeValueMemberS{Value: r}
		}
		expr += " AND assignedRoute IN (" + strings.Join(placeholders, ", ") + ")"
	}

	in := &dynamodb.ScanInput{
		TableName:                 aws.String(table),
		FilterExpression:          aws.String(expr),
		ExpressionAttributeValues: values,
		Limit:                     aws.Int32(s.pageSize),
	}
	if token != "" {
		start, err := decodeStartKey(token)
		if err != nil {
			return nil, "", err
		}
		in.ExclusiveStartKey = start
	}

	out, err := s.client.Scan(ctx, in)
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan %s: %w", table, err)
	}
	metrics.IncScanPage("dynamodb")

	page := []model.OrderDetail{}
	if err := attributevalue.UnmarshalListOfMapsWithOptions(out.Items, &page, fromJSONTags); err != nil {
		return nil, "", fmt.Errorf("failed to decode order details: %w", err)
	}

	next := ""
	if len(out.LastEvaluatedKey) > 0 {
		next, err = encodeStartKey(out.LastEvaluatedKey)
		if err != nil {
			return nil, "", err
		}
	}
	return page, next, nil
}

// BatchGetParents は100件ずつ BatchGetItem を発行し、未処理キーは数回まで再送します。
func (s *DynamoStore) BatchGetParents(ctx context.Context, receptionNumbers []string) (map[string]model.ParentOrder, error) {
	result := make(map[string]model.ParentOrder)
	for start := 0; start < len(receptionNumbers); start += dynamoBatchGetLimit {
		end := start + dynamoBatchGetLimit
		if end > len(receptionNumbers) {
			end = len(receptionNumbers)
		}
		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, rn := range receptionNumbers[start:end] {
			keys = append(keys, map[string]types.AttributeValue{
				"receptionNumber": &types.AttributeValueMemberS{Value: rn},
			})
		}

		request := map[string]types.KeysAndAttributes{OrdersTable: {Keys: keys}}
		for attempt := 0; len(request) > 0; attempt++ {
			if attempt >= maxUnprocessedAttempts {
				return nil, fmt.Errorf("unprocessed keys remain after %d attempts", attempt)
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(attempt*50) * time.Millisecond):
				}
			}
			out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("failed to batch get orders: %w", err)
			}
			var parents []model.ParentOrder
			if err := attributevalue.UnmarshalListOfMapsWithOptions(out.Responses[OrdersTable], &parents, fromJSONTags); err != nil {
				return nil, fmt.Errorf("failed to decode parent orders: %w", err)
			}
			for _, p := range parents {
				result[p.ReceptionNumber] = p
			}
			request = out.UnprocessedKeys
		}
	}
	return result, nil
}

func (s *DynamoStore) GetParent(ctx context.Context, receptionNumber string) (*model.ParentOrder, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(OrdersTable),
		Key: map[string]types.AttributeValue{
			"receptionNumber": &types.AttributeValueMemberS{Value: receptionNumber},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", receptionNumber, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var p model.ParentOrder
	if err := attributevalue.UnmarshalMapWithOptions(out.Item, &p, fromJSONTags); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", receptionNumber, err)
	}
	return &p, nil
}

// QueryOrderDetails はパーティションキー (receptionNumber) で Query し、全ページを読み込みます。
func (s *DynamoStore) QueryOrderDetails(ctx context.Context, year, receptionNumber string) ([]model.OrderDetail, error) {
	table, err := OrderDetailsTable(year)
	if err != nil {
		return nil, err
	}
	details := []model.OrderDetail{}
	var start map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(table),
			KeyConditionExpression: aws.String("receptionNumber = :rn"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":rn": &types.AttributeValueMemberS{Value: receptionNumber},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query %s for %s: %w", table, receptionNumber, err)
		}
		var page []model.OrderDetail
		if err := attributevalue.UnmarshalListOfMapsWithOptions(out.Items, &page, fromJSONTags); err != nil {
			return nil, fmt.Errorf("failed to decode order details of %s: %w", receptionNumber, err)
		}
		details = append(details, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return details, nil
		}
		start = out.LastEvaluatedKey
	}
}

func (s *DynamoStore) ListNetaMaster(ctx context.Context) ([]model.NetaMaster, error) {
	list := []model.NetaMaster{}
	var start map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(NetaMasterTable),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan neta master: %w", err)
		}
		var page []model.NetaMaster
		if err := attributevalue.UnmarshalListOfMapsWithOptions(out.Items, &page, fromJSONTags); err != nil {
			return nil, fmt.Errorf("failed to decode neta master: %w", err)
		}
		list = append(list, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return list, nil
		}
		start = out.LastEvaluatedKey
	}
}

func (s *DynamoStore) UpdateAssignedRoute(ctx context.Context, year, receptionNumber, orderID, route string) error {
	return s.updateDetail(ctx, year, receptionNumber, orderID, "SET assignedRoute = :val",
		&types.AttributeValueMemberS{Value: route})
}

func (s *DynamoStore) UpdateNetaChanges(ctx context.Context, year, receptionNumber, orderID string, changes map[string][]model.ChangePattern) error {
	if changes == nil {
		changes = map[string][]model.ChangePattern{}
	}
	av, err := attributevalue.MarshalWithOptions(changes, withJSONTags)
	if err != nil {
		return fmt.Errorf("failed to encode neta changes: %w", err)
	}
	return s.updateDetail(ctx, year, receptionNumber, orderID, "SET netaChanges = :val", av)
}

// updateDetail は既存レコードのみを更新します (UpdateItem の暗黙作成を条件式で防ぐ)。
func (s *DynamoStore) updateDetail(ctx context.Context, year, receptionNumber, orderID, update string, val types.AttributeValue) error {
	table, err := OrderDetailsTable(year)
	if err != nil {
		return err
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			"receptionNumber": &types.AttributeValueMemberS{Value: receptionNumber},
			"orderId":         &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("attribute_exists(orderId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":val": val},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update %s %s/%s: %w", table, receptionNumber, orderID, err)
	}
	return nil
}

func (s *DynamoStore) put(ctx context.Context, table string, item interface{}) error {
	av, err := attributevalue.MarshalMapWithOptions(item, withJSONTags)
	if err != nil {
		return fmt.Errorf("failed to encode item for %s: %w", table, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(table), Item: av}); err != nil {
		return fmt.Errorf("failed to put item into %s: %w", table, err)
	}
	return nil
}

func (s *DynamoStore) PutConfig(ctx context.Context, cfg model.Configuration) error {
	return s.put(ctx, ConfigTable, cfg)
}

func (s *DynamoStore) PutParent(ctx context.Context, parent model.ParentOrder) error {
	return s.put(ctx, OrdersTable, parent)
}

func (s *DynamoStore) PutOrderDetail(ctx context.Context, year string, detail model.OrderDetail) error {
	table, err := OrderDetailsTable(year)
	if err != nil {
		return err
	}
	return s.put(ctx, table, detail)
}

func (s *DynamoStore) PutNeta(ctx context.Context, neta model.NetaMaster) error {
	return s.put(ctx, NetaMasterTable, neta)
}

// LastEvaluatedKey は文字列キーのみ (receptionNumber, orderId) なので JSON + base64 で表現します。
func encodeStartKey(key map[string]types.AttributeValue) (string, error) {
	var plain map[string]string
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", fmt.Errorf("failed to encode continuation token: %w", err)
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeStartKey(token string) (map[string]types.AttributeValue, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid continuation token: %w", err)
	}
	var plain map[string]string
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, fmt.Errorf("invalid continuation token: %w", err)
	}
	key, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, fmt.Errorf("invalid continuation token: %w", err)
	}
	return key, nil
}
