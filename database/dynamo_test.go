package database

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sushiorders/model"
)

// fakeDynamo はテスト用の最小限の DynamoDB です。Scan はフィルタを評価せず pages を順に返します。
type fakeDynamo struct {
	items       map[string]map[string]types.AttributeValue
	pages       [][]map[string]types.AttributeValue
	scanInputs  []*dynamodb.ScanInput
	batchCalls  int
	unprocessed map[string]types.KeysAndAttributes
	updates     []*dynamodb.UpdateItemInput
	updateErr   error
	puts        []*dynamodb.PutItemInput
	details     []map[string]types.AttributeValue
	queryInputs []*dynamodb.QueryInput
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	var key string
	for _, name := range []string{"configYear", "receptionNumber"} {
		if v, ok := in.Key[name]; ok {
			key = v.(*types.AttributeValueMemberS).Value
		}
	}
	return &dynamodb.GetItemOutput{Item: f.items[key]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanInputs = append(f.scanInputs, in)
	idx := len(f.scanInputs) - 1
	out := &dynamodb.ScanOutput{Items: f.pages[idx]}
	if idx < len(f.pages)-1 {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"receptionNumber": &types.AttributeValueMemberS{Value: "R1"},
			"orderId":         &types.AttributeValueMemberS{Value: "30A1"},
		}
	}
	return out, nil
}

// Query は details から receptionNumber が一致するものを1件ずつページに分けて返します。
func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, in)
	rn := in.ExpressionAttributeValues[":rn"].(*types.AttributeValueMemberS).Value
	var matched []map[string]types.AttributeValue
	for _, item := range f.details {
		if v, ok := item["receptionNumber"].(*types.AttributeValueMemberS); ok && v.Value == rn {
			matched = append(matched, item)
		}
	}
	idx := len(f.queryInputs) - 1
	if idx >= len(matched) {
		return &dynamodb.QueryOutput{}, nil
	}
	out := &dynamodb.QueryOutput{Items: matched[idx : idx+1]}
	if idx < len(matched)-1 {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"receptionNumber": &types.AttributeValueMemberS{Value: rn},
			"orderId":         matched[idx]["orderId"],
		}
	}
	return out, nil
}

func (f *fakeDynamo) BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.batchCalls++
	var found []map[string]types.AttributeValue
	for _, k := range in.RequestItems[OrdersTable].Keys {
		rn := k["receptionNumber"].(*types.AttributeValueMemberS).Value
		if item, ok := f.items[rn]; ok {
			found = append(found, item)
		}
	}
	out := &dynamodb.BatchGetItemOutput{Responses: map[string][]map[string]types.AttributeValue{OrdersTable: found}}
	if f.batchCalls == 1 && f.unprocessed != nil {
		out.UnprocessedKeys = f.unprocessed
	}
	return out, nil
}

func mustMarshal(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMapWithOptions(v, withJSONTags)
	require.NoError(t, err)
	return av
}

func TestDynamoGetConfig(t *testing.T) {
	cfg := model.Configuration{
		ConfigYear: "2025",
		Products:   map[string]model.ProductMaster{"kiwami": {Name: "極", Price: model.NewNumber(3500)}},
	}
	fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{"2025": mustMarshal(t, cfg)}}
	s := NewDynamoStoreWithClient(fake, 10)

	got, err := s.GetConfig(context.Background(), "2025")
	require.NoError(t, err)
	assert.Equal(t, "極", got.Products["kiwami"].Name)
	assert.True(t, got.Products["kiwami"].Price.Equal(model.NewNumber(3500).Decimal))

	_, err = s.GetConfig(context.Background(), "1999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoScanBuildsFilterAndPaginates(t *testing.T) {
	seq := 1
	d1 := model.OrderDetail{ReceptionNumber: "R1", OrderID: "30A1", AssignedRoute: "北1", Sequence: &seq}
	d2 := model.OrderDetail{ReceptionNumber: "R2", OrderID: "30A2", AssignedRoute: "北2"}
	fake := &fakeDynamo{pages: [][]map[string]types.AttributeValue{
		{mustMarshal(t, d1)},
		{mustMarshal(t, d2)},
	}}
	s := NewDynamoStoreWithClient(fake, 25)

	all, err := CollectOrderDetails(context.Background(), s, "2024", ScanFilter{DayPrefix: "30", Routes: []string{"北1", "北2"}})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, *all[0].Sequence)
	assert.Equal(t, "北2", all[1].AssignedRoute)

	require.Len(t, fake.scanInputs, 2)
	first := fake.scanInputs[0]
	assert.Equal(t, "OrderDetails-C", aws.ToString(first.TableName))
	assert.Equal(t, "begins_with(orderId, :day) AND assignedRoute IN (:route0, :route1)", aws.ToString(first.FilterExpression))
	assert.Equal(t, int32(25), aws.ToInt32(first.Limit))
	assert.Nil(t, first.ExclusiveStartKey)
	assert.Equal(t, "30A1", fake.scanInputs[1].ExclusiveStartKey["orderId"].(*types.AttributeValueMemberS).Value)
}

func TestDynamoBatchGetRetriesUnprocessed(t *testing.T) {
	p := model.ParentOrder{ReceptionNumber: "R2", CustomerInfo: model.CustomerInfo{ContactName: "佐藤"}}
	fake := &fakeDynamo{
		items: map[string]map[string]types.AttributeValue{"R2": mustMarshal(t, p)},
		unprocessed: map[string]types.KeysAndAttributes{OrdersTable: {Keys: []map[string]types.AttributeValue{
			{"receptionNumber": &types.AttributeValueMemberS{Value: "R2"}},
		}}},
	}
	s := NewDynamoStoreWithClient(fake, 10)

	got, err := s.BatchGetParents(context.Background(), []string{"R1", "R2"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.batchCalls)
	assert.Equal(t, "佐藤", got["R2"].CustomerInfo.ContactName)
}

func TestDynamoGetParent(t *testing.T) {
	p := model.ParentOrder{ReceptionNumber: "R7", AllocationNumber: "12", CustomerInfo: model.CustomerInfo{ContactName: "鈴木"}}
	fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{"R7": mustMarshal(t, p)}}
	s := NewDynamoStoreWithClient(fake, 10)

	got, err := s.GetParent(context.Background(), "R7")
	require.NoError(t, err)
	assert.Equal(t, "鈴木", got.CustomerInfo.ContactName)
	assert.Equal(t, "12", got.AllocationNumber)

	_, err = s.GetParent(context.Background(), "R8")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoQueryOrderDetailsFollowsPages(t *testing.T) {
	fake := &fakeDynamo{details: []map[string]types.AttributeValue{
		mustMarshal(t, model.OrderDetail{ReceptionNumber: "R1", OrderID: "30A1"}),
		mustMarshal(t, model.OrderDetail{ReceptionNumber: "R2", OrderID: "30A2"}),
		mustMarshal(t, model.OrderDetail{ReceptionNumber: "R1", OrderID: "31B1"}),
	}}
	s := NewDynamoStoreWithClient(fake, 10)

	got, err := s.QueryOrderDetails(context.Background(), "2025", "R1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "30A1", got[0].OrderID)
	assert.Equal(t, "31B1", got[1].OrderID)

	require.Len(t, fake.queryInputs, 2)
	assert.Equal(t, "OrderDetails-A", aws.ToString(fake.queryInputs[0].TableName))
	assert.Equal(t, "receptionNumber = :rn", aws.ToString(fake.queryInputs[0].KeyConditionExpression))
	assert.Nil(t, fake.queryInputs[0].ExclusiveStartKey)
	assert.Equal(t, "30A1", fake.queryInputs[1].ExclusiveStartKey["orderId"].(*types.AttributeValueMemberS).Value)
}

func TestDynamoUpdateConditionFailure(t *testing.T) {
	fake := &fakeDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	s := NewDynamoStoreWithClient(fake, 10)

	err := s.UpdateAssignedRoute(context.Background(), "2025", "R1", "30A1", "北1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.Len(t, fake.updates, 1)
	assert.Equal(t, "attribute_exists(orderId)", aws.ToString(fake.updates[0].ConditionExpression))
	assert.Equal(t, "OrderDetails-A", aws.ToString(fake.updates[0].TableName))
}

func TestStartKeyTokenRoundTrip(t *testing.T) {
	key := map[string]types.AttributeValue{
		"receptionNumber": &types.AttributeValueMemberS{Value: "R1"},
		"orderId":         &types.AttributeValueMemberS{Value: "30A1"},
	}
	token, err := encodeStartKey(key)
	require.NoError(t, err)
	back, err := decodeStartKey(token)
	require.NoError(t, err)
	assert.Equal(t, key, back)

	_, err = decodeStartKey("%%%")
	assert.Error(t, err)
}

func TestDynamoPutOrderDetailUsesYearTable(t *testing.T) {
	fake := &fakeDynamo{}
	s := NewDynamoStoreWithClient(fake, 10)
	require.NoError(t, s.PutOrderDetail(context.Background(), "2023", model.OrderDetail{ReceptionNumber: "R1", OrderID: "30A1"}))
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "OrderDetails-B", aws.ToString(fake.puts[0].TableName))
	assert.Equal(t, "30A1", fake.puts[0].Item["orderId"].(*types.AttributeValueMemberS).Value)
}
