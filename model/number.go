package model

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Number は DynamoDB の数値型 (固定小数点) を保持します。
// JSON では小数部が無ければ整数、あれば浮動小数点として出力します。
type Number struct {
	decimal.Decimal
}

func NewNumber(v float64) Number {
	return Number{decimal.NewFromFloat(v)}
}

func NewNumberFromInt(v int64) Number {
	return Number{decimal.NewFromInt(v)}
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.IsInteger() {
		return []byte(n.Decimal.String()), nil
	}
	f, _ := n.Float64()
	return json.Marshal(f)
}

// UnmarshalJSON は数値・文字列・null を受け付けます。
func (n *Number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		n.Decimal = decimal.Zero
		return nil
	}
	return n.Decimal.UnmarshalJSON(b)
}

func (n Number) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: n.Decimal.String()}, nil
}

func (n *Number) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		d, err := decimal.NewFromString(v.Value)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", v.Value, err)
		}
		n.Decimal = d
	case *types.AttributeValueMemberS:
		if v.Value == "" {
			n.Decimal = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(v.Value)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", v.Value, err)
		}
		n.Decimal = d
	case *types.AttributeValueMemberNULL:
		n.Decimal = decimal.Zero
	default:
		return fmt.Errorf("unsupported attribute type %T for number", av)
	}
	return nil
}
