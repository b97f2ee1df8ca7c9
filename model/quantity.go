package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Quantity は注文個数です。
// 画面からは文字列のまま保存されることがあるため、数値・数値文字列・空文字・null を受け付けます。
type Quantity int

func (q Quantity) Int() int {
	return int(q)
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(q))), nil
}

func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return q.parse(s)
	}
	return q.parse(string(b))
}

func (q Quantity) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(int(q))}, nil
}

func (q *Quantity) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		return q.parse(v.Value)
	case *types.AttributeValueMemberS:
		return q.parse(v.Value)
	case *types.AttributeValueMemberNULL:
		*q = 0
		return nil
	default:
		return fmt.Errorf("unsupported attribute type %T for quantity", av)
	}
}

// parse は "3" や "3.0" を整数個数に変換します。小数部は切り捨てます。
func (q *Quantity) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*q = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	*q = Quantity(d.IntPart())
	return nil
}
