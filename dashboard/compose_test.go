package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sushiorders/model"
)

func seq(n int) *int { return &n }

var (
	testProducts = map[string]model.ProductMaster{"P1": {Name: "極"}, "P2": {Name: "泉"}}
	testMenus    = map[string]model.SpecialMenu{"tamago": {Name: "玉子焼き"}}
)

func TestComposeMissingParentKeepsOrderAndPosition(t *testing.T) {
	notes := "裏口から"
	details := []model.OrderDetail{
		{ReceptionNumber: "R2", OrderID: "30A2", Sequence: seq(2)},
		{ReceptionNumber: "R1", OrderID: "30A1", Sequence: seq(1)},
		{ReceptionNumber: "R3", OrderID: "30A3", Sequence: seq(3)},
	}
	parents := map[string]model.ParentOrder{
		"R2": {
			ReceptionNumber: "R2",
			CustomerInfo:    model.CustomerInfo{ContactName: "山田", Tel: "03-0000-0000"},
			Receipts:        []model.Receipt{{DocumentType: "領収書", RecipientName: "山田商店"}},
			GlobalNotes:     &notes,
		},
	}

	got, err := Compose(details, parents, testProducts, testMenus)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "30A1", got[0].OrderID)
	assert.Empty(t, got[0].ContactName)
	assert.Empty(t, got[0].Tel)
	assert.Empty(t, got[0].Receipts)
	assert.Nil(t, got[0].Notes)

	assert.Equal(t, "30A2", got[1].OrderID)
	assert.Equal(t, "山田", got[1].ContactName)
	assert.Equal(t, "03-0000-0000", got[1].Tel)
	assert.Equal(t, "領収書", got[1].ReceiptType)
	assert.Equal(t, "山田商店", got[1].RecipientName)
	require.NotNil(t, got[1].Notes)
	assert.Equal(t, notes, *got[1].Notes)

	assert.Equal(t, "30A3", got[2].OrderID)
}

func TestComposeSortIsStableAndNilSequenceIsZero(t *testing.T) {
	details := []model.OrderDetail{
		{OrderID: "30A1", Sequence: seq(1)},
		{OrderID: "30A2"},
		{OrderID: "30A3", Sequence: seq(0)},
		{OrderID: "30A4", Sequence: seq(1)},
	}

	got, err := Compose(details, nil, testProducts, testMenus)
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, o := range got {
		ids[i] = o.OrderID
	}
	assert.Equal(t, []string{"30A2", "30A3", "30A1", "30A4"}, ids)
}

func TestComposeAttachesPatternsAndSideNames(t *testing.T) {
	patterns := []model.ChangePattern{{Quantity: 1, Wasabi: model.WasabiNo}}
	details := []model.OrderDetail{{
		OrderID:    "30A1",
		OrderTotal: model.NewNumberFromInt(7000),
		OrderItems: []model.OrderItem{
			{ProductKey: "P1", Quantity: 2},
			{ProductKey: "P2", Quantity: 1},
		},
		SideOrders: []model.SideItem{
			{ProductKey: "tamago", Quantity: 1},
			{ProductKey: "unknown", Quantity: 2},
		},
		NetaChanges: map[string][]model.ChangePattern{"P1": patterns},
	}}

	got, err := Compose(details, nil, testProducts, testMenus)
	require.NoError(t, err)
	require.Len(t, got, 1)
	o := got[0]

	assert.Equal(t, patterns, o.OrderItems[0].ChangePatterns)
	assert.NotNil(t, o.OrderItems[1].ChangePatterns)
	assert.Empty(t, o.OrderItems[1].ChangePatterns)
	assert.Equal(t, "玉子焼き", o.SideOrders[0].Name)
	assert.Equal(t, "unknown", o.SideOrders[1].Name)
	assert.Empty(t, details[0].SideOrders[0].Name)

	b, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"orderTotal":7000`)
	assert.Contains(t, string(b), `"change_patterns":[]`)
	assert.Contains(t, string(b), `"receipts":[]`)
}

func TestFilterByRouteNormalizes(t *testing.T) {
	details := []model.OrderDetail{
		{OrderID: "30A1", AssignedRoute: "北１"},
		{OrderID: "30A2", AssignedRoute: " 北1 "},
		{OrderID: "30A3", AssignedRoute: "北2"},
		{OrderID: "30A4"},
	}

	assert.Len(t, FilterByRoute(details, "北1"), 2)
	assert.Len(t, FilterByRoute(details, "北１"), 2)
	assert.Len(t, FilterByRoute(details, ""), 4)
	assert.Empty(t, FilterByRoute(details, "南1"))
}
