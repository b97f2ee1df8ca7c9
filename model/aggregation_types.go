package model

// ComposedOrder はダッシュボード表示用に OrderDetail と ParentOrder を結合したものです。
type ComposedOrder struct {
	OrderID         string         `json:"orderId"`
	ReceptionNumber string         `json:"receptionNumber"`
	DeliveryAddress string         `json:"deliveryAddress"`
	DeliveryTime    string         `json:"deliveryTime"`
	AssignedRoute   string         `json:"assignedRoute"`
	ContactName     string         `json:"contactName"`
	Tel             string         `json:"tel"`
	RecipientName   string         `json:"recipientName"`
	ReceiptType     string         `json:"receiptType"`
	Receipts        []Receipt      `json:"receipts"`
	OrderItems      []ComposedItem `json:"orderItems"`
	SideOrders      []SideItem     `json:"sideOrders"`
	OrderTotal      Number         `json:"orderTotal"`
	Notes           *string        `json:"notes"`
	Sequence        *int           `json:"sequence"`
	PaymentGroups   []PaymentGroup `json:"paymentGroups"`
}

// SequenceOrZero は sequence 未設定を 0 として返します。
func (o *ComposedOrder) SequenceOrZero() int {
	if o.Sequence == nil {
		return 0
	}
	return *o.Sequence
}

// ComposedItem は変更パターンを添付した OrderItem です。
type ComposedItem struct {
	OrderItem
	ChangePatterns []ChangePattern `json:"change_patterns"`
}

type DashboardMasters struct {
	Products map[string]ProductMaster `json:"products"`
}

type DashboardResponse struct {
	Orders  []ComposedOrder  `json:"orders"`
	Masters DashboardMasters `json:"masters"`
}

type SummaryMasters struct {
	Products     map[string]ProductMaster `json:"products"`
	SpecialMenus map[string]SpecialMenu   `json:"specialMenus"`
	NetaMaster   []NetaMaster             `json:"netaMaster"`
}
