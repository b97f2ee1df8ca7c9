package model

const (
	WasabiYes = "あり"
	WasabiNo  = "抜き"
)

// OrderDetail は OrderDetails-{A,B,C} テーブルの1件 (配達単位の注文) です。
// OrderID の先頭2桁が配達日、3桁目がプレフィックス、4桁目がフロアを表します。
type OrderDetail struct {
	ReceptionNumber string                     `json:"receptionNumber"`
	OrderID         string                     `json:"orderId"`
	InternalID      string                     `json:"internalId,omitempty"`
	AssignedRoute   string                     `json:"assignedRoute,omitempty"`
	DeliveryDate    string                     `json:"deliveryDate,omitempty"`
	DeliveryAddress string                     `json:"deliveryAddress,omitempty"`
	DeliveryTime    string                     `json:"deliveryTime,omitempty"`
	DeliveryMethod  string                     `json:"deliveryMethod,omitempty"`
	Sequence        *int                       `json:"sequence,omitempty"`
	OrderTotal      Number                     `json:"orderTotal"`
	OrderItems      []OrderItem                `json:"orderItems"`
	SideOrders      []SideItem                 `json:"sideOrders"`
	NetaChanges     map[string][]ChangePattern `json:"netaChanges,omitempty"`
}

type OrderItem struct {
	ProductKey string   `json:"productKey"`
	Name       string   `json:"name,omitempty"`
	UnitPrice  Number   `json:"unitPrice"`
	Quantity   Quantity `json:"quantity"`
	Notes      string   `json:"notes,omitempty"`
}

// ChangePattern は OrderItem のうち一部の個数に対する変更内容です。
type ChangePattern struct {
	Quantity     Quantity        `json:"quantity"`
	IsOri        bool            `json:"isOri"`
	Wasabi       string          `json:"wasabi"`
	SelectedNeta map[string]bool `json:"selectedNeta"`
}

type SideItem struct {
	ProductKey string   `json:"productKey"`
	Name       string   `json:"name,omitempty"`
	Quantity   Quantity `json:"quantity"`
}

// ParentOrder は Orders テーブルの1件 (受付番号単位) です。
type ParentOrder struct {
	ReceptionNumber  string         `json:"receptionNumber"`
	AllocationNumber string         `json:"allocationNumber,omitempty"`
	OrderType        string         `json:"orderType,omitempty"`
	CustomerInfo     CustomerInfo   `json:"customerInfo"`
	Receipts         []Receipt      `json:"receipts"`
	PaymentGroups    []PaymentGroup `json:"paymentGroups"`
	GlobalNotes      *string        `json:"globalNotes,omitempty"`
	GrandTotal       Number         `json:"grandTotal"`
	SelectedYear     string         `json:"selectedYear,omitempty"`
	SubmittedAt      string         `json:"submittedAt,omitempty"`
}

type CustomerInfo struct {
	ContactName string `json:"contactName,omitempty"`
	Tel         string `json:"tel,omitempty"`
	Fax         string `json:"fax,omitempty"`
	Email       string `json:"email,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	Department  string `json:"department,omitempty"`
	StoreNumber string `json:"storeNumber,omitempty"`
}

type Receipt struct {
	DocumentType  string `json:"documentType,omitempty"`
	RecipientName string `json:"recipientName,omitempty"`
	IssueDate     string `json:"issueDate,omitempty"`
	Proviso       string `json:"proviso,omitempty"`
	Amount        Number `json:"amount"`
}

type PaymentGroup struct {
	ID              string          `json:"id,omitempty"`
	PaymentDate     string          `json:"paymentDate,omitempty"`
	CheckedOrderIDs map[string]bool `json:"checkedOrderIds,omitempty"`
	Total           Number          `json:"total"`
}

// Locator は OrderID の3桁目 (プレフィックス) と4桁目 (フロア) を返します。
func (d *OrderDetail) Locator() (prefix, floor string, ok bool) {
	if len(d.OrderID) < 4 {
		return "", "", false
	}
	return d.OrderID[2:3], d.OrderID[3:4], true
}

// PatternsFor は商品キーに紐づく変更パターンを返します。無ければ空スライスです。
func (d *OrderDetail) PatternsFor(productKey string) []ChangePattern {
	if p, ok := d.NetaChanges[productKey]; ok && p != nil {
		return p
	}
	return []ChangePattern{}
}

// HasStructuralChange はネタ変 (selectedNeta に true が1つ以上) かどうかを返します。
func (p ChangePattern) HasStructuralChange() bool {
	for _, v := range p.SelectedNeta {
		if v {
			return true
		}
	}
	return false
}

// IsNoWasabi はさび抜きかどうかを返します。「抜き」と完全一致した場合のみです。
func (p ChangePattern) IsNoWasabi() bool {
	return p.Wasabi == WasabiNo
}
