package dashboard

import (
	"fmt"
	"sort"

	"github.com/jinzhu/copier"

	"sushiorders/model"
)

// Compose は配達明細に親注文を結合し、変更パターンとサイドメニュー名を付与して
// sequence 昇順 (未設定は0) に並べた一覧を返します。親注文が無い明細も一覧に残します。
func Compose(details []model.OrderDetail, parentsByReception map[string]model.ParentOrder, products map[string]model.ProductMaster, specialMenus map[string]model.SpecialMenu) ([]model.ComposedOrder, error) {
	out := make([]model.ComposedOrder, 0, len(details))

	for i := range details {
		d := &details[i]

		var co model.ComposedOrder
		if err := copier.Copy(&co, d); err != nil {
			return nil, fmt.Errorf("failed to copy order detail %s: %w", d.OrderID, err)
		}

		co.OrderItems = make([]model.ComposedItem, 0, len(d.OrderItems))
		for _, item := range d.OrderItems {
			co.OrderItems = append(co.OrderItems, model.ComposedItem{
				OrderItem:      item,
				ChangePatterns: d.PatternsFor(item.ProductKey),
			})
		}

		co.SideOrders = make([]model.SideItem, 0, len(d.SideOrders))
		for _, side := range d.SideOrders {
			if side.ProductKey != "" {
				side.Name = model.SpecialMenuName(specialMenus, side.ProductKey)
			}
			co.SideOrders = append(co.SideOrders, side)
		}

		co.Receipts = []model.Receipt{}
		co.PaymentGroups = []model.PaymentGroup{}
		if parent, ok := parentsByReception[d.ReceptionNumber]; ok {
			co.ContactName = parent.CustomerInfo.ContactName
			co.Tel = parent.CustomerInfo.Tel
			co.Notes = parent.GlobalNotes
			if parent.Receipts != nil {
				co.Receipts = parent.Receipts
			}
			if parent.PaymentGroups != nil {
				co.PaymentGroups = parent.PaymentGroups
			}
			if len(parent.Receipts) > 0 {
				co.ReceiptType = parent.Receipts[0].DocumentType
				co.RecipientName = parent.Receipts[0].RecipientName
			}
		}

		out = append(out, co)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].SequenceOrZero() < out[j].SequenceOrZero() })
	return out, nil
}
