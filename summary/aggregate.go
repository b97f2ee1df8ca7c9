// Package summary は日次集計 (商品8区分・ネタ変・サイドメニュー) を行います。
package summary

import "sushiorders/model"

// Warning は変更パターンの合計が注文数を超えていた明細です。
type Warning struct {
	OrderID          string
	ProductKey       string
	ItemQuantity     int
	PatternQuantity  int
	ClampedRemainder int
}

type Result struct {
	ProductSummary    map[string]*Counts `json:"product_summary"`
	ToppingSummary    map[string]int     `json:"neta_summary"`
	OtherItemsSummary map[string]int     `json:"other_orders_summary"`
	Warnings          []Warning          `json:"-"`
}

// Aggregate は注文明細を1個ずつ8区分に分類し、商品別・ネタ別・サイドメニュー別に集計します。
func Aggregate(orders []model.OrderDetail, products map[string]model.ProductMaster, netaMaster []model.NetaMaster, specialMenus map[string]model.SpecialMenu) Result {
	res := Result{
		ProductSummary:    make(map[string]*Counts, len(products)),
		ToppingSummary:    make(map[string]int, len(netaMaster)),
		OtherItemsSummary: make(map[string]int),
	}
	for key := range products {
		res.ProductSummary[key] = &Counts{}
	}
	for _, n := range netaMaster {
		res.ToppingSummary[n.NetaName] = 0
	}

	for i := range orders {
		order := &orders[i]
		for _, item := range order.OrderItems {
			counts, ok := res.ProductSummary[item.ProductKey]
			qty := item.Quantity.Int()
			if !ok || qty == 0 {
				continue
			}

			processed := 0
			for _, p := range order.NetaChanges[item.ProductKey] {
				n := p.Quantity.Int()
				if n <= 0 {
					continue
				}
				changed := p.HasStructuralChange()
				cat := Classify(changed, p.IsNoWasabi(), p.IsOri)
				for u := 0; u < n; u++ {
					processed++
					counts[cat]++
				}

				if changed {
					for name, selected := range p.SelectedNeta {
						if !selected {
							continue
						}
						if _, known := res.ToppingSummary[name]; known {
							res.ToppingSummary[name] += n
						}
					}
				}
			}

			// 変更パターンの無い残りは「通常 (さび有)」。折は必ずパターンで指定されるため、ここには入らない。
			remainder := qty - processed
			switch {
			case remainder > 0:
				counts[NormalWasabi] += remainder
			case remainder < 0:
				res.Warnings = append(res.Warnings, Warning{
					OrderID:          order.OrderID,
					ProductKey:       item.ProductKey,
					ItemQuantity:     qty,
					PatternQuantity:  processed,
					ClampedRemainder: remainder,
				})
			}
		}

		for _, side := range order.SideOrders {
			if side.ProductKey == "" || side.Quantity <= 0 {
				continue
			}
			name := model.SpecialMenuName(specialMenus, side.ProductKey)
			res.OtherItemsSummary[name] += side.Quantity.Int()
		}
	}
	return res
}
