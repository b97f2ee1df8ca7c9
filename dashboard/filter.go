package dashboard

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"sushiorders/model"
)

// normalizeRoute は全角・半角の揺れを吸収するため NFKC 正規化して前後の空白を除きます。
func normalizeRoute(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(norm.NFKC.String(s))
}

// FilterByRoute は正規化したルート名が一致する明細だけを返します。route が空なら全件です。
func FilterByRoute(details []model.OrderDetail, route string) []model.OrderDetail {
	target := normalizeRoute(route)
	if target == "" {
		return details
	}
	out := make([]model.OrderDetail, 0, len(details))
	for _, d := range details {
		if normalizeRoute(d.AssignedRoute) == target {
			out = append(out, d)
		}
	}
	return out
}
