// Package wariate は割り当て (配達ルートグループ) の名前を具体的なルート一覧に解決します。
package wariate

import "sushiorders/model"

// Resolve は requested に一致する割り当ての担当ルートを返します。
// 見つからない、または担当ルートが空の場合は requested 自体を唯一のルートとして返します。
func Resolve(groups []model.RouteGroup, requested string) []string {
	for _, g := range groups {
		if g.Name != requested {
			continue
		}
		if len(g.ResponsibleRoutes) > 0 {
			routes := make([]string, len(g.ResponsibleRoutes))
			copy(routes, g.ResponsibleRoutes)
			return routes
		}
		break
	}
	return []string{requested}
}
