package model

// Configuration は年度ごとの設定レコード (Configurations テーブル) です。
// 1リクエスト内では読み取り専用として扱います。
type Configuration struct {
	ConfigYear      string                   `json:"configYear"`
	Products        map[string]ProductMaster `json:"products"`
	SpecialMenus    map[string]SpecialMenu   `json:"specialMenus"`
	DeliveryWariate []RouteGroup             `json:"deliveryWariate"`
	DeliveryRoutes  []string                 `json:"deliveryRoutes,omitempty"`
	DeliveryDates   []string                 `json:"deliveryDates,omitempty"`
}

type ProductMaster struct {
	Name  string   `json:"name"`
	Price Number   `json:"price"`
	Neta  []string `json:"neta,omitempty"`
}

type SpecialMenu struct {
	Name  string `json:"name"`
	Price Number `json:"price"`
}

// RouteGroup は割り当て (wariate) です。ResponsibleRoutes が空なら名前自体が配達ルートになります。
type RouteGroup struct {
	Name              string   `json:"name"`
	ResponsibleRoutes []string `json:"responsibleRoutes"`
}

// NetaMaster はネタマスタ (NetaMaster テーブル) の1件です。
type NetaMaster struct {
	NetaName     string `json:"netaName"`
	Category     string `json:"category,omitempty"`
	DisplayOrder int    `json:"displayOrder"`
}

// ProductName は商品マスタ上の表示名を返します。未登録ならキーをそのまま返します。
func ProductName(products map[string]ProductMaster, key string) string {
	if p, ok := products[key]; ok && p.Name != "" {
		return p.Name
	}
	return key
}

// SpecialMenuName はサイドメニューの表示名を返します。未登録ならキーをそのまま返します。
func SpecialMenuName(menus map[string]SpecialMenu, key string) string {
	if m, ok := menus[key]; ok && m.Name != "" {
		return m.Name
	}
	return key
}
