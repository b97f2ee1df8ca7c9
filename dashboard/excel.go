package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/xuri/excelize/v2"

	"sushiorders/apierror"
	"sushiorders/database"
	"sushiorders/logging"
	"sushiorders/model"
)

// ExportRequest は一覧 Excel 出力のリクエストボディです。routes が空なら全件を1シートに出力します。
type ExportRequest struct {
	Date   string   `json:"date" validate:"required,datetime=2006-01-02"`
	Year   string   `json:"year" validate:"required,numeric,len=4"`
	Routes []string `json:"routes"`
}

const allRoutesSheet = "全件"

var exportHeaders = []string{
	"順番", "注文ID", "受付番号", "ルート", "配達先", "配達時間",
	"担当者", "電話番号", "宛名", "書類", "商品", "サイドメニュー", "合計", "備考",
}

// sheetName は Excel のシート名に使えない文字を置き換え、31文字に切り詰めます。
func sheetName(route string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, normalizeRoute(route))
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}

func itemsCell(items []model.ComposedItem, products map[string]model.ProductMaster) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		name := model.ProductName(products, it.ProductKey)
		if _, ok := products[it.ProductKey]; !ok && it.Name != "" {
			name = it.Name
		}
		s := fmt.Sprintf("%s×%d", name, it.Quantity)
		changed := 0
		for _, cp := range it.ChangePatterns {
			changed += cp.Quantity.Int()
		}
		if changed > 0 {
			s += fmt.Sprintf("(変更%d)", changed)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "、")
}

func sideCell(items []model.SideItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s×%d", it.Name, it.Quantity))
	}
	return strings.Join(parts, "、")
}

func writeSheet(f *excelize.File, sheet string, orders []model.ComposedOrder, products map[string]model.ProductMaster) error {
	header := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, o := range orders {
		notes := ""
		if o.Notes != nil {
			notes = *o.Notes
		}
		row := []interface{}{
			o.SequenceOrZero(), o.OrderID, o.ReceptionNumber, o.AssignedRoute, o.DeliveryAddress, o.DeliveryTime,
			o.ContactName, o.Tel, o.RecipientName, o.ReceiptType,
			itemsCell(o.OrderItems, products), sideCell(o.SideOrders),
			o.OrderTotal.InexactFloat64(), notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "E", "E", 30); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "K", "L", 40)
}

// BuildWorkbook はルートごとに1シートの一覧ブックを作成します。
func BuildWorkbook(data *dayData, routes []string) (*excelize.File, error) {
	f := excelize.NewFile()
	products := data.products()

	type target struct{ sheet, route string }
	var targets []target
	seen := make(map[string]bool)
	for _, r := range routes {
		name := sheetName(r)
		// Excel のシート名は大文字小文字を区別しない
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		targets = append(targets, target{sheet: name, route: r})
	}
	if len(targets) == 0 {
		targets = append(targets, target{sheet: allRoutesSheet})
	}

	for i, t := range targets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.sheet); err != nil {
				f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(t.sheet); err != nil {
			f.Close()
			return nil, err
		}

		orders, err := Compose(FilterByRoute(data.details, t.route), data.parents, products, data.config.SpecialMenus)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := writeSheet(f, t.sheet, orders, products); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %s: %w", t.sheet, err)
		}
	}
	return f, nil
}

// ExportDashboardHandler は POST /api/dashboard/export を処理し、xlsx を返します。
func ExportDashboardHandler(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierror.WriteError(w, apierror.Validation("invalid request body"))
			return
		}
		if req.Date == "" || req.Year == "" {
			apierror.WriteError(w, apierror.Validation(paramsRequired))
			return
		}
		if err := apierror.ValidateStruct(req, ""); err != nil {
			apierror.WriteError(w, err)
			return
		}

		data, err := loadDay(r.Context(), store, req.Date, req.Year)
		if err != nil {
			if apierror.Status(err) == http.StatusInternalServerError {
				logging.FromContext(r.Context()).Errorf("dashboard export failed: %v", err)
			}
			apierror.WriteError(w, err)
			return
		}
		f, err := BuildWorkbook(data, req.Routes)
		if err != nil {
			logging.FromContext(r.Context()).Errorf("dashboard export failed: %v", err)
			apierror.WriteError(w, err)
			return
		}
		defer f.Close()

		filename := fmt.Sprintf("一覧_%s.xlsx", req.Date)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
		if err := f.Write(w); err != nil {
			logging.FromContext(r.Context()).Errorf("failed to write workbook: %v", err)
		}
	}
}
