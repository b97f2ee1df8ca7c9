package netachange

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"sushiorders/apierror"
	"sushiorders/database"
	"sushiorders/logging"
	"sushiorders/model"
	"sushiorders/wariate"
)

const orderDetailsPrefix = "/api/order-details/"

// HasNetaSelection はいずれかの変更パターンで selectedNeta にキーが1つ以上あるかを返します。
// 値が false でも選択履歴として扱い、一覧に含めます。
func HasNetaSelection(d *model.OrderDetail) bool {
	for _, patterns := range d.NetaChanges {
		for _, p := range patterns {
			if len(p.SelectedNeta) > 0 {
				return true
			}
		}
	}
	return false
}

type ListParams struct {
	Date  string `validate:"required,datetime=2006-01-02"`
	Route string `validate:"required"`
	Year  string `validate:"required,numeric,len=4"`
}

// List は割り当て名に対応するルートの明細のうち、ネタ選択のあるものを返します。
func List(ctx context.Context, store database.Store, p ListParams) ([]model.OrderDetail, error) {
	cfg, err := store.GetConfig(ctx, p.Year)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apierror.NotFound("Config for %s not found.", p.Year)
		}
		return nil, err
	}
	details, err := database.CollectOrderDetails(ctx, store, p.Year, database.ScanFilter{
		DayPrefix: p.Date[8:10],
		Routes:    wariate.Resolve(cfg.DeliveryWariate, p.Route),
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.OrderDetail, 0, len(details))
	for i := range details {
		if HasNetaSelection(&details[i]) {
			out = append(out, details[i])
		}
	}
	return out, nil
}

// GetNetaChangesHandler は GET /api/neta-changes?date=&route=&year= を処理します。
func GetNetaChangesHandler(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		p := ListParams{Date: q.Get("date"), Route: q.Get("route"), Year: q.Get("year")}
		if err := apierror.ValidateStruct(p, "Date, route, and year parameters are required."); err != nil {
			apierror.WriteError(w, err)
			return
		}

		orders, err := List(r.Context(), store, p)
		if err != nil {
			if apierror.Status(err) == http.StatusInternalServerError {
				logging.FromContext(r.Context()).Errorf("list neta changes failed: %v", err)
			}
			apierror.WriteError(w, err)
			return
		}
		apierror.WriteJSON(w, orders)
	}
}

// UpdateRequest は PUT /api/order-details/{receptionNumber}/{orderId} のボディです。
// netaChanges は丸ごと置き換えます。
type UpdateRequest struct {
	NetaChanges *map[string][]model.ChangePattern `json:"netaChanges" validate:"required"`
	Year        string                            `json:"year" validate:"required,numeric,len=4"`
}

// UpdateNetaChangesHandler は1件の明細の netaChanges を更新します。
func UpdateNetaChangesHandler(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, orderDetailsPrefix), "/"), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			apierror.WriteError(w, apierror.Validation("receptionNumber and orderId are required."))
			return
		}
		receptionNumber, orderID := parts[0], parts[1]

		var req UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierror.WriteError(w, apierror.Validation("netaChanges and year are required."))
			return
		}
		if err := apierror.ValidateStruct(req, "netaChanges and year are required."); err != nil {
			apierror.WriteError(w, err)
			return
		}

		err := store.UpdateNetaChanges(r.Context(), req.Year, receptionNumber, orderID, *req.NetaChanges)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				apierror.WriteError(w, apierror.NotFound("Order detail %s/%s not found.", receptionNumber, orderID))
				return
			}
			logging.FromContext(r.Context()).Errorf("update neta changes failed: %v", err)
			apierror.WriteError(w, err)
			return
		}
		logging.FromContext(r.Context()).WithField("order_id", orderID).Info("neta changes updated")
		apierror.WriteJSON(w, map[string]string{"message": "Neta changes updated successfully."})
	}
}
