package allocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"sushiorders/apierror"
	"sushiorders/database"
	"sushiorders/logging"
	"sushiorders/model"
)

const pathPrefix = "/api/allocations/"

// ResolveRoute は割り当て表から配送ルートを引きます。
// 「プレフィックス-フロア」、プレフィックス、orderId の順に探し、空でない最初の値を返します。
func ResolveRoute(assignments map[string]string, d *model.OrderDetail) (string, bool) {
	if prefix, floor, ok := d.Locator(); ok {
		if route := assignments[prefix+"-"+floor]; route != "" {
			return route, true
		}
		if route := assignments[prefix]; route != "" {
			return route, true
		}
	}
	if route := assignments[d.OrderID]; route != "" {
		return route, true
	}
	return "", false
}

// Apply は指定日の全明細に割り当てを適用し、更新件数を返します。
func Apply(ctx context.Context, store database.Store, date, year string, assignments map[string]string) (int, error) {
	details, err := database.CollectOrderDetails(ctx, store, year, database.ScanFilter{DayPrefix: date[8:10]})
	if err != nil {
		return 0, err
	}

	log := logging.FromContext(ctx)
	updated := 0
	for i := range details {
		d := &details[i]
		route, ok := ResolveRoute(assignments, d)
		if !ok {
			continue
		}
		if err := store.UpdateAssignedRoute(ctx, year, d.ReceptionNumber, d.OrderID, route); err != nil {
			return updated, fmt.Errorf("failed to assign route to %s: %w", d.OrderID, err)
		}
		log.WithFields(logrus.Fields{"order_id": d.OrderID, "route": route}).Debug("route assigned")
		updated++
	}
	return updated, nil
}

type Params struct {
	Date string `validate:"required,datetime=2006-01-02"`
	Year string `validate:"required,numeric,len=4"`
}

// UpdateAllocationsHandler は POST /api/allocations/{date}?year=YYYY を処理します。
// year 省略時は date の年を使います。
func UpdateAllocationsHandler(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		p := Params{
			Date: strings.TrimPrefix(r.URL.Path, pathPrefix),
			Year: r.URL.Query().Get("year"),
		}
		var assignments map[string]string
		if err := json.NewDecoder(r.Body).Decode(&assignments); err != nil || p.Date == "" || len(assignments) == 0 {
			apierror.WriteError(w, apierror.Validation("Date and assignments data are required."))
			return
		}
		if p.Year == "" && len(p.Date) >= 4 {
			p.Year = p.Date[:4]
		}
		if err := apierror.ValidateStruct(p, ""); err != nil {
			apierror.WriteError(w, err)
			return
		}

		updated, err := Apply(r.Context(), store, p.Date, p.Year, assignments)
		if err != nil {
			logging.FromContext(r.Context()).Errorf("update allocations failed: %v", err)
			apierror.WriteError(w, err)
			return
		}
		apierror.WriteJSON(w, map[string]interface{}{
			"message": fmt.Sprintf("Successfully updated %d orders with new assignments.", updated),
			"updated": updated,
		})
	}
}
