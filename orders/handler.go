package orders

import (
	"context"
	"net/http"
	"strings"

	"sushiorders/apierror"
	"sushiorders/database"
	"sushiorders/logging"
	"sushiorders/model"
)

const pathPrefix = "/api/orders/by-date/"

type Params struct {
	Date string `validate:"required,datetime=2006-01-02"`
	Year string `validate:"required,numeric,len=4"`
}

// ListByDate は指定日 (orderId 先頭2桁) の全ての配達明細を返します。
func ListByDate(ctx context.Context, store database.Store, p Params) ([]model.OrderDetail, error) {
	details, err := database.CollectOrderDetails(ctx, store, p.Year, database.ScanFilter{DayPrefix: p.Date[8:10]})
	if err != nil {
		return nil, err
	}
	if details == nil {
		details = []model.OrderDetail{}
	}
	return details, nil
}

// GetOrdersByDateHandler は GET /api/orders/by-date/{date}?year=YYYY を処理します。
func GetOrdersByDateHandler(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		p := Params{
			Date: strings.TrimPrefix(r.URL.Path, pathPrefix),
			Year: r.URL.Query().Get("year"),
		}
		if p.Date == "" || p.Year == "" {
			apierror.WriteError(w, apierror.Validation("Date and Year parameters are required."))
			return
		}
		if err := apierror.ValidateStruct(p, ""); err != nil {
			apierror.WriteError(w, err)
			return
		}

		details, err := ListByDate(r.Context(), store, p)
		if err != nil {
			logging.FromContext(r.Context()).Errorf("list orders by date failed: %v", err)
			apierror.WriteError(w, err)
			return
		}
		apierror.WriteJSON(w, details)
	}
}
