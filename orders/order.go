package orders

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sushiorders/apierror"
	"sushiorders/database"
	"sushiorders/logging"
	"sushiorders/model"
)

const orderPrefix = "/api/orders/"

// Order は受付番号単位の注文 (共通情報 + 配達明細) です。
type Order struct {
	model.ParentOrder
	Orders []model.OrderDetail `json:"orders"`
}

type OrderParams struct {
	ReceptionNumber string `validate:"required"`
	Year            string `validate:"required,numeric,len=4"`
}

// GetOrder は親注文とその全明細を返します。親が無ければ database.ErrNotFound です。
func GetOrder(ctx context.Context, store database.Store, p OrderParams) (*Order, error) {
	parent, err := store.GetParent(ctx, p.ReceptionNumber)
	if err != nil {
		return nil, err
	}
	details, err := store.QueryOrderDetails(ctx, p.Year, p.ReceptionNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load details of %s: %w", p.ReceptionNumber, err)
	}
	if parent.Receipts == nil {
		parent.Receipts = []model.Receipt{}
	}
	if parent.PaymentGroups == nil {
		parent.PaymentGroups = []model.PaymentGroup{}
	}
	return &Order{ParentOrder: *parent, Orders: details}, nil
}

// GetOrderHandler は GET /api/orders/{receptionNumber}?year=YYYY を処理します。
func GetOrderHandler(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		p := OrderParams{
			ReceptionNumber: strings.Trim(strings.TrimPrefix(r.URL.Path, orderPrefix), "/"),
			Year:            r.URL.Query().Get("year"),
		}
		if err := apierror.ValidateStruct(p, "Reception number and year are required."); err != nil {
			apierror.WriteError(w, err)
			return
		}

		order, err := GetOrder(r.Context(), store, p)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				apierror.WriteError(w, apierror.NotFound("Order %s not found.", p.ReceptionNumber))
				return
			}
			logging.FromContext(r.Context()).Errorf("get order failed: %v", err)
			apierror.WriteError(w, err)
			return
		}
		apierror.WriteJSON(w, order)
	}
}
