package dashboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sushiorders/apierror"
	"sushiorders/database"
	"sushiorders/logging"
	"sushiorders/model"
)

const paramsRequired = "Date and Year parameters are required."

// Params はダッシュボードのクエリパラメータです。route は省略可能です。
type Params struct {
	Date  string `validate:"required,datetime=2006-01-02"`
	Year  string `validate:"required,numeric,len=4"`
	Route string
}

func ParamsFromRequest(r *http.Request) (Params, error) {
	q := r.URL.Query()
	p := Params{Date: q.Get("date"), Year: q.Get("year"), Route: q.Get("route")}
	if p.Date == "" || p.Year == "" {
		return p, apierror.Validation(paramsRequired)
	}
	if err := apierror.ValidateStruct(p, ""); err != nil {
		return p, err
	}
	return p, nil
}

// dayData は1日分の設定・明細・親注文です。
type dayData struct {
	config  *model.Configuration
	details []model.OrderDetail
	parents map[string]model.ParentOrder
}

// loadDay は設定取得と明細スキャンを並行で行い、続けて親注文を一括取得します。
func loadDay(ctx context.Context, store database.Store, date, year string) (*dayData, error) {
	var data dayData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := store.GetConfig(gctx, year)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apierror.NotFound("Config for %s not found.", year)
			}
			return err
		}
		data.config = c
		return nil
	})
	g.Go(func() error {
		d, err := database.CollectOrderDetails(gctx, store, year, database.ScanFilter{DayPrefix: date[8:10]})
		if err != nil {
			return err
		}
		data.details = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	parents, err := store.BatchGetParents(ctx, database.ReceptionNumbers(data.details))
	if err != nil {
		return nil, err
	}
	data.parents = parents
	return &data, nil
}

func (d *dayData) products() map[string]model.ProductMaster {
	if d.config.Products == nil {
		return map[string]model.ProductMaster{}
	}
	return d.config.Products
}

// Build は指定日のダッシュボード一覧を組み立てます。
func Build(ctx context.Context, store database.Store, p Params) (*model.DashboardResponse, error) {
	data, err := loadDay(ctx, store, p.Date, p.Year)
	if err != nil {
		return nil, err
	}

	details := FilterByRoute(data.details, p.Route)
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"date":     p.Date,
		"route":    p.Route,
		"fetched":  len(data.details),
		"filtered": len(details),
	}).Debug("composing dashboard")

	orders, err := Compose(details, data.parents, data.products(), data.config.SpecialMenus)
	if err != nil {
		return nil, err
	}
	return &model.DashboardResponse{
		Orders:  orders,
		Masters: model.DashboardMasters{Products: data.products()},
	}, nil
}

// GetDashboardHandler は GET /api/dashboard?date=YYYY-MM-DD&year=YYYY[&route=] を処理します。
func GetDashboardHandler(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		p, err := ParamsFromRequest(r)
		if err != nil {
			apierror.WriteError(w, err)
			return
		}
		resp, err := Build(r.Context(), store, p)
		if err != nil {
			if apierror.Status(err) == http.StatusInternalServerError {
				logging.FromContext(r.Context()).Errorf("dashboard failed: %v", err)
			}
			apierror.WriteError(w, err)
			return
		}
		apierror.WriteJSON(w, resp)
	}
}
