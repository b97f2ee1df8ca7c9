package summary

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sushiorders/apierror"
	"sushiorders/database"
	"sushiorders/logging"
	"sushiorders/metrics"
	"sushiorders/model"
	"sushiorders/wariate"
)

// Params は日次集計のクエリパラメータです。year は省略時 date から求めます。
type Params struct {
	Date  string `validate:"required,datetime=2006-01-02"`
	Route string `validate:"required"`
	Year  string `validate:"omitempty,numeric,len=4"`
}

func ParamsFromRequest(r *http.Request) (Params, error) {
	q := r.URL.Query()
	p := Params{Date: q.Get("date"), Route: q.Get("route"), Year: q.Get("year")}
	if p.Date == "" || p.Route == "" {
		return p, apierror.Validation("Date and route parameters are required.")
	}
	if err := apierror.ValidateStruct(p, ""); err != nil {
		return p, err
	}
	if p.Year == "" {
		p.Year = p.Date[:4]
	}
	return p, nil
}

func (p Params) day() string {
	return p.Date[8:10]
}

type Response struct {
	ProductSummary     map[string]*Counts   `json:"product_summary"`
	NetaSummary        map[string]int       `json:"neta_summary"`
	OtherOrdersSummary map[string]int       `json:"other_orders_summary"`
	FilteredOrders     []model.OrderDetail  `json:"filtered_orders"`
	Masters            model.SummaryMasters `json:"masters"`
}

// Build は設定・ネタマスタを取得し、割り当てを解決して対象日の注文を集計します。
func Build(ctx context.Context, store database.Store, p Params) (*Response, error) {
	var (
		cfg  *model.Configuration
		neta []model.NetaMaster
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := store.GetConfig(gctx, p.Year)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apierror.NotFound("Config for %s not found.", p.Year)
			}
			return err
		}
		cfg = c
		return nil
	})
	g.Go(func() error {
		n, err := store.ListNetaMaster(gctx)
		if err != nil {
			return err
		}
		neta = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	routes := wariate.Resolve(cfg.DeliveryWariate, p.Route)
	orders, err := database.CollectOrderDetails(ctx, store, p.Year, database.ScanFilter{
		DayPrefix: p.day(),
		Routes:    routes,
	})
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	log.WithFields(logrus.Fields{
		"date":   p.Date,
		"route":  p.Route,
		"routes": routes,
		"orders": len(orders),
	}).Debug("aggregating daily summary")

	res := Aggregate(orders, cfg.Products, neta, cfg.SpecialMenus)
	for _, w := range res.Warnings {
		metrics.IncOverallocation()
		log.WithFields(logrus.Fields{
			"order_id":         w.OrderID,
			"product_key":      w.ProductKey,
			"item_quantity":    w.ItemQuantity,
			"pattern_quantity": w.PatternQuantity,
		}).Warn("change pattern quantities exceed item quantity; remainder clamped to 0")
	}

	products := cfg.Products
	if products == nil {
		products = map[string]model.ProductMaster{}
	}
	menus := cfg.SpecialMenus
	if menus == nil {
		menus = map[string]model.SpecialMenu{}
	}
	return &Response{
		ProductSummary:     res.ProductSummary,
		NetaSummary:        res.ToppingSummary,
		OtherOrdersSummary: res.OtherItemsSummary,
		FilteredOrders:     orders,
		Masters: model.SummaryMasters{
			Products:     products,
			SpecialMenus: menus,
			NetaMaster:   neta,
		},
	}, nil
}

// GetDailySummaryHandler は GET /api/daily-summary?date=YYYY-MM-DD&route=... を処理します。
func GetDailySummaryHandler(store database.Store) http.HandlerFunc {
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
				logging.FromContext(r.Context()).Errorf("daily summary failed: %v", err)
			}
			apierror.WriteError(w, err)
			return
		}
		apierror.WriteJSON(w, resp)
	}
}
