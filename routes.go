package main

import (
	"net/http"

	"sushiorders/allocation"
	"sushiorders/apierror"
	"sushiorders/dashboard"
	"sushiorders/database"
	"sushiorders/loader"
	"sushiorders/logging"
	"sushiorders/metrics"
	"sushiorders/netachange"
	"sushiorders/orders"
	"sushiorders/summary"
)

func SetupRoutes(mux *http.ServeMux, store database.Store, seedDir string) {
	handle := func(pattern, name string, h http.HandlerFunc) {
		mux.Handle(pattern, logging.Middleware(name, h))
	}

	handle("/api/daily-summary", "daily_summary", summary.GetDailySummaryHandler(store))
	handle("/api/daily-summary/export", "daily_summary_export", summary.ExportDailySummaryCSVHandler(store))

	handle("/api/dashboard", "dashboard", dashboard.GetDashboardHandler(store))
	handle("/api/dashboard/export", "dashboard_export", dashboard.ExportDashboardHandler(store))

	handle("/api/orders/by-date/", "orders_by_date", orders.GetOrdersByDateHandler(store))
	handle("/api/orders/", "order", orders.GetOrderHandler(store))
	handle("/api/allocations/", "allocations", allocation.UpdateAllocationsHandler(store))

	handle("/api/neta-changes", "neta_changes", netachange.GetNetaChangesHandler(store))
	handle("/api/order-details/", "order_details", netachange.UpdateNetaChangesHandler(store))

	getConfiguration := GetConfigurationHandler(store)
	updateConfiguration := UpdateConfigurationHandler(store)
	handle("/api/configuration/", "configuration", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getConfiguration(w, r)
		case http.MethodPut:
			updateConfiguration(w, r)
		default:
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})
	handle("/api/config", "app_config", GetAppConfigHandler())
	handle("/api/seed/reload", "seed_reload", loader.ReloadSeedHandler(store, seedDir))

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		apierror.WriteJSON(w, map[string]string{"status": "ok"})
	})
}
