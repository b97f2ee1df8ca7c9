package loader

import (
	"net/http"

	"sushiorders/apierror"
	"sushiorders/database"
	"sushiorders/logging"
)

// ReloadSeedHandler は seed ディレクトリの再読み込みをトリガーします。
func ReloadSeedHandler(store database.Store, dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		logging.FromContext(r.Context()).Info("reloading seed data")

		res, err := InitData(r.Context(), store, dir)
		if err != nil {
			logging.FromContext(r.Context()).Errorf("seed reload failed: %v", err)
			apierror.WriteError(w, err)
			return
		}
		apierror.WriteJSON(w, res)
	}
}
