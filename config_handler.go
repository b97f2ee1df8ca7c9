package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"sushiorders/apierror"
	"sushiorders/config"
	"sushiorders/database"
	"sushiorders/logging"
	"sushiorders/model"
)

const configurationPrefix = "/api/configuration/"

// GetConfigurationHandler は年度設定 (商品・特別メニュー・割り当て) を返します。
func GetConfigurationHandler(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		year, err := configurationYear(r)
		if err != nil {
			apierror.WriteError(w, err)
			return
		}

		cfg, err := store.GetConfig(r.Context(), year)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				apierror.WriteError(w, apierror.NotFound("Config for %s not found.", year))
				return
			}
			logging.FromContext(r.Context()).Errorf("get configuration failed: %v", err)
			apierror.WriteError(w, err)
			return
		}
		apierror.WriteJSON(w, cfg)
	}
}

// UpdateConfigurationHandler は PUT /api/configuration/{year} を処理します。
// 本文で年度設定を丸ごと置き換え、configYear はパスの年度で上書きします。
func UpdateConfigurationHandler(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			apierror.WriteJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		year, err := configurationYear(r)
		if err != nil {
			apierror.WriteError(w, err)
			return
		}

		var cfg model.Configuration
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			apierror.WriteError(w, apierror.Validation("Invalid request body: %v", err))
			return
		}
		cfg.ConfigYear = year

		if err := store.PutConfig(r.Context(), cfg); err != nil {
			logging.FromContext(r.Context()).Errorf("update configuration failed: %v", err)
			apierror.WriteJSONError(w, "Failed to update configuration.", http.StatusInternalServerError)
			return
		}
		logging.FromContext(r.Context()).Infof("configuration %s updated", year)
		apierror.WriteJSON(w, map[string]string{"message": "Configuration updated successfully."})
	}
}

func configurationYear(r *http.Request) (string, error) {
	year := strings.Trim(strings.TrimPrefix(r.URL.Path, configurationPrefix), "/")
	err := apierror.ValidateStruct(struct {
		Year string `validate:"required,numeric,len=4"`
	}{year}, "Year parameter is required.")
	return year, err
}

// GetAppConfigHandler は現在のサーバー設定を返します。
func GetAppConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apierror.WriteJSON(w, config.GetConfig())
	}
}
