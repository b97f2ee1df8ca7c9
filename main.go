package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"sushiorders/config"
	"sushiorders/database"
	"sushiorders/loader"
	"sushiorders/logging"
	"sushiorders/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("config load error: %v", err)
	}
	logging.Init(cfg)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logrus.Fatalf("metrics register error: %v", err)
	}

	ctx := context.Background()
	logrus.WithField("driver", cfg.StoreDriver).Info("Connecting to store...")
	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("store open error: %v", err)
	}
	defer closer.Close()
	logrus.Info("Store connection successful.")

	if cfg.StoreDriver == config.DriverSQLite {
		if _, err := loader.InitData(ctx, store, cfg.SeedDir); err != nil {
			logrus.Warnf("Failed to load seed data: %v", err)
		}
	}

	mux := http.NewServeMux()
	SetupRoutes(mux, store, cfg.SeedDir)

	logrus.Infof("Starting server on %s", cfg.Address)
	if err := http.ListenAndServe(cfg.Address, mux); err != nil {
		logrus.Fatalf("server start error: %v", err)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore は STORE_DRIVER に応じてストアを開きます。
func openStore(ctx context.Context, cfg config.Config) (database.Store, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := database.OpenSQLite(cfg.SQLitePath, cfg.ScanPageSize)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverDynamoDB:
		s, err := database.NewDynamoStore(ctx, database.DynamoConfig{
			Region:   cfg.AWSRegion,
			Endpoint: cfg.DynamoDBEndpoint,
			PageSize: cfg.ScanPageSize,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
