package loader

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"sushiorders/database"
	"sushiorders/model"
)

const (
	configDirName = "configurations"
	netaFileName  = "NETA.CSV"
	netaColumns   = 3
)

// Result は読み込み件数です。
type Result struct {
	Configurations int `json:"configurations"`
	Neta           int `json:"neta"`
}

// InitData は seed ディレクトリの年度設定 (JSON) とネタマスタ (Shift-JIS CSV) をストアに投入します。
// ファイルが無い場合はスキップします。
func InitData(ctx context.Context, store database.Store, dir string) (Result, error) {
	var res Result
	log := logrus.WithField("seed_dir", dir)

	n, err := LoadConfigurations(ctx, store, filepath.Join(dir, configDirName))
	if err != nil {
		return res, err
	}
	res.Configurations = n

	netaPath := filepath.Join(dir, netaFileName)
	if _, err := os.Stat(netaPath); errors.Is(err, fs.ErrNotExist) {
		log.Warnf("%s not found, skipping.", netaPath)
	} else {
		n, err := LoadNetaCSV(ctx, store, netaPath)
		if err != nil {
			return res, fmt.Errorf("failed to load %s: %w", netaPath, err)
		}
		res.Neta = n
	}

	log.WithFields(logrus.Fields{
		"configurations": res.Configurations,
		"neta":           res.Neta,
	}).Info("seed data loaded")
	return res, nil
}

// LoadConfigurations は dir 直下の *.json を年度設定として登録します。
// configYear が空のファイルはファイル名 (例: 2025.json) を年度とします。
func LoadConfigurations(ctx context.Context, store database.Store, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			return count, fmt.Errorf("could not read %s: %w", path, err)
		}
		var cfg model.Configuration
		if err := json.Unmarshal(b, &cfg); err != nil {
			return count, fmt.Errorf("invalid configuration %s: %w", path, err)
		}
		if cfg.ConfigYear == "" {
			cfg.ConfigYear = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if err := store.PutConfig(ctx, cfg); err != nil {
			return count, fmt.Errorf("failed to store configuration %s: %w", cfg.ConfigYear, err)
		}
		count++
	}
	return count, nil
}

// LoadNetaCSV は Shift-JIS のネタマスタCSV (ネタ名,カテゴリ,表示順 / ヘッダーあり) を登録します。
func LoadNetaCSV(ctx context.Context, store database.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("could not open file %s: %w", path, err)
	}
	defer f.Close()
	return ReadNeta(ctx, store, f)
}

// ReadNeta は r から Shift-JIS のネタマスタCSVを読み込みます。壊れた行はスキップします。
func ReadNeta(ctx context.Context, store database.Store, r io.Reader) (int, error) {
	cr := csv.NewReader(transform.NewReader(r, japanese.ShiftJIS.NewDecoder()))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to skip header: %w", err)
	}

	count := 0
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logrus.Warnf("error reading neta row %d (skipping): %v", line, err)
			continue
		}
		if len(row) < netaColumns || strings.TrimSpace(row[0]) == "" {
			continue
		}
		order, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			logrus.Warnf("invalid display order on neta row %d (skipping): %q", line, row[2])
			continue
		}
		neta := model.NetaMaster{
			NetaName:     strings.TrimSpace(row[0]),
			Category:     strings.TrimSpace(row[1]),
			DisplayOrder: order,
		}
		if err := store.PutNeta(ctx, neta); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
