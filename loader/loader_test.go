package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"sushiorders/database"
)

func writeSeed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, configDirName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, configDirName, "2025.json"),
		[]byte(`{"products":{"P1":{"name":"極","price":3500}},"deliveryWariate":[{"name":"北","responsibleRoutes":["北1"]}]}`), 0o644))

	csvText := "ネタ名,カテゴリ,表示順\r\nサーモン,魚,2\r\nマグロ,魚,1\r\n壊れ,魚,x\r\n,空,3\r\n"
	sjis, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), csvText)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, netaFileName), []byte(sjis), 0o644))
	return dir
}

func TestInitData(t *testing.T) {
	ctx := context.Background()
	s, err := database.OpenSQLite(":memory:", 10)
	require.NoError(t, err)
	defer s.Close()

	res, err := InitData(ctx, s, writeSeed(t))
	require.NoError(t, err)
	assert.Equal(t, Result{Configurations: 1, Neta: 2}, res)

	cfg, err := s.GetConfig(ctx, "2025")
	require.NoError(t, err)
	assert.Equal(t, "極", cfg.Products["P1"].Name)

	neta, err := s.ListNetaMaster(ctx)
	require.NoError(t, err)
	require.Len(t, neta, 2)
	assert.Equal(t, "マグロ", neta[0].NetaName)
	assert.Equal(t, "魚", neta[0].Category)
}

func TestInitDataMissingFiles(t *testing.T) {
	s, err := database.OpenSQLite(":memory:", 10)
	require.NoError(t, err)
	defer s.Close()

	res, err := InitData(context.Background(), s, t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, res)
}

func TestReloadSeedHandler(t *testing.T) {
	s, err := database.OpenSQLite(":memory:", 10)
	require.NoError(t, err)
	defer s.Close()
	h := ReloadSeedHandler(s, writeSeed(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/seed/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"configurations":1,"neta":2}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/seed/reload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
