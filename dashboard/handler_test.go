package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sushiorders/database"
	"sushiorders/model"
)

func seededStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	s, err := database.OpenSQLite(":memory:", 2)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.PutConfig(ctx, model.Configuration{
		ConfigYear:   "2025",
		Products:     testProducts,
		SpecialMenus: testMenus,
	}))
	require.NoError(t, s.PutParent(ctx, model.ParentOrder{
		ReceptionNumber: "R1",
		CustomerInfo:    model.CustomerInfo{ContactName: "山田", Tel: "03-0000-0000"},
		Receipts:        []model.Receipt{{DocumentType: "請求書", RecipientName: "山田商店"}},
	}))
	for _, d := range []model.OrderDetail{
		{ReceptionNumber: "R1", OrderID: "30A1", AssignedRoute: "北1", Sequence: seq(2),
			OrderItems: []model.OrderItem{{ProductKey: "P1", Quantity: 2}}},
		{ReceptionNumber: "R2", OrderID: "30A2", AssignedRoute: "北１", Sequence: seq(1),
			OrderItems: []model.OrderItem{{ProductKey: "P2", Quantity: 1}}},
		{ReceptionNumber: "R3", OrderID: "30B1", AssignedRoute: "南1"},
		{ReceptionNumber: "R4", OrderID: "31A1", AssignedRoute: "北1"},
	} {
		require.NoError(t, s.PutOrderDetail(ctx, "2025", d))
	}
	return s
}

func TestDashboardHandlerRequiresDateAndYear(t *testing.T) {
	h := GetDashboardHandler(seededStore(t))

	for _, target := range []string{"/api/dashboard", "/api/dashboard?date=2025-12-30", "/api/dashboard?year=2025"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.JSONEq(t, `{"message":"Date and Year parameters are required."}`, rec.Body.String(), target)
	}
}

func TestDashboardHandlerMissingConfig(t *testing.T) {
	h := GetDashboardHandler(seededStore(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?date=2026-12-30&year=2026", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Config for 2026 not found."}`, rec.Body.String())
}

func TestDashboardHandlerFiltersAndComposes(t *testing.T) {
	h := GetDashboardHandler(seededStore(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?date=2025-12-30&year=2025&route=%E5%8C%971", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, "30A2", resp.Orders[0].OrderID)
	assert.Empty(t, resp.Orders[0].ContactName)
	assert.Equal(t, "30A1", resp.Orders[1].OrderID)
	assert.Equal(t, "山田", resp.Orders[1].ContactName)
	assert.Equal(t, "請求書", resp.Orders[1].ReceiptType)
	assert.Equal(t, "極", resp.Masters.Products["P1"].Name)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?date=2025-12-30&year=2025", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Orders, 3)
}

func TestExportDashboardWritesSheetPerRoute(t *testing.T) {
	h := ExportDashboardHandler(seededStore(t))

	body, err := json.Marshal(ExportRequest{Date: "2025-12-30", Year: "2025", Routes: []string{"北1", "北１", "南1"}})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/export", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"北1", "南1"}, f.GetSheetList())

	rows, err := f.GetRows("北1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "順番", rows[0][0])
	assert.Equal(t, "30A2", rows[1][1])
	assert.Equal(t, "泉×1", rows[1][10])
	assert.Equal(t, "山田", rows[2][6])
}

func TestExportDashboardRequiresDateAndYear(t *testing.T) {
	h := ExportDashboardHandler(seededStore(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/export", bytes.NewReader([]byte(`{"date":"2025-12-30"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/export", bytes.NewReader([]byte(`not json`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportDashboardSheetNamesIgnoreCase(t *testing.T) {
	h := ExportDashboardHandler(seededStore(t))

	body, err := json.Marshal(ExportRequest{Date: "2025-12-30", Year: "2025", Routes: []string{"east1", "EAST1", "南1"}})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/export", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"east1", "南1"}, f.GetSheetList())
}

func TestDashboardHandlersRejectOtherMethods(t *testing.T) {
	s := seededStore(t)

	rec := httptest.NewRecorder()
	GetDashboardHandler(s).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard?date=2025-12-30&year=2025", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"message":"Method Not Allowed"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	ExportDashboardHandler(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/export", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
