package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sushiorders/model"
)

var ErrNotFound = errors.New("record not found")

const (
	ConfigTable     = "Configurations"
	OrdersTable     = "Orders"
	NetaMasterTable = "NetaMaster"

	orderDetailsTablePrefix = "OrderDetails-"
)

// 年度ごとの OrderDetails テーブルは A, B, C を3年周期で使い回します (2022 = A)。
var tableSuffixes = []string{"A", "B", "C"}

const suffixBaseYear = 2022

// TableSuffix は年度から OrderDetails テーブルのサフィックスを決定します。
func TableSuffix(year string) (string, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return "", fmt.Errorf("invalid year %q: %w", year, err)
	}
	n := len(tableSuffixes)
	idx := ((y-suffixBaseYear)%n + n) % n
	return tableSuffixes[idx], nil
}

// OrderDetailsTable は年度に対応する OrderDetails テーブル名を返します。
func OrderDetailsTable(year string) (string, error) {
	suffix, err := TableSuffix(year)
	if err != nil {
		return "", err
	}
	return orderDetailsTablePrefix + suffix, nil
}

// ScanFilter は OrderDetails のスキャン条件です。
// DayPrefix は orderId の前方一致、Routes が空でなければ assignedRoute の IN 条件になります。
type ScanFilter struct {
	DayPrefix string
	Routes    []string
}

// Store はハンドラが利用する永続化層です。SQLite と DynamoDB の実装があります。
type Store interface {
	GetConfig(ctx context.Context, year string) (*model.Configuration, error)
	// ScanOrderDetails は1ページ分を返します。next が空になるまで呼び出す必要があります。
	ScanOrderDetails(ctx context.Context, year string, filter ScanFilter, token string) (page []model.OrderDetail, next string, err error)
	BatchGetParents(ctx context.Context, receptionNumbers []string) (map[string]model.ParentOrder, error)
	GetParent(ctx context.Context, receptionNumber string) (*model.ParentOrder, error)
	// QueryOrderDetails は受付番号に属する明細を orderId 順に全件返します。
	QueryOrderDetails(ctx context.Context, year, receptionNumber string) ([]model.OrderDetail, error)
	ListNetaMaster(ctx context.Context) ([]model.NetaMaster, error)
	UpdateAssignedRoute(ctx context.Context, year, receptionNumber, orderID, route string) error
	UpdateNetaChanges(ctx context.Context, year, receptionNumber, orderID string, changes map[string][]model.ChangePattern) error

	PutConfig(ctx context.Context, cfg model.Configuration) error
	PutParent(ctx context.Context, parent model.ParentOrder) error
	PutOrderDetail(ctx context.Context, year string, detail model.OrderDetail) error
	PutNeta(ctx context.Context, neta model.NetaMaster) error
}

// CollectOrderDetails は継続トークンが尽きるまで全ページを読み込みます。
// 途中のページで集計すると件数が不足するため、必ず全件を返します。
func CollectOrderDetails(ctx context.Context, s Store, year string, filter ScanFilter) ([]model.OrderDetail, error) {
	all := []model.OrderDetail{}
	token := ""
	for {
		page, next, err := s.ScanOrderDetails(ctx, year, filter, token)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order details: %w", err)
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		token = next
	}
}

// ReceptionNumbers は明細から重複なしの受付番号一覧を取り出します。
func ReceptionNumbers(details []model.OrderDetail) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range details {
		if d.ReceptionNumber == "" || seen[d.ReceptionNumber] {
			continue
		}
		seen[d.ReceptionNumber] = true
		out = append(out, d.ReceptionNumber)
	}
	return out
}
