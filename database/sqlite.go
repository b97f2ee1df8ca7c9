package database

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"sushiorders/metrics"
	"sushiorders/model"
)

//go:embed schema.sql
var schemaSQL string

// parents の IN 句1回あたりの件数
const batchGetChunk = 500

// SQLiteStore は各テーブルを JSON ドキュメントとして SQLite に保存する Store 実装です。
// スキャンの継続トークンは最後に返した rowid です。
type SQLiteStore struct {
	db       *sqlx.DB
	pageSize int
}

// OpenSQLite はファイル (または ":memory:") を開いてスキーマを適用します。
func OpenSQLite(path string, pageSize int) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if path == ":memory:" {
		// 接続ごとに別DBになるため1本に固定
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLiteStore(db, pageSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLiteStore(db *sqlx.DB, pageSize int) (*SQLiteStore, error) {
	if pageSize <= 0 {
		pageSize = 200
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &SQLiteStore{db: db, pageSize: pageSize}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetConfig(ctx context.Context, year string) (*model.Configuration, error) {
	var doc string
	err := s.db.GetContext(ctx, &doc, `SELECT doc FROM configurations WHERE config_year = ?`, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get config %s: %w", year, err)
	}
	var cfg model.Configuration
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", year, err)
	}
	return &cfg, nil
}

type scanRow struct {
	RowID int64  `db:"rid"`
	Doc   string `db:"doc"`
}

func (s *SQLiteStore) ScanOrderDetails(ctx context.Context, year string, filter ScanFilter, token string) ([]model.OrderDetail, string, error) {
	table, err := OrderDetailsTable(year)
	if err != nil {
		return nil, "", err
	}
	var after int64
	if token != "" {
		after, err = strconv.ParseInt(token, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("invalid continuation token %q: %w", token, err)
		}
	}

	q := `SELECT rowid AS rid, doc FROM order_details
		WHERE table_name = ? AND rowid > ? AND order_id LIKE ? ESCAPE '\'`
	args := []interface{}{table, after, escapeLike(filter.DayPrefix) + "%"}
	if len(filter.Routes) > 0 {
		q += ` AND assigned_route IN (?)`
		args = append(args, filter.Routes)
	}
	q += ` ORDER BY rowid LIMIT ?`
	args = append(args, s.pageSize)

	q, args, err = sqlx.In(q, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create IN query for order details: %w", err)
	}

	var rows []scanRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, "", fmt.Errorf("failed to scan %s: %w", table, err)
	}
	metrics.IncScanPage("sqlite")

	page := make([]model.OrderDetail, 0, len(rows))
	for _, r := range rows {
		var d model.OrderDetail
		if err := json.Unmarshal([]byte(r.Doc), &d); err != nil {
			return nil, "", fmt.Errorf("failed to decode order detail (rowid %d): %w", r.RowID, err)
		}
		page = append(page, d)
	}

	next := ""
	if len(rows) == s.pageSize {
		next = strconv.FormatInt(rows[len(rows)-1].RowID, 10)
	}
	return page, next, nil
}

func (s *SQLiteStore) BatchGetParents(ctx context.Context, receptionNumbers []string) (map[string]model.ParentOrder, error) {
	result := make(map[string]model.ParentOrder)
	for start := 0; start < len(receptionNumbers); start += batchGetChunk {
		end := start + batchGetChunk
		if end > len(receptionNumbers) {
			end = len(receptionNumbers)
		}
		q, args, err := sqlx.In(`SELECT doc FROM orders WHERE reception_number IN (?)`, receptionNumbers[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to create IN query for orders: %w", err)
		}
		var docs []string
		if err := s.db.SelectContext(ctx, &docs, s.db.Rebind(q), args...); err != nil {
			return nil, fmt.Errorf("failed to get parent orders: %w", err)
		}
		for _, doc := range docs {
			var p model.ParentOrder
			if err := json.Unmarshal([]byte(doc), &p); err != nil {
				return nil, fmt.Errorf("failed to decode parent order: %w", err)
			}
			result[p.ReceptionNumber] = p
		}
	}
	return result, nil
}

func (s *SQLiteStore) GetParent(ctx context.Context, receptionNumber string) (*model.ParentOrder, error) {
	var doc string
	err := s.db.GetContext(ctx, &doc, `SELECT doc FROM orders WHERE reception_number = ?`, receptionNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", receptionNumber, err)
	}
	var p model.ParentOrder
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", receptionNumber, err)
	}
	return &p, nil
}

func (s *SQLiteStore) QueryOrderDetails(ctx context.Context, year, receptionNumber string) ([]model.OrderDetail, error) {
	table, err := OrderDetailsTable(year)
	if err != nil {
		return nil, err
	}
	var docs []string
	err = s.db.SelectContext(ctx, &docs, `
		SELECT doc FROM order_details
		WHERE table_name = ? AND reception_number = ?
		ORDER BY order_id`, table, receptionNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s for %s: %w", table, receptionNumber, err)
	}
	details := make([]model.OrderDetail, 0, len(docs))
	for _, doc := range docs {
		var d model.OrderDetail
		if err := json.Unmarshal([]byte(doc), &d); err != nil {
			return nil, fmt.Errorf("failed to decode order detail of %s: %w", receptionNumber, err)
		}
		details = append(details, d)
	}
	return details, nil
}

func (s *SQLiteStore) ListNetaMaster(ctx context.Context) ([]model.NetaMaster, error) {
	var docs []string
	if err := s.db.SelectContext(ctx, &docs, `SELECT doc FROM neta_master ORDER BY display_order, neta_name`); err != nil {
		return nil, fmt.Errorf("failed to list neta master: %w", err)
	}
	list := make([]model.NetaMaster, 0, len(docs))
	for _, doc := range docs {
		var n model.NetaMaster
		if err := json.Unmarshal([]byte(doc), &n); err != nil {
			return nil, fmt.Errorf("failed to decode neta: %w", err)
		}
		list = append(list, n)
	}
	return list, nil
}

func (s *SQLiteStore) UpdateAssignedRoute(ctx context.Context, year, receptionNumber, orderID, route string) error {
	table, err := OrderDetailsTable(year)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE order_details SET assigned_route = ?, doc = json_set(doc, '$.assignedRoute', ?)
		WHERE table_name = ? AND reception_number = ? AND order_id = ?`,
		route, route, table, receptionNumber, orderID)
	if err != nil {
		return fmt.Errorf("failed to update assigned route for %s/%s: %w", receptionNumber, orderID, err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) UpdateNetaChanges(ctx context.Context, year, receptionNumber, orderID string, changes map[string][]model.ChangePattern) error {
	table, err := OrderDetailsTable(year)
	if err != nil {
		return err
	}
	if changes == nil {
		changes = map[string][]model.ChangePattern{}
	}
	b, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("failed to encode neta changes: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE order_details SET doc = json_set(doc, '$.netaChanges', json(?))
		WHERE table_name = ? AND reception_number = ? AND order_id = ?`,
		string(b), table, receptionNumber, orderID)
	if err != nil {
		return fmt.Errorf("failed to update neta changes for %s/%s: %w", receptionNumber, orderID, err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) PutConfig(ctx context.Context, cfg model.Configuration) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO configurations (config_year, doc) VALUES (?, ?)
		ON CONFLICT(config_year) DO UPDATE SET doc = excluded.doc`, cfg.ConfigYear, string(b))
	if err != nil {
		return fmt.Errorf("failed to put config %s: %w", cfg.ConfigYear, err)
	}
	return nil
}

func (s *SQLiteStore) PutParent(ctx context.Context, parent model.ParentOrder) error {
	b, err := json.Marshal(parent)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (reception_number, doc) VALUES (?, ?)
		ON CONFLICT(reception_number) DO UPDATE SET doc = excluded.doc`, parent.ReceptionNumber, string(b))
	if err != nil {
		return fmt.Errorf("failed to put order %s: %w", parent.ReceptionNumber, err)
	}
	return nil
}

// PutOrderDetail は rowid を維持するため REPLACE ではなく UPSERT で書き込みます。
func (s *SQLiteStore) PutOrderDetail(ctx context.Context, year string, detail model.OrderDetail) error {
	table, err := OrderDetailsTable(year)
	if err != nil {
		return err
	}
	b, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO order_details (table_name, reception_number, order_id, assigned_route, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(table_name, reception_number, order_id) DO UPDATE SET
			assigned_route = excluded.assigned_route,
			doc = excluded.doc`,
		table, detail.ReceptionNumber, detail.OrderID, detail.AssignedRoute, string(b))
	if err != nil {
		return fmt.Errorf("failed to put order detail %s/%s: %w", detail.ReceptionNumber, detail.OrderID, err)
	}
	return nil
}

func (s *SQLiteStore) PutNeta(ctx context.Context, neta model.NetaMaster) error {
	b, err := json.Marshal(neta)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO neta_master (neta_name, display_order, doc) VALUES (?, ?, ?)
		ON CONFLICT(neta_name) DO UPDATE SET display_order = excluded.display_order, doc = excluded.doc`,
		neta.NetaName, neta.DisplayOrder, string(b))
	if err != nil {
		return fmt.Errorf("failed to put neta %s: %w", neta.NetaName, err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
