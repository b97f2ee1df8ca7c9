package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"sushiorders/apierror"
	"sushiorders/database"
	"sushiorders/logging"
	"sushiorders/model"
)

// WriteCSV は集計結果を Shift-JIS の CSV として書き出します。
// 商品8区分、ネタ変集計、サイドメニュー集計の3ブロックを空行で区切ります。
func WriteCSV(w io.Writer, resp *Response) error {
	sjis := transform.NewWriter(w, encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()))
	cw := csv.NewWriter(sjis)
	cw.UseCRLF = true

	header := []string{"商品キー", "商品名"}
	for _, cat := range AllCategories {
		header = append(header, cat.Label())
	}
	header = append(header, "合計")
	if err := cw.Write(header); err != nil {
		return err
	}

	keys := make([]string, 0, len(resp.ProductSummary))
	for k := range resp.ProductSummary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c := resp.ProductSummary[k]
		row := []string{k, model.ProductName(resp.Masters.Products, k)}
		for _, cat := range AllCategories {
			row = append(row, strconv.Itoa(c[cat]))
		}
		row = append(row, strconv.Itoa(c.Total()))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	// ネタはマスタの表示順
	if err := cw.Write([]string{}); err != nil {
		return err
	}
	if err := cw.Write([]string{"ネタ", "数量"}); err != nil {
		return err
	}
	for _, n := range resp.Masters.NetaMaster {
		if err := cw.Write([]string{n.NetaName, strconv.Itoa(resp.NetaSummary[n.NetaName])}); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{}); err != nil {
		return err
	}
	if err := cw.Write([]string{"サイドメニュー", "数量"}); err != nil {
		return err
	}
	names := make([]string, 0, len(resp.OtherOrdersSummary))
	for n := range resp.OtherOrdersSummary {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := cw.Write([]string{n, strconv.Itoa(resp.OtherOrdersSummary[n])}); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return sjis.Close()
}

// ExportDailySummaryCSVHandler は GET /api/daily-summary/export を処理します。
func ExportDailySummaryCSVHandler(store database.Store) http.HandlerFunc {
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
			apierror.WriteError(w, err)
			return
		}

		filename := fmt.Sprintf("集計_%s_%s.csv", p.Date, p.Route)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Content-Type", "text/csv; charset=Shift_JIS")
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
		if err := WriteCSV(w, resp); err != nil {
			logging.FromContext(r.Context()).Errorf("failed to write summary csv: %v", err)
		}
	}
}
