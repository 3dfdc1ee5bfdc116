package excel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

const (
	defaultMaxBytes = 64 << 20
	// Workbook parts above xmlPartLimit are spooled to temp files by excelize.
	xmlPartLimit = 16 << 20
	// unzipRatio caps the inflated size of all workbook parts relative to the
	// workbook file itself.
	unzipRatio = 16
)

var defaultSKUHeaders = []string{"sku", "sku_code", "skucode", "product_sku", "item_sku", "货号", "商品编码"}

// Inspector reads the SKU column of a product import workbook.
type Inspector struct {
	skuHeaders map[string]struct{}
	maxRows    int
	maxBytes   int64
}

// NewInspector builds an inspector. maxBytes limits the workbook file read
// from the archive; the parts inside it may inflate to unzipRatio times that.
func NewInspector(skuHeaders []string, maxRows int, maxBytes int64) *Inspector {
	if len(skuHeaders) == 0 {
		skuHeaders = defaultSKUHeaders
	}
	if maxRows <= 0 {
		maxRows = 100000
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	headers := make(map[string]struct{}, len(skuHeaders))
	for _, h := range skuHeaders {
		if key := normalizeHeader(h); key != "" {
			headers[key] = struct{}{}
		}
	}
	return &Inspector{skuHeaders: headers, maxRows: maxRows, maxBytes: maxBytes}
}

func (i *Inspector) Inspect(ctx context.Context, fileName string, body io.Reader) (domain.SpreadsheetSummary, error) {
	summary := domain.SpreadsheetSummary{
		FileName: fileName,
		Skus:     []string{},
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
	case ".xls":
		summary.Note = fmt.Sprintf("%s uses the legacy .xls format; SKU rows were not checked", fileName)
		return summary, nil
	default:
		return summary, fmt.Errorf("unsupported spreadsheet type: %s", fileName)
	}

	raw, err := io.ReadAll(io.LimitReader(body, i.maxBytes+1))
	if err != nil {
		return summary, fmt.Errorf("read workbook: %w", err)
	}
	if int64(len(raw)) > i.maxBytes {
		return summary, domain.WrapError(
			domain.ErrArchiveTooLarge,
			"inspect spreadsheet",
			fmt.Errorf("%s exceeds %d bytes", fileName, i.maxBytes),
		)
	}

	book, err := excelize.OpenReader(bytes.NewReader(raw), i.openOptions())
	if err != nil {
		return summary, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = book.Close()
	}()

	sheet := book.GetSheetName(book.GetActiveSheetIndex())
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			summary.Note = fmt.Sprintf("%s has no worksheets", fileName)
			return summary, nil
		}
		sheet = sheets[0]
	}
	summary.SheetName = sheet

	rows, err := book.GetRows(sheet)
	if err != nil {
		return summary, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	headerRow, skuCol := i.findHeader(rows)
	if skuCol < 0 {
		summary.Note = fmt.Sprintf("%s: no SKU column found in sheet %s", fileName, sheet)
		summary.RowCount = countNonEmpty(rows)
		return summary, nil
	}
	summary.SkuColumn = strings.TrimSpace(rows[headerRow][skuCol])
	summary.Supported = true

	for n, row := range rows[headerRow+1:] {
		if n%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
		}
		if isEmptyRow(row) {
			continue
		}
		if summary.RowCount >= i.maxRows {
			summary.Note = fmt.Sprintf("%s: stopped after %d rows", fileName, i.maxRows)
			break
		}
		summary.RowCount++
		if skuCol < len(row) {
			if sku := strings.TrimSpace(row[skuCol]); sku != "" {
				summary.Skus = append(summary.Skus, sku)
			}
		}
	}
	return summary, nil
}

func (i *Inspector) openOptions() excelize.Options {
	unzipLimit := i.maxBytes * unzipRatio
	xmlLimit := int64(xmlPartLimit)
	if xmlLimit > unzipLimit {
		xmlLimit = unzipLimit
	}
	return excelize.Options{UnzipSizeLimit: unzipLimit, UnzipXMLSizeLimit: xmlLimit}
}

// findHeader returns the first non-empty row and the index of its SKU column.
func (i *Inspector) findHeader(rows [][]string) (int, int) {
	for r, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		for c, cell := range row {
			if _, ok := i.skuHeaders[normalizeHeader(cell)]; ok {
				return r, c
			}
		}
		return r, -1
	}
	return -1, -1
}

func normalizeHeader(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.NewReplacer(" ", "_", "-", "_").Replace(value)
	return value
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func countNonEmpty(rows [][]string) int {
	n := 0
	for _, row := range rows {
		if !isEmptyRow(row) {
			n++
		}
	}
	return n
}
