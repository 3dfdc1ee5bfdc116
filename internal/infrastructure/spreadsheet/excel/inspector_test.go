package excel

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

func buildWorkbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	book := excelize.NewFile()
	defer func() {
		_ = book.Close()
	}()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName() error = %v", err)
		}
		values := row
		if err := book.SetSheetRow("Sheet1", cell, &values); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf
}

func TestInspectFindsSKUColumn(t *testing.T) {
	buf := buildWorkbook(t,
		[]any{"Name", "Product SKU", "Price"},
		[]any{"Shirt", "SKU001", 10},
		[]any{},
		[]any{"Hat", " SKU002 ", 5},
		[]any{"No sku", "", 1},
	)

	summary, err := NewInspector(nil, 0, 0).Inspect(context.Background(), "product_import.xlsx", buf)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if !summary.Supported {
		t.Fatalf("expected supported summary, got %+v", summary)
	}
	if summary.SheetName != "Sheet1" || summary.SkuColumn != "Product SKU" {
		t.Fatalf("unexpected sheet/column: %+v", summary)
	}
	if summary.RowCount != 3 {
		t.Fatalf("expected 3 data rows, got %d", summary.RowCount)
	}
	if strings.Join(summary.Skus, ",") != "SKU001,SKU002" {
		t.Fatalf("unexpected skus: %v", summary.Skus)
	}
}

func TestInspectWithoutSKUColumn(t *testing.T) {
	buf := buildWorkbook(t, []any{"Name", "Price"}, []any{"Shirt", 10})

	summary, err := NewInspector(nil, 0, 0).Inspect(context.Background(), "catalog.xlsx", buf)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if summary.Supported {
		t.Fatalf("expected unsupported summary without SKU column")
	}
	if !strings.Contains(summary.Note, "no SKU column") {
		t.Fatalf("unexpected note %q", summary.Note)
	}
	if summary.RowCount != 2 {
		t.Fatalf("expected 2 non-empty rows, got %d", summary.RowCount)
	}
}

func TestInspectLegacyXLS(t *testing.T) {
	summary, err := NewInspector(nil, 0, 0).Inspect(context.Background(), "old.XLS", strings.NewReader("ole2"))
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if summary.Supported || summary.Note == "" {
		t.Fatalf("expected note for legacy format, got %+v", summary)
	}
}

func TestInspectRejectsCorruptWorkbook(t *testing.T) {
	_, err := NewInspector(nil, 0, 0).Inspect(context.Background(), "broken.xlsx", strings.NewReader("not a workbook"))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestInspectRowLimit(t *testing.T) {
	buf := buildWorkbook(t, []any{"sku"}, []any{"A"}, []any{"B"}, []any{"C"})

	summary, err := NewInspector([]string{"SKU"}, 2, 0).Inspect(context.Background(), "p.xlsx", buf)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if summary.RowCount != 2 || len(summary.Skus) != 2 {
		t.Fatalf("expected 2 rows, got %+v", summary)
	}
	if !strings.Contains(summary.Note, "stopped after 2 rows") {
		t.Fatalf("unexpected note %q", summary.Note)
	}
}

func TestInspectRejectsWorkbookOverByteLimit(t *testing.T) {
	body := bytes.NewReader(make([]byte, 4096))

	_, err := NewInspector(nil, 0, 1024).Inspect(context.Background(), "big.xlsx", body)
	if !domain.IsKind(err, domain.ErrArchiveTooLarge) {
		t.Fatalf("expected ErrArchiveTooLarge, got %v", err)
	}
}

func TestInspectRejectsHighlyCompressedWorkbookParts(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("xl/worksheets/sheet1.xml")
	if err != nil {
		t.Fatalf("zip Create() error = %v", err)
	}
	if _, err := w.Write(make([]byte, 4<<20)); err != nil {
		t.Fatalf("zip Write() error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}
	if buf.Len() >= 64<<10 {
		t.Fatalf("expected a small compressed workbook, got %d bytes", buf.Len())
	}

	_, err = NewInspector(nil, 0, 64<<10).Inspect(context.Background(), "bomb.xlsx", &buf)
	if err == nil || !strings.Contains(err.Error(), "unzip size exceeds") {
		t.Fatalf("expected unzip size limit error, got %v", err)
	}
}
