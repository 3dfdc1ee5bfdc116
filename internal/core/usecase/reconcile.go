package usecase

import (
	"strings"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

// Reconcile compares spreadsheet SKUs with discovered SKU folders. Matching
// ignores case and surrounding spaces; both outputs keep first-seen order.
func Reconcile(sheetSKUs, folderSKUs []string) domain.Reconciliation {
	out := domain.Reconciliation{
		SkusWithoutFolder: []string{},
		FoldersWithoutRow: []string{},
	}

	folders := make(map[string]struct{}, len(folderSKUs))
	for _, sku := range folderSKUs {
		folders[skuKey(sku)] = struct{}{}
	}
	rows := make(map[string]struct{}, len(sheetSKUs))
	for _, sku := range sheetSKUs {
		key := skuKey(sku)
		if key == "" {
			continue
		}
		if _, dup := rows[key]; dup {
			continue
		}
		rows[key] = struct{}{}
		if _, ok := folders[key]; !ok {
			out.SkusWithoutFolder = append(out.SkusWithoutFolder, strings.TrimSpace(sku))
		}
	}
	for _, sku := range folderSKUs {
		if _, ok := rows[skuKey(sku)]; !ok {
			out.FoldersWithoutRow = append(out.FoldersWithoutRow, sku)
		}
	}
	return out
}

func skuKey(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}
