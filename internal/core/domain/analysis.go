package domain

import "time"

type AnalysisStatus string

const (
	StatusUploaded   AnalysisStatus = "uploaded"
	StatusProcessing AnalysisStatus = "processing"
	StatusReady      AnalysisStatus = "ready"
	StatusFailed     AnalysisStatus = "failed"
)

// Provenance tells the caller which path produced a classification.
type Provenance string

const (
	ProvenanceRemote Provenance = "remote"
	ProvenanceLocal  Provenance = "local"
	ProvenanceCache  Provenance = "cache"
)

type SpreadsheetSummary struct {
	FileName  string   `json:"file_name"`
	Path      string   `json:"path"`
	Supported bool     `json:"supported"`
	SheetName string   `json:"sheet_name,omitempty"`
	RowCount  int      `json:"row_count"`
	SkuColumn string   `json:"sku_column,omitempty"`
	Skus      []string `json:"skus"`
	Note      string   `json:"note,omitempty"`
}

// Reconciliation cross-checks spreadsheet rows against SKU image folders.
type Reconciliation struct {
	SkusWithoutFolder []string `json:"skus_without_folder"`
	FoldersWithoutRow []string `json:"folders_without_row"`
}

type AnalysisReport struct {
	ArchiveName    string               `json:"archive_name"`
	ArchiveSHA256  string               `json:"archive_sha256"`
	Provenance     Provenance           `json:"provenance"`
	FallbackReason string               `json:"fallback_reason,omitempty"`
	Result         ClassificationResult `json:"result"`
	Spreadsheet    *SpreadsheetSummary  `json:"spreadsheet,omitempty"`
	Reconciliation *Reconciliation      `json:"reconciliation,omitempty"`
	Warnings       []string             `json:"warnings"`
	AnalyzedAt     time.Time            `json:"analyzed_at"`
}

type Analysis struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	MimeType    string          `json:"mime_type"`
	StoragePath string          `json:"storage_path"`
	SizeBytes   int64           `json:"size_bytes"`
	Status      AnalysisStatus  `json:"status"`
	Error       string          `json:"error,omitempty"`
	Report      *AnalysisReport `json:"report,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of r. Cached reports are handed out as clones so
// callers may edit what they receive.
func (r *AnalysisReport) Clone() *AnalysisReport {
	if r == nil {
		return nil
	}
	out := *r
	out.Result = r.Result.Clone()
	out.Warnings = cloneStrings(r.Warnings)
	if r.Spreadsheet != nil {
		sheet := *r.Spreadsheet
		sheet.Skus = cloneStrings(r.Spreadsheet.Skus)
		out.Spreadsheet = &sheet
	}
	if r.Reconciliation != nil {
		out.Reconciliation = &Reconciliation{
			SkusWithoutFolder: cloneStrings(r.Reconciliation.SkusWithoutFolder),
			FoldersWithoutRow: cloneStrings(r.Reconciliation.FoldersWithoutRow),
		}
	}
	return &out
}
