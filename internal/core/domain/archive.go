package domain

import "strings"

// ArchiveEntry is one file or directory record delivered by an archive decoder.
// Path is relative to the archive root and always uses '/' separators.
type ArchiveEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// Segments returns the non-empty path segments in order.
func (e ArchiveEntry) Segments() []string {
	return SplitPath(e.Path)
}

// Name returns the last path segment.
func (e ArchiveEntry) Name() string {
	segments := e.Segments()
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

func SplitPath(path string) []string {
	raw := strings.Split(strings.ReplaceAll(path, "\\", "/"), "/")
	out := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment == "" || segment == "." {
			continue
		}
		out = append(out, segment)
	}
	return out
}

type SkuFolderRecord struct {
	SKU                 string   `json:"sku"`
	FolderPath          string   `json:"folder_path"`
	HasMainImage        bool     `json:"has_main_image"`
	SecondaryImageCount int      `json:"secondary_image_count"`
	ImageFileNames      []string `json:"image_file_names"`
}

// ClassificationResult summarizes the structure of one product-image archive.
// It is built once per analysis and never updated afterwards.
type ClassificationResult struct {
	HasSpreadsheet       bool              `json:"has_spreadsheet"`
	SpreadsheetFileName  string            `json:"spreadsheet_file_name"`
	HasImageFolder       bool              `json:"has_image_folder"`
	ImageCount           int               `json:"image_count"`
	TotalByteSize        int64             `json:"total_byte_size"`
	SkuFolders           []SkuFolderRecord `json:"sku_folders"`
	SkuList              []string          `json:"sku_list"`
	SkusMissingMainImage []string          `json:"skus_missing_main_image"`
}

// EmptyClassification returns a result with non-nil empty slices.
func EmptyClassification() ClassificationResult {
	return ClassificationResult{
		SkuFolders:           []SkuFolderRecord{},
		SkuList:              []string{},
		SkusMissingMainImage: []string{},
	}
}

// Normalize replaces nil slices so results decoded from remote peers encode the
// same way as locally built ones.
func (r ClassificationResult) Normalize() ClassificationResult {
	if r.SkuFolders == nil {
		r.SkuFolders = []SkuFolderRecord{}
	}
	for i := range r.SkuFolders {
		if r.SkuFolders[i].ImageFileNames == nil {
			r.SkuFolders[i].ImageFileNames = []string{}
		}
	}
	if r.SkuList == nil {
		r.SkuList = []string{}
	}
	if r.SkusMissingMainImage == nil {
		r.SkusMissingMainImage = []string{}
	}
	return r
}

// MainImageTotal counts SKU folders that have a main image.
func (r ClassificationResult) MainImageTotal() int {
	total := 0
	for _, folder := range r.SkuFolders {
		if folder.HasMainImage {
			total++
		}
	}
	return total
}

// Clone returns a copy that shares no slices with r.
func (r ClassificationResult) Clone() ClassificationResult {
	out := r
	if r.SkuFolders != nil {
		out.SkuFolders = make([]SkuFolderRecord, len(r.SkuFolders))
		for i, folder := range r.SkuFolders {
			folder.ImageFileNames = cloneStrings(folder.ImageFileNames)
			out.SkuFolders[i] = folder
		}
	}
	out.SkuList = cloneStrings(r.SkuList)
	out.SkusMissingMainImage = cloneStrings(r.SkusMissingMainImage)
	return out
}

// cloneStrings keeps the nil/empty distinction so JSON output does not change.
func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
