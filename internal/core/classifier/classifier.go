// Package classifier infers the structure of product-image import archives:
// spreadsheet presence, the images/<SKU>/main.<ext> convention and per-SKU
// image folders. Classification is a pure function of the entry list.
package classifier

import (
	"strings"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

// Classifier is immutable after New and safe for concurrent use.
type Classifier struct {
	rules Rules
	match matcher
}

func New(rules Rules) *Classifier {
	normalized := rules.normalize()
	return &Classifier{
		rules: normalized,
		match: newMatcher(normalized),
	}
}

var defaultClassifier = New(DefaultRules())

// Classify runs the default rules over entries.
func Classify(entries []domain.ArchiveEntry) domain.ClassificationResult {
	return defaultClassifier.Classify(entries)
}

func (c *Classifier) Rules() Rules {
	return c.rules
}

type imageFile struct {
	name string
	dirs []string
}

type skuFolder struct {
	sku  string
	path string
}

// Classify makes a discovery pass over entries followed by a per-SKU folder
// pass. Malformed entries degrade to "not recognized"; it never fails.
func (c *Classifier) Classify(entries []domain.ArchiveEntry) domain.ClassificationResult {
	result := domain.EmptyClassification()

	var (
		imageRootSeen bool
		images        []imageFile
		folders       []skuFolder
		seenSKU       = make(map[string]struct{})
	)

	for _, entry := range entries {
		segments := entry.Segments()
		if len(segments) == 0 {
			continue
		}
		if entry.IsDir {
			if c.match.rootIndex(segments) >= 0 {
				imageRootSeen = true
			}
			continue
		}

		result.TotalByteSize += clampSize(entry.Size)

		name := segments[len(segments)-1]
		if !c.match.isImage(name) {
			continue
		}
		result.ImageCount++

		dirs := segments[:len(segments)-1]
		images = append(images, imageFile{name: name, dirs: dirs})

		root := c.match.rootIndex(dirs)
		if root >= 0 {
			imageRootSeen = true
		}
		sku, folderPath, ok := skuCandidate(dirs, root)
		if !ok {
			continue
		}
		if _, seen := seenSKU[sku]; seen {
			continue
		}
		seenSKU[sku] = struct{}{}
		folders = append(folders, skuFolder{sku: sku, path: folderPath})
	}

	if sheet, ok := c.SelectSpreadsheet(entries); ok {
		result.HasSpreadsheet = true
		result.SpreadsheetFileName = sheet.Name()
	}

	c.analyzeFolders(&result, images, folders)
	result.HasImageFolder = imageRootSeen || len(result.SkuList) > 0
	return result
}

// skuCandidate picks the SKU token for an image file's directory segments.
// Under an image root the token is the segment right after the root. Without
// any image root the first segment is used, which tolerates archives that
// drop the images/ wrapper but also misreads unrelated top-level folders
// (e.g. banner/cover.jpg) as SKU folders.
func skuCandidate(dirs []string, root int) (string, string, bool) {
	switch {
	case root >= 0 && root+1 < len(dirs):
		return dirs[root+1], strings.Join(dirs[:root+2], "/"), true
	case root < 0 && len(dirs) > 0:
		return dirs[0], dirs[0], true
	default:
		return "", "", false
	}
}

// analyzeFolders assigns every image to the deepest designated SKU folder that
// contains it, so nested SKU folders never count an image twice.
func (c *Classifier) analyzeFolders(result *domain.ClassificationResult, images []imageFile, folders []skuFolder) {
	if len(folders) == 0 {
		return
	}

	owner := make(map[string]int, len(folders))
	records := make([]domain.SkuFolderRecord, len(folders))
	for i, folder := range folders {
		owner[folder.path] = i
		records[i] = domain.SkuFolderRecord{
			SKU:            folder.sku,
			FolderPath:     folder.path,
			ImageFileNames: []string{},
		}
	}

	for _, img := range images {
		idx, direct, ok := deepestOwner(owner, img.dirs)
		if !ok {
			continue
		}
		record := &records[idx]
		record.ImageFileNames = append(record.ImageFileNames, img.name)
		if direct && c.match.isMainImage(img.name) {
			record.HasMainImage = true
			continue
		}
		record.SecondaryImageCount++
	}

	for _, record := range records {
		result.SkuFolders = append(result.SkuFolders, record)
		result.SkuList = append(result.SkuList, record.SKU)
		if !record.HasMainImage {
			result.SkusMissingMainImage = append(result.SkusMissingMainImage, record.SKU)
		}
	}
}

// deepestOwner walks the ancestors of dirs from deepest to shallowest.
// direct reports whether the owning folder is the file's own directory.
func deepestOwner(owner map[string]int, dirs []string) (idx int, direct bool, ok bool) {
	if len(dirs) == 0 {
		return 0, false, false
	}
	prefix := strings.Join(dirs, "/")
	for depth := len(dirs); depth > 0; depth-- {
		if idx, ok := owner[prefix]; ok {
			return idx, depth == len(dirs), true
		}
		cut := strings.LastIndexByte(prefix, '/')
		if cut < 0 {
			break
		}
		prefix = prefix[:cut]
	}
	return 0, false, false
}

type spreadsheetCandidate struct {
	entry     domain.ArchiveEntry
	depth     int
	preferred bool
}

func (a spreadsheetCandidate) beats(b spreadsheetCandidate) bool {
	if a.preferred != b.preferred {
		return a.preferred
	}
	return a.depth < b.depth
}

// SelectSpreadsheet returns the spreadsheet entry an import should use:
// a name containing the preferred substring first, then the shallowest path,
// then the first one in enumeration order.
func (c *Classifier) SelectSpreadsheet(entries []domain.ArchiveEntry) (domain.ArchiveEntry, bool) {
	var (
		best  spreadsheetCandidate
		found bool
	)
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		segments := entry.Segments()
		if len(segments) == 0 {
			continue
		}
		name := segments[len(segments)-1]
		if !c.match.isSpreadsheet(name) {
			continue
		}
		candidate := spreadsheetCandidate{
			entry:     entry,
			depth:     len(segments),
			preferred: c.match.isPreferredSpreadsheet(name),
		}
		if !found || candidate.beats(best) {
			best = candidate
			found = true
		}
	}
	return best.entry, found
}

func clampSize(size int64) int64 {
	if size < 0 {
		return 0
	}
	return size
}
