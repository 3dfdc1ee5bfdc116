package classifier

import (
	"path"
	"strings"
)

// Rules holds the naming conventions the classifier recognizes.
type Rules struct {
	SpreadsheetExtensions         []string
	ImageExtensions               []string
	ImageRootNames                []string
	MainImageBaseName             string
	MainImageExtensions           []string
	PreferredSpreadsheetSubstring string
}

func DefaultRules() Rules {
	return Rules{
		SpreadsheetExtensions:         []string{".xlsx", ".xls"},
		ImageExtensions:               []string{".jpg", ".jpeg", ".png", ".webp", ".gif"},
		ImageRootNames:                []string{"images", "image"},
		MainImageBaseName:             "main",
		MainImageExtensions:           []string{".jpg", ".jpeg", ".png"},
		PreferredSpreadsheetSubstring: "product_import",
	}
}

func (r Rules) normalize() Rules {
	def := DefaultRules()
	out := Rules{
		SpreadsheetExtensions:         normalizeExtensions(r.SpreadsheetExtensions),
		ImageExtensions:               normalizeExtensions(r.ImageExtensions),
		ImageRootNames:                normalizeNames(r.ImageRootNames),
		MainImageBaseName:             strings.ToLower(strings.TrimSpace(r.MainImageBaseName)),
		MainImageExtensions:           normalizeExtensions(r.MainImageExtensions),
		PreferredSpreadsheetSubstring: strings.ToLower(strings.TrimSpace(r.PreferredSpreadsheetSubstring)),
	}
	if len(out.SpreadsheetExtensions) == 0 {
		out.SpreadsheetExtensions = def.SpreadsheetExtensions
	}
	if len(out.ImageExtensions) == 0 {
		out.ImageExtensions = def.ImageExtensions
	}
	if len(out.ImageRootNames) == 0 {
		out.ImageRootNames = def.ImageRootNames
	}
	if out.MainImageBaseName == "" {
		out.MainImageBaseName = def.MainImageBaseName
	}
	if len(out.MainImageExtensions) == 0 {
		out.MainImageExtensions = def.MainImageExtensions
	}
	return out
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if !strings.HasPrefix(v, ".") {
			v = "." + v
		}
		out = append(out, v)
	}
	return out
}

func normalizeNames(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// matcher answers naming questions against normalized rules.
type matcher struct {
	spreadsheetExt map[string]struct{}
	imageExt       map[string]struct{}
	roots          map[string]struct{}
	mainNames      map[string]struct{}
	preferred      string
}

func newMatcher(r Rules) matcher {
	m := matcher{
		spreadsheetExt: toSet(r.SpreadsheetExtensions),
		imageExt:       toSet(r.ImageExtensions),
		roots:          toSet(r.ImageRootNames),
		mainNames:      make(map[string]struct{}, len(r.MainImageExtensions)),
		preferred:      r.PreferredSpreadsheetSubstring,
	}
	for _, ext := range r.MainImageExtensions {
		m.mainNames[r.MainImageBaseName+ext] = struct{}{}
	}
	return m
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func extension(name string) string {
	return strings.ToLower(path.Ext(name))
}

func (m matcher) isSpreadsheet(name string) bool {
	_, ok := m.spreadsheetExt[extension(name)]
	return ok
}

func (m matcher) isImage(name string) bool {
	_, ok := m.imageExt[extension(name)]
	return ok
}

// isMainImage matches the basename case-insensitively on purpose: MAIN.PNG
// from case-insensitive file systems counts as the main image. The folder
// part of the path is still matched exactly by the caller.
func (m matcher) isMainImage(name string) bool {
	_, ok := m.mainNames[strings.ToLower(name)]
	return ok
}

func (m matcher) isPreferredSpreadsheet(name string) bool {
	return m.preferred != "" && strings.Contains(strings.ToLower(name), m.preferred)
}

// rootIndex returns the position of the first image-root segment, or -1.
func (m matcher) rootIndex(segments []string) int {
	for i, segment := range segments {
		if _, ok := m.roots[strings.ToLower(segment)]; ok {
			return i
		}
	}
	return -1
}
