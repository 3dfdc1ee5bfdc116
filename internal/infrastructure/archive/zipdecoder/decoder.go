// Package zipdecoder turns uploaded ZIP bytes into archive entries.
package zipdecoder

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
	"github.com/kirillkom/catalog-archive-analyzer/internal/core/ports"
)

// sniffLength is the header size filetype needs for archive matchers.
const sniffLength = 262

type Decoder struct {
	maxEntries int
}

func New(maxEntries int) *Decoder {
	if maxEntries <= 0 {
		maxEntries = 200000
	}
	return &Decoder{maxEntries: maxEntries}
}

func (d *Decoder) Decode(data []byte) (ports.Archive, error) {
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode zip", errors.New("archive is empty"))
	}
	if err := sniff(data); err != nil {
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrCorruptArchive, "decode zip", err)
	}
	if len(reader.File) > d.maxEntries {
		return nil, domain.WrapError(domain.ErrArchiveTooLarge, "decode zip", fmt.Errorf("%d entries exceed limit %d", len(reader.File), d.maxEntries))
	}

	archive := &zipArchive{
		entries: make([]domain.ArchiveEntry, 0, len(reader.File)),
		files:   make(map[string]*zip.File, len(reader.File)),
	}
	for _, f := range reader.File {
		if f.Method != zip.Store && f.Method != zip.Deflate {
			return nil, domain.WrapError(domain.ErrUnsupportedArchive, "decode zip", fmt.Errorf("%s: compression method %d", f.Name, f.Method))
		}

		name := normalizeName(decodeName(f.Name))
		if name == "" {
			continue
		}
		isDir := f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/")
		entry := domain.ArchiveEntry{
			Path:  name,
			IsDir: isDir,
		}
		if !isDir {
			entry.Size = uncompressedSize(f)
			archive.files[name] = f
		}
		archive.entries = append(archive.entries, entry)
	}
	return archive, nil
}

func sniff(data []byte) error {
	head := data
	if len(head) > sniffLength {
		head = head[:sniffLength]
	}
	if filetype.Is(head, "zip") {
		return nil
	}
	if filetype.IsArchive(head) {
		kind, _ := filetype.Match(head)
		return domain.WrapError(domain.ErrUnsupportedArchive, "decode zip", fmt.Errorf("%s archives are not supported", kind.Extension))
	}
	return domain.WrapError(domain.ErrCorruptArchive, "decode zip", errors.New("missing zip signature"))
}

// decodeName recovers legacy GB18030 entry names written by Windows archivers
// that do not set the UTF-8 flag.
func decodeName(name string) string {
	if utf8.ValidString(name) {
		return name
	}
	decoded, err := simplifiedchinese.GB18030.NewDecoder().String(name)
	if err != nil || !utf8.ValidString(decoded) {
		return strings.ToValidUTF8(name, "_")
	}
	return decoded
}

func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	for strings.HasPrefix(name, "./") {
		name = strings.TrimPrefix(name, "./")
	}
	name = strings.TrimLeft(name, "/")
	return strings.TrimSuffix(name, "/")
}

func uncompressedSize(f *zip.File) int64 {
	if f.UncompressedSize64 > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f.UncompressedSize64)
}

type zipArchive struct {
	entries []domain.ArchiveEntry
	files   map[string]*zip.File
}

func (a *zipArchive) Entries() []domain.ArchiveEntry {
	return a.entries
}

func (a *zipArchive) Open(path string) (io.ReadCloser, error) {
	f, ok := a.files[normalizeName(path)]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, domain.WrapError(domain.ErrCorruptArchive, "open "+path, err)
	}
	return rc, nil
}
