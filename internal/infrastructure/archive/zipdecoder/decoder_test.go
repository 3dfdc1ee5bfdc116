package zipdecoder

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

type zipItem struct {
	name    string
	content string
}

func buildZip(t *testing.T, items ...zipItem) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, item := range items {
		f, err := w.Create(item.name)
		if err != nil {
			t.Fatalf("Create(%q) error = %v", item.name, err)
		}
		if item.content != "" {
			if _, err := f.Write([]byte(item.content)); err != nil {
				t.Fatalf("Write(%q) error = %v", item.name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestDecodeListsEntriesInOrder(t *testing.T) {
	data := buildZip(t,
		zipItem{name: "images/"},
		zipItem{name: "images/SKU1/main.jpg", content: "jpeg-bytes"},
		zipItem{name: "./product_import.xlsx", content: "xlsx"},
	)

	archive, err := New(0).Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	entries := archive.Entries()
	want := []domain.ArchiveEntry{
		{Path: "images", IsDir: true},
		{Path: "images/SKU1/main.jpg", Size: int64(len("jpeg-bytes"))},
		{Path: "product_import.xlsx", Size: 4},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}

	rc, err := archive.Open("product_import.xlsx")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "xlsx" {
		t.Fatalf("unexpected content %q", raw)
	}

	if _, err := archive.Open("missing.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestDecodeEmptyZip(t *testing.T) {
	archive, err := New(0).Decode(buildZip(t))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(archive.Entries()) != 0 {
		t.Fatalf("expected no entries, got %+v", archive.Entries())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := New(0).Decode([]byte("definitely not an archive"))
	if !domain.IsKind(err, domain.ErrCorruptArchive) {
		t.Fatalf("expected ErrCorruptArchive, got %v", err)
	}
}

func TestDecodeRejectsTruncatedZip(t *testing.T) {
	data := buildZip(t, zipItem{name: "a.txt", content: "hello"})
	_, err := New(0).Decode(data[:len(data)/2])
	if !domain.IsKind(err, domain.ErrCorruptArchive) {
		t.Fatalf("expected ErrCorruptArchive, got %v", err)
	}
}

func TestDecodeRejectsOtherArchiveFormats(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte("payload"))
	_ = gz.Close()

	_, err := New(0).Decode(buf.Bytes())
	if !domain.IsKind(err, domain.ErrUnsupportedArchive) {
		t.Fatalf("expected ErrUnsupportedArchive, got %v", err)
	}
}

func TestDecodeEnforcesEntryLimit(t *testing.T) {
	data := buildZip(t, zipItem{name: "a.txt"}, zipItem{name: "b.txt"})
	_, err := New(1).Decode(data)
	if !domain.IsKind(err, domain.ErrArchiveTooLarge) {
		t.Fatalf("expected ErrArchiveTooLarge, got %v", err)
	}
}

func TestDecodeRecoversLegacyChineseNames(t *testing.T) {
	encoded, err := simplifiedchinese.GB18030.NewEncoder().String("商品")
	if err != nil {
		t.Fatalf("encode name: %v", err)
	}
	data := buildZip(t, zipItem{name: encoded + "/main.jpg", content: "x"})

	archive, err := New(0).Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := archive.Entries()[0].Path; got != "商品/main.jpg" {
		t.Fatalf("expected decoded name, got %q", got)
	}
}
