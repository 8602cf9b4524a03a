package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	content := "# Setup\n\nInstall the binary and run it.\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor()
	got, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != content {
		t.Errorf("Extract() = %q, want %q", got, content)
	}
}

func TestExtractMissingFile(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Extract() of missing file should fail")
	}
}

func TestExtractBytesInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte{'o', 'k', 0xff, 0xfe, '!'}, ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes() error = %v", err)
	}
	if !strings.Contains(got, "ok") || !strings.Contains(got, "�") {
		t.Errorf("ExtractBytes() = %q, want invalid bytes replaced", got)
	}
}

func TestExtractBytesUnknownExtensionFallsBackToPlain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("plain content"), ".log")
	if err != nil {
		t.Fatalf("ExtractBytes() error = %v", err)
	}
	if got != "plain content" {
		t.Errorf("ExtractBytes() = %q", got)
	}
}

func TestExtractBytesBadPDF(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Error("ExtractBytes() of invalid PDF should fail")
	}
}

func TestSupported(t *testing.T) {
	e := NewExtractor()
	for _, ext := range []string{".txt", ".md", ".rst", ".pdf", ".MD"} {
		if !e.Supported(ext) {
			t.Errorf("Supported(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{".docx", ".html", ""} {
		if e.Supported(ext) {
			t.Errorf("Supported(%q) = true, want false", ext)
		}
	}
}
