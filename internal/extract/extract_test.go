package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"resumes/7/abc.pdf":  "pdf",
		"resume.DOCX":        "docx",
		"archive.tar.gz":     "gz",
		"noextension":        "",
		"trailingdot.":       "",
	}
	for name, want := range cases {
		if got := Extension(name); got != want {
			t.Fatalf("Extension(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{"pdf", "PDF", ".pdf", "doc", "docx", "jpg", "jpeg"} {
		if !Supported(ext) {
			t.Fatalf("Supported(%q) = false", ext)
		}
	}
	for _, ext := range []string{"", "exe", "txt", "png"} {
		if Supported(ext) {
			t.Fatalf("Supported(%q) = true", ext)
		}
	}
}

func TestTextRejectsUnsupportedType(t *testing.T) {
	_, err := Text(strings.NewReader("payload"), "exe")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Text = %v, want ErrUnsupportedType", err)
	}
}
