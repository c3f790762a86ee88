package mime

import "testing"

func TestIsBinaryDetectsNulByte(t *testing.T) {
	if !IsBinary([]byte{0x00, 0x01, 0x02}) {
		t.Error("expected NUL-containing content to be binary")
	}
}

func TestIsBinaryAcceptsPlainText(t *testing.T) {
	if IsBinary([]byte("hello, world\n")) {
		t.Error("expected plain text to not be binary")
	}
}

func TestIsBinaryEmptyIsNotBinary(t *testing.T) {
	if IsBinary(nil) {
		t.Error("empty content should not be binary")
	}
}

func TestDetectTypeKnownTextExtension(t *testing.T) {
	if got := DetectType("notes.md"); got != "text/plain; charset=utf-8" {
		t.Errorf("DetectType(notes.md) = %q", got)
	}
}

func TestExtensionLowercasesAndStripsDot(t *testing.T) {
	if got := Extension("Archive.ZIP"); got != "zip" {
		t.Errorf("Extension(Archive.ZIP) = %q", got)
	}
}
