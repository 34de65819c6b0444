package format

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ropgadget/errtag"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRejectsUnrecognizedMagic(t *testing.T) {
	path := writeTemp(t, "not-a-binary", []byte("plain text, not a container image"))

	_, err := Load(path)
	if !errors.Is(err, errtag.InvalidInput) {
		t.Fatalf("Load() err = %v, want errtag.InvalidInput", err)
	}
}

func TestLoadRejectsTooShortFile(t *testing.T) {
	path := writeTemp(t, "tiny", []byte{0x7f})

	_, err := Load(path)
	if !errors.Is(err, errtag.InvalidInput) {
		t.Fatalf("Load() err = %v, want errtag.InvalidInput", err)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, errtag.IoFailure) {
		t.Fatalf("Load() err = %v, want errtag.IoFailure", err)
	}
}

func TestIsMachO(t *testing.T) {
	cases := []struct {
		magic []byte
		want  bool
	}{
		{[]byte{0xfe, 0xed, 0xfa, 0xce}, true},  // 32-bit big-endian
		{[]byte{0xfe, 0xed, 0xfa, 0xcf}, true},  // 64-bit big-endian
		{[]byte{0xce, 0xfa, 0xed, 0xfe}, true},  // 32-bit little-endian
		{[]byte{0xcf, 0xfa, 0xed, 0xfe}, true},  // 64-bit little-endian
		{[]byte{0x7f, 'E', 'L', 'F'}, false},
		{[]byte{'M', 'Z', 0, 0}, false},
	}
	for _, c := range cases {
		if got := isMachO(c.magic); got != c.want {
			t.Errorf("isMachO(%x) = %v, want %v", c.magic, got, c.want)
		}
	}
}
