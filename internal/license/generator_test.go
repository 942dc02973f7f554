package license

import (
	"bytes"
	"regexp"
	"testing"
)

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func TestGenerator_Format(t *testing.T) {
	g := NewGenerator()
	for i := 0; i < 500; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if !keyPattern.MatchString(code) {
			t.Fatalf("code %q does not match pattern", code)
		}
	}
}

func TestGenerator_SkipsBiasedBytes(t *testing.T) {
	// 0xFF выше rejectionLimit и должен отбрасываться, 0 -> 'A', 26 -> '0'
	src := bytes.Repeat([]byte{0xFF, 0, 26}, 32)
	g := &Generator{entropy: bytes.NewReader(src)}

	code, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if code != "A0A0-A0A0-A0A0-A0A0" {
		t.Fatalf("code = %q", code)
	}
}

func TestGenerator_EntropyFailure(t *testing.T) {
	g := &Generator{entropy: bytes.NewReader(nil)}
	if _, err := g.Generate(); err == nil {
		t.Fatal("expected error when entropy source is empty")
	}
}
