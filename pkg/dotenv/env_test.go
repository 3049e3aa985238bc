package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseBasic(t *testing.T) {
	env, err := Parse("# comment\n\nFOO=bar\nBAZ=qux\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, ok := env.Get("FOO"); !ok || v != "bar" {
		t.Fatalf("FOO = %q, %v", v, ok)
	}
	if v, ok := env.Get("BAZ"); !ok || v != "qux" {
		t.Fatalf("BAZ = %q, %v", v, ok)
	}
}

func TestParseQuoting(t *testing.T) {
	env, err := Parse(`A="line1\nline2"
B='literal\nnot-escaped'
C=raw value here
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, _ := env.Get("A"); v != "line1\nline2" {
		t.Fatalf("A = %q", v)
	}
	if v, _ := env.Get("B"); v != `literal\nnot-escaped` {
		t.Fatalf("B = %q", v)
	}
	if v, _ := env.Get("C"); v != "raw value here" {
		t.Fatalf("C = %q", v)
	}
}

func TestUnknownEscapePreservesBackslash(t *testing.T) {
	env, err := Parse(`A="\q"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, _ := env.Get("A"); v != `\q` {
		t.Fatalf("A = %q, want \\q", v)
	}
}

func TestRoundTrip(t *testing.T) {
	values := map[string]string{
		"SIMPLE":      "value",
		"EMPTY":       "",
		"WITH_SPACE":  "has space",
		"WITH_QUOTE":  `has "quote"`,
		"WITH_HASH":   "has#hash",
		"WITH_EQUALS": "a=b",
		"WITH_NEWLINE": "line1\nline2",
		"WITH_BACKSLASH": `back\slash`,
	}

	env := New()
	for k, v := range values {
		env.Set(k, v)
	}

	rendered := env.Render()
	reparsed, err := Parse(rendered)
	if err != nil {
		t.Fatalf("Parse(Render()): %v", err)
	}

	for k, want := range values {
		got, ok := reparsed.Get(k)
		if !ok {
			t.Fatalf("key %s missing after round-trip", k)
		}
		if got != want {
			t.Fatalf("key %s: got %q, want %q", k, got, want)
		}
	}
}

func TestSavePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	env := New()
	env.Set("A", "b")
	if err := env.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("mode = %o, want 0600", perm)
	}
}

func TestMissingFileLoadsEmpty(t *testing.T) {
	env, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if env.Len() != 0 {
		t.Fatal("expected an empty Env for a missing file")
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	env := New()
	env.Set("Z", "1")
	env.Set("A", "2")
	env.Set("M", "3")

	got := env.Keys()
	want := []string{"Z", "A", "M"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
}
