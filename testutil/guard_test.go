package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestInfraImportForbidden(t *testing.T) {
	cases := map[string]bool{
		"woodcore/internal/infra/persistence/sqlite": true,
		"woodcore/internal/infra":                    true,
		"woodcore/internal/blob":                     false,
		"woodcore/internal/infrastructure":           false,
	}
	for in, want := range cases {
		if got := InfraImportForbidden(in); got != want {
			t.Fatalf("InfraImportForbidden(%q)=%v want %v", in, got, want)
		}
	}
}

func TestPrefixForbidden(t *testing.T) {
	pred := PrefixForbidden("os", "woodcore/internal")
	cases := map[string]bool{
		"os":                     true,
		"os/exec":                true,
		"osext":                  false,
		"woodcore/internal/core": true,
		"woodcore/pkg/domain":    false,
	}
	for in, want := range cases {
		if got := pred(in); got != want {
			t.Fatalf("PrefixForbidden(%q)=%v want %v", in, got, want)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package tmp\nimport \"os\"\nvar _ = os.Args\n")
	writeGo(t, dir, "a_test.go", "package tmp\nimport \"forbidden/pkg\"\n")
	writeGo(t, dir, "notes.txt", "import \"forbidden/pkg\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeGo(t, filepath.Join(dir, "sub"), "b.go", "package sub\nimport \"forbidden/pkg\"\n")

	viols, err := directImportViolations(dir, PrefixForbidden("forbidden"))
	if err != nil || len(viols) != 0 {
		t.Fatalf("expected test files and subdirs to be ignored, got %v err=%v", viols, err)
	}
	viols, err = directImportViolations(dir, PrefixForbidden("os"))
	if err != nil || len(viols) != 1 || viols[0] != "os (in a.go)" {
		t.Fatalf("unexpected violations %v err=%v", viols, err)
	}
	AssertNoDirectImports(t, dir, PrefixForbidden("net"), "no network")
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InfraImportForbidden); err == nil {
		t.Fatalf("expected missing dir error")
	}
	dir := t.TempDir()
	writeGo(t, dir, "bad.go", "package tmp\nimport (\n")
	if _, err := directImportViolations(dir, InfraImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	prev := goListDeps
	t.Cleanup(func() { goListDeps = prev })

	goListDeps = func(string) ([]byte, error) {
		return []byte("context\n\nwoodcore/pkg/domain\nwoodcore/internal/infra/blob/s3\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", InfraImportForbidden)
	if err != nil || len(viols) != 1 || viols[0] != "woodcore/internal/infra/blob/s3" {
		t.Fatalf("unexpected violations %v err=%v", viols, err)
	}

	goListDeps = func(string) ([]byte, error) { return []byte("boom"), errors.New("exit 1") }
	if _, out, err := transitiveDependencyViolations("./...", InfraImportForbidden); err == nil || string(out) != "boom" {
		t.Fatalf("expected go list failure, got %v %q", err, out)
	}
}

func TestFailIfViolations(t *testing.T) {
	var r recordingFatal
	failIfViolations(&r, "direct imports", "layering", nil)
	if r.msg != "" {
		t.Fatalf("no violations should not fail")
	}
	failIfViolations(&r, "direct imports", "layering", []string{"a", "b"})
	if !strings.Contains(r.msg, "forbidden direct imports detected (layering)") || !strings.HasSuffix(r.msg, "a\nb") {
		t.Fatalf("unexpected message %q", r.msg)
	}
}
