// Package testutil holds the layering checks shared by the architecture tests:
// the accessor stays free of reflection and the target vocabulary depends on
// nothing outside the standard library and this module.
package testutil

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Import is one import declaration of a source file.
type Import struct {
	Path string
	File string
}

func (i Import) String() string {
	return i.Path + " (in " + i.File + ")"
}

// DirectImports lists the imports of the non-test Go files directly in dir.
// Build tags are not evaluated.
func DirectImports(dir string) ([]Import, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var imports []Import
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, spec := range f.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: import %s: %w", name, spec.Path.Value, err)
			}
			imports = append(imports, Import{Path: path, File: name})
		}
	}
	return imports, nil
}

// AssertNoDirectImports fails t when a non-test file in dir imports a path
// matched by forbidden.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(path string) bool, reason string) {
	t.Helper()
	imports, err := DirectImports(dir)
	if err != nil {
		t.Fatalf("scan imports of %s: %v", dir, err)
	}
	var viols []string
	for _, imp := range imports {
		if forbidden(imp.Path) {
			viols = append(viols, imp.String())
		}
	}
	report(t, "direct imports", reason, viols)
}

// ReflectImportForbidden matches the reflect and unsafe packages.
func ReflectImportForbidden(path string) bool {
	return path == "reflect" || path == "unsafe"
}

// nonStandardDeps lists every package pattern depends on, itself included,
// that is not part of the standard library.
var nonStandardDeps = func(pattern string) ([]string, error) {
	out, err := exec.Command("go", "list", "-deps", "-f", "{{if not .Standard}}{{.ImportPath}}{{end}}", pattern).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("go list -deps %s: %w\n%s", pattern, err, out)
	}
	return strings.Fields(string(out)), nil
}

// AssertStdlibOnly fails t when pattern depends, directly or transitively, on
// a package that is neither in the standard library nor under modulePath.
func AssertStdlibOnly(t testing.TB, pattern, modulePath string) {
	t.Helper()
	deps, err := nonStandardDeps(pattern)
	if err != nil {
		t.Fatal(err)
	}
	report(t, "dependencies", pattern+" must build on the standard library only", foreign(deps, modulePath))
}

func foreign(deps []string, modulePath string) []string {
	var out []string
	for _, dep := range deps {
		if dep != modulePath && !strings.HasPrefix(dep, modulePath+"/") {
			out = append(out, dep)
		}
	}
	return out
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func report(t fatalLogger, what, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden %s (%s):\n%s", what, reason, strings.Join(viols, "\n"))
	}
}
