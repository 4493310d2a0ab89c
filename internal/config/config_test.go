package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_Full(t *testing.T) {
	yaml := `
overwrite: true
log:
  level: debug
  format: json
store:
  path: scenes.db
print:
  indent: 2
`
	cfg, err := ParseConfig([]byte(yaml), "/work/annoscene.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Overwrite {
		t.Error("expected overwrite to be true")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Store.Path != filepath.Join("/work", "scenes.db") {
		t.Errorf("store.path = %q, want it resolved against the config dir", cfg.Store.Path)
	}
	if cfg.Print.Indent != 2 {
		t.Errorf("print.indent = %d, want 2", cfg.Print.Indent)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("{}"), "annoscene.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Overwrite {
		t.Error("overwrite should default to false")
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Print.Indent != DefaultPrintIndent {
		t.Errorf("print.indent = %d", cfg.Print.Indent)
	}
	if filepath.Base(cfg.Store.Path) != DefaultStorePath {
		t.Errorf("store.path = %q", cfg.Store.Path)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"level", "log:\n  level: loud\n", "log.level"},
		{"format", "log:\n  format: xml\n", "log.format"},
		{"indent", "print:\n  indent: 40\n", "print.indent"},
		{"syntax", "log: [\n", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "bad.yaml")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestFindConfig_WalksUp(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "annoscene.yml")
	if err := os.WriteFile(want, []byte("overwrite: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FindConfig(deep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("FindConfig = %q, want %q", got, want)
	}
	cfg, err := LoadConfig(got)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Overwrite {
		t.Error("expected overwrite from the found file")
	}
}

func TestFindConfig_NotFound(t *testing.T) {
	got, err := FindConfig(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// a config above the temp dir would be found too; only check the type
	if got != "" && !strings.HasSuffix(got, ".yaml") && !strings.HasSuffix(got, ".yml") {
		t.Errorf("FindConfig = %q", got)
	}
}

func TestIndexExtensions(t *testing.T) {
	if !HasIndexExt("x/Foo.jaif") || HasIndexExt("Foo.class") {
		t.Error("HasIndexExt misclassifies")
	}
	if !HasClassExt("p/C.class") {
		t.Error("HasClassExt misclassifies")
	}
}
