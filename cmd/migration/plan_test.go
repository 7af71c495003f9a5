package migration

import (
	"github.com/ValentinKolb/rKV/lib/migrate"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const samplePlan = `
meta-dir = "/var/lib/rkv/migrate"
batch-keys = 50
bytes-per-second = 1048576
report-interval = "30s"

[source]
name = "node-a"
endpoint = "10.0.0.1:8888"

[dest]
name = "node-b"
endpoint = "10.0.0.2:8888"
empty = true

[move]
min = "m"
`

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan([]byte(samplePlan))
	if err != nil {
		t.Fatalf("ParsePlan failed: %v", err)
	}

	if plan.MetaDir != "/var/lib/rkv/migrate" || plan.BatchKeys != 50 {
		t.Errorf("unexpected plan %+v", plan)
	}
	if plan.Source.Range != nil || plan.Source.Empty {
		t.Errorf("source range should be read from the node")
	}
	if !plan.Dest.Empty {
		t.Errorf("dest should be empty")
	}
	if want := (migrate.KeyRange{Min: "m"}); plan.Move != want {
		t.Errorf("move = %v, want %v", plan.Move, want)
	}
	if plan.MaxRetries != migrate.DefaultRunOptions().MaxRetries {
		t.Errorf("MaxRetries = %d, want default", plan.MaxRetries)
	}

	opts := plan.RunOptions()
	if opts.BytesPerSecond != 1048576 || opts.ReportInterval != 30*time.Second {
		t.Errorf("unexpected run options %+v", opts)
	}
}

func TestParsePlanExplicitRange(t *testing.T) {
	raw := strings.Replace(samplePlan, `endpoint = "10.0.0.1:8888"`,
		"endpoint = \"10.0.0.1:8888\"\nrange = { min = \"a\", max = \"z\" }", 1)
	plan, err := ParsePlan([]byte(raw))
	if err != nil {
		t.Fatalf("ParsePlan failed: %v", err)
	}
	if plan.Source.Range == nil || *plan.Source.Range != (migrate.KeyRange{Min: "a", Max: "z"}) {
		t.Errorf("source range = %v", plan.Source.Range)
	}
}

func TestParsePlanErrors(t *testing.T) {
	tests := []struct {
		name string
		plan string
	}{
		{"MissingEndpoint", strings.Replace(samplePlan, `endpoint = "10.0.0.2:8888"`, "", 1)},
		{"UnknownField", samplePlan + "\nshard = 100\n"},
		{"RangeAndEmpty", strings.Replace(samplePlan, "empty = true", "empty = true\nrange = { min = \"\", max = \"m\" }", 1)},
		{"BadInterval", strings.Replace(samplePlan, `"30s"`, `"soon"`, 1)},
		{"NotToml", "this is not toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePlan([]byte(tt.plan)); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.toml")
	if err := os.WriteFile(path, []byte(samplePlan), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPlan(path); err != nil {
		t.Errorf("LoadPlan failed: %v", err)
	}
	if _, err := LoadPlan(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
