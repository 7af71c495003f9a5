package migration

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/rKV/lib/migrate"
	"github.com/pelletier/go-toml/v2"
	"os"
	"time"
)

// PlanNode describes one side of a migration
type PlanNode struct {
	Name     string `toml:"name"`
	Endpoint string `toml:"endpoint"`

	// Range is the range the node owns before the first step. When it is
	// omitted the node is asked for its kv_range.
	Range *migrate.KeyRange `toml:"range"`

	// Empty marks a node that owns no keys yet
	Empty bool `toml:"empty"`
}

// Plan is the TOML description of one range migration
type Plan struct {
	MetaDir string           `toml:"meta-dir"`
	Source  PlanNode         `toml:"source"`
	Dest    PlanNode         `toml:"dest"`
	Move    migrate.KeyRange `toml:"move"`

	BatchKeys      int    `toml:"batch-keys"`
	BatchBytes     int64  `toml:"batch-bytes"`
	BytesPerSecond int64  `toml:"bytes-per-second"`
	MaxRetries     int    `toml:"max-retries"`
	LeaseTimeout   uint64 `toml:"lease-timeout-sec"`
	ReportInterval string `toml:"report-interval"`
}

// LoadPlan reads and validates a plan file
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(raw)
}

// ParsePlan decodes a plan and fills in defaults
func ParsePlan(raw []byte) (*Plan, error) {
	plan := &Plan{
		MetaDir:    "migrate-meta",
		MaxRetries: migrate.DefaultRunOptions().MaxRetries,
	}
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	for _, n := range []struct {
		side string
		node PlanNode
	}{{"source", plan.Source}, {"dest", plan.Dest}} {
		if n.node.Name == "" || n.node.Endpoint == "" {
			return nil, fmt.Errorf("%s needs a name and an endpoint", n.side)
		}
		if n.node.Empty && n.node.Range != nil {
			return nil, fmt.Errorf("%s sets both range and empty", n.side)
		}
	}
	if plan.MetaDir == "" {
		return nil, fmt.Errorf("meta-dir must not be empty")
	}
	if _, err := plan.reportInterval(); err != nil {
		return nil, err
	}
	return plan, nil
}

// RunOptions converts the pacing settings into migrate.RunOptions
func (p *Plan) RunOptions() migrate.RunOptions {
	opts := migrate.DefaultRunOptions()
	opts.BytesPerSecond = float64(p.BytesPerSecond)
	opts.MaxRetries = p.MaxRetries
	if d, _ := p.reportInterval(); d > 0 {
		opts.ReportInterval = d
	}
	return opts
}

func (p *Plan) reportInterval() (time.Duration, error) {
	if p.ReportInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.ReportInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid report-interval %q: %w", p.ReportInterval, err)
	}
	return d, nil
}
