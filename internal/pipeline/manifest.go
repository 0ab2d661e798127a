package pipeline

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/bova-research/dcatlas/internal/checkpoint"
)

// Manifest is the YAML run summary written next to the CSV outputs.
type Manifest struct {
	RunID       string                `yaml:"run_id"`
	Input       string                `yaml:"input"`
	GeneratedAt time.Time             `yaml:"generated_at"`
	ElapsedSecs float64               `yaml:"elapsed_secs"`
	CleanOut    string                `yaml:"clean_output"`
	SecretOut   string                `yaml:"secret_output"`
	States      []string              `yaml:"states,omitempty"`
	Limit       int                   `yaml:"limit,omitempty"`
	Summary     checkpoint.RunSummary `yaml:"summary"`
}

func buildManifest(runID string, opts Options, sum *checkpoint.RunSummary, elapsed time.Duration) Manifest {
	return Manifest{
		RunID:       runID,
		Input:       opts.Input,
		GeneratedAt: time.Now().UTC(),
		ElapsedSecs: elapsed.Seconds(),
		CleanOut:    opts.CleanOut,
		SecretOut:   opts.SecretOut,
		States:      opts.States,
		Limit:       opts.Limit,
		Summary:     *sum,
	}
}

// WriteManifest writes the manifest as YAML.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "manifest: marshal")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "manifest: write %s", path)
	}
	return nil
}
