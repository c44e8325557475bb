// Package config holds the hyperparameters the external training loop
// consumes when training the repeated-layers GPT on the blog corpus.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed train_repeat.yaml
var defaultConfig []byte

// TrainConfig mirrors the keys of train_repeat.yaml. Keys that are absent
// from a loaded file keep their current value.
type TrainConfig struct {
	OutDir               string `yaml:"out_dir"`
	EvalInterval         int    `yaml:"eval_interval"`
	EvalIters            int    `yaml:"eval_iters"`
	LogInterval          int    `yaml:"log_interval"`
	AlwaysSaveCheckpoint bool   `yaml:"always_save_checkpoint"`

	WandbLog     bool   `yaml:"wandb_log"`
	WandbProject string `yaml:"wandb_project"`
	WandbRunName string `yaml:"wandb_run_name"`

	Dataset                   string `yaml:"dataset"`
	GradientAccumulationSteps int    `yaml:"gradient_accumulation_steps"`
	BatchSize                 int    `yaml:"batch_size"`
	BlockSize                 int    `yaml:"block_size"`

	NLayer    int     `yaml:"n_layer"`
	NRepLayer int     `yaml:"n_rep_layer"`
	NRep      int     `yaml:"n_rep"`
	NHead     int     `yaml:"n_head"`
	NEmbd     int     `yaml:"n_embd"`
	Dropout   float64 `yaml:"dropout"`

	LearningRate float64 `yaml:"learning_rate"`
	MaxIters     int     `yaml:"max_iters"`
	LrDecayIters int     `yaml:"lr_decay_iters"`
	MinLr        float64 `yaml:"min_lr"`
	Beta2        float64 `yaml:"beta2"`
	WarmupIters  int     `yaml:"warmup_iters"`

	Device  *string `yaml:"device,omitempty"`
	Compile *bool   `yaml:"compile,omitempty"`
}

// Default returns the shipped train_repeat configuration.
func Default() (*TrainConfig, error) {
	cfg := &TrainConfig{}
	if err := cfg.decode(bytes.NewReader(defaultConfig)); err != nil {
		return nil, fmt.Errorf("embedded train_repeat.yaml: %w", err)
	}
	return cfg, nil
}

// decode overlays a YAML document onto cfg, rejecting unknown keys.
func (cfg *TrainConfig) decode(r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Load overlays the YAML (or JSON) file at path onto cfg.
func (cfg *TrainConfig) Load(path string) error {
	handle, err := os.Open(path)
	if err != nil {
		return err
	}
	defer handle.Close()
	if decodeErr := cfg.decode(handle); decodeErr != nil {
		return fmt.Errorf("error loading %s: %w", path, decodeErr)
	}
	return nil
}

// Override applies `key=value` assignments, with or without a leading
// `--`. The value is typed by the field it lands in.
func (cfg *TrainConfig) Override(assignments []string) error {
	for _, assignment := range assignments {
		key, value, ok := strings.Cut(strings.TrimPrefix(assignment, "--"),
			"=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("invalid override %q, expected key=value",
				assignment)
		}
		valueNode := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
		if value == "" {
			// A bare empty scalar is null, which yaml leaves unapplied.
			valueNode.Style = yaml.DoubleQuotedStyle
		}
		doc := yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: key},
				valueNode,
			},
		}
		docBytes, err := yaml.Marshal(&doc)
		if err != nil {
			return err
		}
		if err := cfg.decode(bytes.NewReader(docBytes)); err != nil {
			return fmt.Errorf("invalid override %q: %w", assignment, err)
		}
	}
	return nil
}

// Configure builds the effective configuration: defaults, then each file
// in order, then the overrides. The result is validated.
func Configure(files []string, assignments []string) (*TrainConfig, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if err := cfg.Load(file); err != nil {
			return nil, err
		}
	}
	if err := cfg.Override(assignments); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *TrainConfig) Validate() error {
	positives := []struct {
		name  string
		value int
	}{
		{"eval_interval", cfg.EvalInterval},
		{"eval_iters", cfg.EvalIters},
		{"log_interval", cfg.LogInterval},
		{"gradient_accumulation_steps", cfg.GradientAccumulationSteps},
		{"batch_size", cfg.BatchSize},
		{"block_size", cfg.BlockSize},
		{"n_layer", cfg.NLayer},
		{"n_rep", cfg.NRep},
		{"n_head", cfg.NHead},
		{"n_embd", cfg.NEmbd},
		{"max_iters", cfg.MaxIters},
		{"lr_decay_iters", cfg.LrDecayIters},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}
	switch {
	case cfg.Dataset == "":
		return errors.New("dataset must be set")
	case cfg.NEmbd%cfg.NHead != 0:
		return fmt.Errorf("n_embd (%d) must be divisible by n_head (%d)",
			cfg.NEmbd, cfg.NHead)
	case cfg.NRepLayer < 1 || cfg.NRepLayer > cfg.NLayer:
		return fmt.Errorf("n_rep_layer (%d) must be between 1 and "+
			"n_layer (%d)", cfg.NRepLayer, cfg.NLayer)
	case cfg.Dropout < 0 || cfg.Dropout >= 1:
		return fmt.Errorf("dropout must be in [0, 1), got %g", cfg.Dropout)
	case cfg.Beta2 <= 0 || cfg.Beta2 >= 1:
		return fmt.Errorf("beta2 must be in (0, 1), got %g", cfg.Beta2)
	case cfg.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be positive, got %g",
			cfg.LearningRate)
	case cfg.MinLr <= 0 || cfg.MinLr > cfg.LearningRate:
		return fmt.Errorf("min_lr (%g) must be in (0, learning_rate (%g)]",
			cfg.MinLr, cfg.LearningRate)
	case cfg.WarmupIters < 0 || cfg.WarmupIters > cfg.LrDecayIters:
		return fmt.Errorf("warmup_iters (%d) must be in [0, "+
			"lr_decay_iters (%d)]", cfg.WarmupIters, cfg.LrDecayIters)
	}
	return nil
}

// TokensPerIter is the number of tokens one optimizer step consumes.
func (cfg *TrainConfig) TokensPerIter() int {
	return cfg.GradientAccumulationSteps * cfg.BatchSize * cfg.BlockSize
}

// DataDir is where the training loop looks for train.bin and val.bin.
func (cfg *TrainConfig) DataDir(root string) string {
	return filepath.Join(root, cfg.Dataset)
}

func (cfg *TrainConfig) Write(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return err
	}
	return encoder.Close()
}
