package repeat_gpt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// PrepareSettings are the options that change the contents of the token
// files.
type PrepareSettings struct {
	Column      string    `yaml:"column"`
	MissingText string    `yaml:"missing_text"`
	Unit        SplitUnit `yaml:"unit"`
	ValFraction float64   `yaml:"val_fraction"`
	Seed        uint32    `yaml:"seed"`
	Encoder     string    `yaml:"encoder"`
	Sanitize    bool      `yaml:"sanitize"`
	Out32       bool      `yaml:"out32"`
}

// PrepareManifest records how a train and validation pair was produced. It
// is written next to the token files once both are complete.
type PrepareManifest struct {
	Corpus      []string        `yaml:"corpus"`
	Settings    PrepareSettings `yaml:"settings"`
	TrainUnits  int             `yaml:"train_units"`
	ValUnits    int             `yaml:"val_units"`
	TrainTokens int             `yaml:"train_tokens"`
	ValTokens   int             `yaml:"val_tokens"`
}

func (pc *PrepareConfig) Settings() PrepareSettings {
	return PrepareSettings{
		Column:      pc.Column,
		MissingText: pc.MissingText,
		Unit:        pc.Unit,
		ValFraction: pc.ValFraction,
		Seed:        pc.Seed,
		Encoder:     pc.EncoderId,
		Sanitize:    pc.Sanitize,
		Out32:       pc.Out32,
	}
}

// ManifestPath is `train_manifest.yaml` for the default train name.
func (pc *PrepareConfig) ManifestPath() string {
	base := strings.TrimSuffix(pc.TrainName, filepath.Ext(pc.TrainName))
	return filepath.Join(pc.DataDir, base+"_manifest.yaml")
}

// Matches reports whether the manifest describes the given corpus and
// settings.
func (manifest *PrepareManifest) Matches(corpus []string,
	settings PrepareSettings) bool {
	return manifest.Settings == settings &&
		slices.Equal(manifest.Corpus, corpus)
}

func (manifest *PrepareManifest) Result() *PrepareResult {
	return &PrepareResult{
		TrainUnits:  manifest.TrainUnits,
		ValUnits:    manifest.ValUnits,
		TrainTokens: manifest.TrainTokens,
		ValTokens:   manifest.ValTokens,
	}
}

func ReadManifest(path string) (*PrepareManifest, error) {
	manifestBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(manifestBytes))
	decoder.KnownFields(true)
	manifest := &PrepareManifest{}
	if err := decoder.Decode(manifest); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return manifest, nil
}

// WriteManifest writes via a `.part` file, so a manifest on disk is always
// complete.
func WriteManifest(path string, manifest *PrepareManifest) error {
	manifestBytes, err := yaml.Marshal(manifest)
	if err != nil {
		return err
	}
	partPath := path + ".part"
	if err := os.WriteFile(partPath, manifestBytes, 0644); err != nil {
		return err
	}
	if err := os.Rename(partPath, path); err != nil {
		os.Remove(partPath)
		return err
	}
	return nil
}
