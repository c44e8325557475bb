// Package repeat_gpt prepares the blog corpus for the repeated-layers GPT:
// it fetches the CSV corpus, splits it into train and validation partitions,
// tokenizes them with GPT-2 BPE and writes flat token binaries.
package repeat_gpt

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/wbrown/repeat_gpt/resources"
	"github.com/wbrown/repeat_gpt/types"
)

const (
	DefaultDataDir   = "data/blog"
	DefaultTrainName = "train.bin"
	DefaultValName   = "val.bin"
)

// PrepareConfig
// A struct that encapsulates the configuration for preparing the corpus.
type PrepareConfig struct {
	Source      string
	DataDir     string
	CorpusName  string
	Column      string
	MissingText string
	Unit        SplitUnit
	ValFraction float64
	Seed        uint32
	EncoderId   string
	Sanitize    bool
	TrainName   string
	ValName     string
	Out32       bool
	Retokenize  bool
	// BlockSize is the training context length, 0 when unknown. A
	// partition needs more than BlockSize tokens to yield one sample.
	BlockSize int
}

// NewPrepareConfig
// Creates a new PrepareConfig struct with the default configuration.
func NewPrepareConfig() PrepareConfig {
	return PrepareConfig{
		Source:      resources.DefaultCorpusURL,
		DataDir:     DefaultDataDir,
		CorpusName:  resources.DefaultCorpusName,
		Column:      DefaultColumn,
		MissingText: DefaultMissingText,
		Unit:        UnitLine,
		ValFraction: DefaultValFraction,
		Seed:        DefaultSplitSeed,
		EncoderId:   DefaultEncoderId,
		TrainName:   DefaultTrainName,
		ValName:     DefaultValName,
	}
}

func (pc *PrepareConfig) Validate() error {
	switch {
	case pc.Source == "":
		return errors.New("a corpus source is required")
	case pc.DataDir == "":
		return errors.New("a data directory is required")
	case pc.Column == "":
		return errors.New("a CSV column is required")
	case !pc.Unit.Valid():
		return fmt.Errorf("invalid split unit: %s", pc.Unit)
	case pc.ValFraction <= 0 || pc.ValFraction >= 1:
		return fmt.Errorf("validation fraction must be in (0, 1), got %g",
			pc.ValFraction)
	case pc.TrainName == "" || pc.ValName == "":
		return errors.New("train and validation file names are required")
	case pc.TrainName == pc.ValName:
		return errors.New("train and validation files must be different")
	case pc.BlockSize < 0:
		return fmt.Errorf("block size must not be negative, got %d",
			pc.BlockSize)
	}
	return nil
}

func (pc *PrepareConfig) TrainPath() string {
	return filepath.Join(pc.DataDir, pc.TrainName)
}

func (pc *PrepareConfig) ValPath() string {
	return filepath.Join(pc.DataDir, pc.ValName)
}

type PrepareResult struct {
	TrainUnits  int
	ValUnits    int
	TrainTokens int
	ValTokens   int
	Skipped     bool
}

// FindNewest
// Returns the path and modified time of the newest of paths.
func FindNewest(paths []string) (newestPath string, newest time.Time,
	err error) {
	for _, path := range paths {
		stat, statErr := os.Stat(path)
		if statErr != nil {
			return "", time.Time{}, statErr
		}
		if newestPath == "" || newest.Before(stat.ModTime()) {
			newest = stat.ModTime()
			newestPath = path
		}
	}
	return newestPath, newest, nil
}

// outputsCurrent reports whether every output exists and is newer than the
// newest source, along with that source.
func outputsCurrent(sources []string, outputs []string) (bool, string,
	error) {
	newestPath, newest, err := FindNewest(sources)
	if err != nil {
		return false, "", err
	}
	for _, output := range outputs {
		stat, statErr := os.Stat(output)
		if errors.Is(statErr, os.ErrNotExist) {
			log.Printf("Creating %s", output)
			return false, newestPath, nil
		} else if statErr != nil {
			return false, newestPath, statErr
		}
		if !newest.Before(stat.ModTime()) {
			return false, newestPath, nil
		}
	}
	return true, newestPath, nil
}

// tokenCountMatches reports whether the token file at path holds exactly
// tokens tokens of the given width.
func tokenCountMatches(path string, tokens int, useUint32 bool) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return stat.Size() == int64(tokens*types.TokenWidth(useUint32))
}

// reuseOutputs returns the result of a previous run when its token files
// are newer than the corpus and its manifest matches the current settings.
func (pc *PrepareConfig) reuseOutputs(corpusPaths []string) (
	*PrepareResult, error) {
	manifestPath := pc.ManifestPath()
	current, newestPath, err := outputsCurrent(corpusPaths,
		[]string{pc.TrainPath(), pc.ValPath(), manifestPath})
	if err != nil || !current {
		return nil, err
	}
	manifest, err := ReadManifest(manifestPath)
	if err != nil {
		log.Printf("%v, retokenizing", err)
		return nil, nil
	}
	settings := pc.Settings()
	if !manifest.Matches(corpusPaths, settings) {
		log.Printf("Settings changed since %s was written, retokenizing. "+
			"Previous: %+v %v, now: %+v %v", manifestPath,
			manifest.Settings, manifest.Corpus, settings, corpusPaths)
		return nil, nil
	}
	if !tokenCountMatches(pc.TrainPath(), manifest.TrainTokens, pc.Out32) ||
		!tokenCountMatches(pc.ValPath(), manifest.ValTokens, pc.Out32) {
		log.Printf("Token files do not match %s, retokenizing", manifestPath)
		return nil, nil
	}
	log.Printf("Newest source `%s` is older than %s, not retokenizing. "+
		"Use -retokenize to force retokenization. Settings: %+v",
		newestPath, manifestPath, settings)
	result := manifest.Result()
	result.Skipped = true
	return result, nil
}

// WriteTokens
// Consumes a TokensIterator and serializes the tokens to a flat binary
// file. The file is written under a `.part` name and renamed into place
// once complete.
func WriteTokens(outPath string, nextTokens TokensIterator,
	useUint32 bool) (int, error) {
	partPath := outPath + ".part"
	outFile, err := os.OpenFile(partPath, os.O_TRUNC|os.O_RDWR|os.O_CREATE,
		0644)
	if err != nil {
		return 0, err
	}
	totalTokens, writeErr := writeTokens(bufio.NewWriterSize(outFile,
		RUNEBUF_SZ), nextTokens, useUint32)
	closeErr := outFile.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr == nil {
		writeErr = os.Rename(partPath, outPath)
	}
	if writeErr != nil {
		os.Remove(partPath)
		return 0, fmt.Errorf("error writing %s: %w", outPath, writeErr)
	}
	return totalTokens, nil
}

func writeTokens(writer *bufio.Writer, nextTokens TokensIterator,
	useUint32 bool) (int, error) {
	totalTokens := 0
	for {
		tokens := nextTokens()
		if tokens == nil {
			break
		}
		binTokens, err := tokens.ToBin(useUint32)
		if err != nil {
			return totalTokens, err
		}
		if _, err := writer.Write(*binTokens); err != nil {
			return totalTokens, err
		}
		totalTokens += len(*tokens)
	}
	return totalTokens, writer.Flush()
}

// encodePartition tokenizes the units selected by order, joined by
// newlines, into outPath.
func encodePartition(encoder Encoder, units []string, order []int,
	outPath string, useUint32 bool) (int, error) {
	begin := time.Now()
	nextTokens, err := encoder.StreamingEncode(NewUnitsReader(units, order))
	if err != nil {
		return 0, err
	}
	total, err := WriteTokens(outPath, nextTokens, useUint32)
	if err != nil {
		return 0, err
	}
	duration := time.Since(begin).Seconds()
	log.Printf("%s: %d tokens in %0.2fs, %0.2f tokens/s", outPath, total,
		duration, float64(total)/duration)
	return total, nil
}

// Prepare
// Resolves the corpus, splits it into train and validation partitions,
// tokenizes both and writes them to the data directory.
func Prepare(pc PrepareConfig, fetcher *resources.Fetcher) (*PrepareResult,
	error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		fetcher = resources.NewFetcher()
	}
	corpusPaths, err := fetcher.ResolveCorpus(pc.Source, pc.DataDir,
		pc.CorpusName)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(pc.DataDir, 0755); err != nil {
		return nil, err
	}
	if !pc.Retokenize {
		result, reuseErr := pc.reuseOutputs(corpusPaths)
		if reuseErr != nil {
			return nil, reuseErr
		}
		if result != nil {
			return result, nil
		}
	}
	// The manifest only describes a complete pair of token files.
	if err := os.Remove(pc.ManifestPath()); err != nil &&
		!errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	log.Printf("Tokenizer definition: %s", pc.EncoderId)
	encoder, err := NewEncoder(pc.EncoderId)
	if err != nil {
		return nil, err
	}

	posts, err := ReadPosts(corpusPaths, pc.Column, pc.MissingText)
	if err != nil {
		return nil, err
	}
	log.Printf("Read %s posts", humanize.Comma(int64(len(posts))))
	if pc.Sanitize {
		for idx := range posts {
			posts[idx] = SanitizeText(posts[idx])
		}
	}
	units, err := SplitUnits(posts, pc.Unit)
	if err != nil {
		return nil, err
	}
	log.Printf("Split into %s %s units", humanize.Comma(int64(len(units))),
		pc.Unit)

	trainOrder, valOrder, err := TrainTestSplit(len(units), pc.ValFraction,
		pc.Seed)
	if err != nil {
		return nil, err
	}
	result := &PrepareResult{
		TrainUnits: len(trainOrder),
		ValUnits:   len(valOrder),
	}

	if result.TrainTokens, err = encodePartition(encoder, units, trainOrder,
		pc.TrainPath(), pc.Out32); err != nil {
		return nil, err
	}
	if result.ValTokens, err = encodePartition(encoder, units, valOrder,
		pc.ValPath(), pc.Out32); err != nil {
		return nil, err
	}
	log.Printf("train has %s tokens", humanize.Comma(int64(
		result.TrainTokens)))
	log.Printf("val has %s tokens", humanize.Comma(int64(result.ValTokens)))

	if err := WriteManifest(pc.ManifestPath(), &PrepareManifest{
		Corpus:      corpusPaths,
		Settings:    pc.Settings(),
		TrainUnits:  result.TrainUnits,
		ValUnits:    result.ValUnits,
		TrainTokens: result.TrainTokens,
		ValTokens:   result.ValTokens,
	}); err != nil {
		return nil, err
	}

	if pc.BlockSize > 0 {
		if result.TrainTokens <= pc.BlockSize {
			log.Printf("WARNING: train has %d tokens, the training loop "+
				"needs more than block_size (%d)", result.TrainTokens,
				pc.BlockSize)
		}
		if result.ValTokens <= pc.BlockSize {
			log.Printf("WARNING: val has %d tokens, the training loop "+
				"needs more than block_size (%d)", result.ValTokens,
				pc.BlockSize)
		}
	}
	return result, nil
}
