package main

import (
	"flag"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/wbrown/repeat_gpt"
	"github.com/wbrown/repeat_gpt/config"
	"github.com/wbrown/repeat_gpt/resources"
)

// stringsFlag collects a repeatable string flag.
type stringsFlag []string

func (s *stringsFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringsFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	defaults := repeat_gpt.NewPrepareConfig()
	var configFiles stringsFlag
	flag.Var(&configFiles, "config",
		"training config file to take the data directory and block size "+
			"from, may be repeated")
	dataRoot := flag.String("data_root", "data",
		"root directory holding per-dataset directories, used with -config")
	source := flag.String("source", defaults.Source,
		"corpus URL, s3:// URI, CSV file, or directory of CSV files")
	dataDir := flag.String("data_dir", defaults.DataDir,
		"directory to write the corpus and token files to")
	corpusName := flag.String("corpus_name", defaults.CorpusName,
		"file name of the downloaded corpus")
	column := flag.String("column", defaults.Column,
		"CSV column holding the post text")
	missing := flag.String("missing", defaults.MissingText,
		"text to use for missing values")
	unit := flag.String("unit", string(defaults.Unit),
		"unit to split between train and validation [line, post, sentence]")
	valFraction := flag.Float64("val_fraction", defaults.ValFraction,
		"fraction of units held out for validation")
	seed := flag.String("seed", strconv.Itoa(int(defaults.Seed)),
		"seed for the train/validation shuffle")
	tokenizerId := flag.String("tokenizer", defaults.EncoderId,
		"tokenizer to use [gpt2, pile, huggingface-id, tiktoken:gpt2, "+
			"tiktoken:<encoding>]; gpt2 encodes literal <|endoftext|> "+
			"as the special token, use "+repeat_gpt.ExactParityEncoderId+
			" to encode all text as ordinary text")
	trainName := flag.String("train", defaults.TrainName,
		"train token file name")
	valName := flag.String("val", defaults.ValName,
		"validation token file name")
	out32 := flag.Bool("out32", false, "write uint32 tokens instead of uint16")
	sanitizeBool := flag.Bool("sanitize", false,
		"sanitize inputs of whitespace issues")
	forceRetokenization := flag.Bool("retokenize", false,
		"force retokenization even if tokenizer output is newer")
	blockSize := flag.Int("block_size", 0,
		"training context size to check the partitions against, 0 to skip")
	flag.Parse()

	seedValue, err := strconv.ParseUint(*seed, 10, 32)
	if err != nil {
		log.Fatal("Seed parameter must be an unsigned 32-bit integer")
	}

	pc := defaults
	pc.Source = *source
	pc.DataDir = *dataDir
	pc.CorpusName = *corpusName
	pc.Column = *column
	pc.MissingText = *missing
	pc.Unit = repeat_gpt.SplitUnit(*unit)
	pc.ValFraction = *valFraction
	pc.Seed = uint32(seedValue)
	pc.EncoderId = *tokenizerId
	pc.TrainName = *trainName
	pc.ValName = *valName
	pc.Out32 = *out32
	pc.Sanitize = *sanitizeBool
	pc.Retokenize = *forceRetokenization
	pc.BlockSize = *blockSize

	if len(configFiles) > 0 {
		cfg, cfgErr := config.Configure(configFiles, nil)
		if cfgErr != nil {
			log.Fatal(cfgErr)
		}
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		if !explicit["data_dir"] {
			pc.DataDir = cfg.DataDir(*dataRoot)
		}
		if !explicit["block_size"] {
			pc.BlockSize = cfg.BlockSize
		}
	}

	log.Printf("Tokenizer input source: %s\n", pc.Source)
	log.Printf("Tokenizer output: %s, %s\n", pc.TrainPath(), pc.ValPath())
	log.Printf("Split unit: %s, validation fraction: %g, seed: %d\n",
		pc.Unit, pc.ValFraction, pc.Seed)

	begin := time.Now()
	result, err := repeat_gpt.Prepare(pc, resources.NewFetcher())
	if err != nil {
		log.Fatal(err)
	}
	if result.Skipped {
		return
	}
	total := result.TrainTokens + result.ValTokens
	duration := time.Since(begin).Seconds()
	log.Printf("%d tokens in %0.2fs, %0.2f tokens/s", total,
		duration, float64(total)/duration)
}
