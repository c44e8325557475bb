package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/wbrown/repeat_gpt"
	"github.com/wbrown/repeat_gpt/types"
)

// Rewrites a token file with a different tokenizer, token width, or both.
// The input is decoded in contexts of -context_size tokens and each
// context is re-encoded with the output tokenizer.
func main() {
	inputTokenizerId := flag.String("input_tokenizer",
		repeat_gpt.DefaultEncoderId,
		"input tokenizer id [gpt2, pile, huggingface-id, tiktoken:gpt2]")
	outputTokenizerId := flag.String("output_tokenizer",
		repeat_gpt.DefaultEncoderId,
		"output tokenizer id [gpt2, pile, huggingface-id, tiktoken:gpt2]")
	contextSize := flag.Int("context_size", 2048,
		"number of tokens to decode at a time")
	in32 := flag.Bool("in32", false,
		"force input tokens to be read as 32-bit")
	out32 := flag.Bool("out32", false,
		"force output tokens to be written as 32-bit")
	inputFile := flag.String("input", "",
		"input file to retokenize")
	outputFile := flag.String("output", "retokenized.bin",
		"output file to write retokenized data")
	flag.Parse()
	if *inputFile == "" {
		flag.Usage()
		log.Fatal("Must provide -input")
	}
	if *contextSize < 1 {
		flag.Usage()
		log.Fatal("Context size must be greater than 0")
	}
	// check if the transformation would be a no-op
	if *inputTokenizerId == *outputTokenizerId && *in32 == *out32 {
		log.Fatal("Input and output tokenizers or widths must be different")
	}
	// check if input and output files are the same
	if *inputFile == *outputFile {
		log.Fatal("Input and output files must be different")
	}
	// check if input file exists
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist")
	}

	inputTokenizer, inputErr := repeat_gpt.NewEncoder(*inputTokenizerId)
	if inputErr != nil {
		log.Fatal(inputErr)
	}
	outputTokenizer, outputErr := repeat_gpt.NewEncoder(*outputTokenizerId)
	if outputErr != nil {
		log.Fatal(outputErr)
	}

	tokenFile, mapErr := types.MapTokens(*inputFile, *in32)
	if mapErr != nil {
		log.Fatal(mapErr)
	}
	defer tokenFile.Close()

	begin := time.Now()
	var nextTokens repeat_gpt.TokensIterator
	if *inputTokenizerId == *outputTokenizerId {
		// Only the width changes, so the ids are copied as-is.
		idx := 0
		nextTokens = func() *types.Tokens {
			if idx >= tokenFile.Len() {
				return nil
			}
			tokens, _ := tokenFile.Slice(idx, idx+*contextSize)
			if !*out32 && tokens.Max() > types.MaxToken16 {
				log.Fatalf("Token id %d at or after %d does not fit in "+
					"16 bits, use -out32", tokens.Max(), idx)
			}
			idx += *contextSize
			return &tokens
		}
	} else {
		text := repeat_gpt.NewDecodingReader(tokenFile, inputTokenizer,
			*contextSize, 0, tokenFile.Len())
		var encodeErr error
		nextTokens, encodeErr = outputTokenizer.StreamingEncode(text)
		if encodeErr != nil {
			log.Fatal(encodeErr)
		}
	}
	total, writeErr := repeat_gpt.WriteTokens(*outputFile, nextTokens, *out32)
	if writeErr != nil {
		log.Fatal(writeErr)
	}
	duration := time.Since(begin).Seconds()
	log.Printf("%d tokens in, %d tokens out in %0.2fs, %0.2f tokens/s",
		tokenFile.Len(), total, duration, float64(total)/duration)
}

