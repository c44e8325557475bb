package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/wbrown/repeat_gpt"
	"github.com/wbrown/repeat_gpt/types"
)

func main() {
	inputTokenizerId := flag.String("input_tokenizer",
		repeat_gpt.DefaultEncoderId,
		"input tokenizer id [gpt2, pile, huggingface-id, tiktoken:gpt2]")
	inputFile := flag.String("input", "",
		"token file to detokenize")
	outputFile := flag.String("output", "detokenized.txt",
		"output file to write detokenized data")
	in32 := flag.Bool("in32", false, "input tokens are uint32")
	begin := flag.Int("begin", 0, "index of the first token to decode")
	count := flag.Int("count", -1, "number of tokens to decode, -1 for all")
	window := flag.Int("window", 4096, "number of tokens to decode at a time")
	flag.Parse()

	if *inputFile == "" {
		flag.Usage()
		log.Fatal("Must provide -input")
	}
	if *inputTokenizerId == "" {
		flag.Usage()
		log.Fatal("Must provide -input_tokenizer")
	}
	if *outputFile == "" {
		flag.Usage()
		log.Fatal("Must provide -output")
	}

	// check if input file exists
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist")
	}

	inputTokenizer, inputErr := repeat_gpt.NewEncoder(*inputTokenizerId)
	if inputErr != nil {
		log.Fatal(inputErr)
	}

	tokenFile, err := types.MapTokens(*inputFile, *in32)
	if err != nil {
		log.Fatal(err)
	}
	defer tokenFile.Close()
	log.Printf("%s holds %d tokens", *inputFile, tokenFile.Len())

	end := tokenFile.Len()
	if *count >= 0 && *begin+*count < end {
		end = *begin + *count
	}
	if *begin < 0 || *begin > end {
		log.Fatalf("Invalid token range [%d, %d) for %d tokens", *begin, end,
			tokenFile.Len())
	}

	outputFileHandle, err := os.Create(*outputFile)
	if err != nil {
		log.Fatal(err)
	}
	defer outputFileHandle.Close()

	text := repeat_gpt.NewDecodingReader(tokenFile, inputTokenizer, *window,
		*begin, end)
	written, err := io.Copy(outputFileHandle, text)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Decoded %d tokens into %s of text at %s", end-*begin,
		humanize.Bytes(uint64(written)), *outputFile)
}
