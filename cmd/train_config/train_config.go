package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/wbrown/repeat_gpt/config"
)

type stringsFlag []string

func (s *stringsFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringsFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// Prints the effective training configuration: the shipped defaults, then
// each -config file, then each -set override. Trailing `--key=value`
// arguments are treated as overrides too.
func main() {
	var configFiles stringsFlag
	var assignments stringsFlag
	flag.Var(&configFiles, "config", "config file to apply, may be repeated")
	flag.Var(&assignments, "set", "key=value override, may be repeated")
	outputFile := flag.String("output", "",
		"file to write the effective config to, stdout if empty")
	flag.Parse()
	assignments = append(assignments, flag.Args()...)

	cfg, err := config.Configure(configFiles, assignments)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("tokens per iteration will be: %s",
		humanize.Comma(int64(cfg.TokensPerIter())))

	var out io.Writer = os.Stdout
	if *outputFile != "" {
		handle, createErr := os.Create(*outputFile)
		if createErr != nil {
			log.Fatal(createErr)
		}
		defer handle.Close()
		out = handle
	}
	if writeErr := cfg.Write(out); writeErr != nil {
		log.Fatal(writeErr)
	}
}
