package main

import (
	"flag"
	"log"

	"github.com/wbrown/repeat_gpt/resources"
)

func main() {
	source := flag.String("source", resources.DefaultCorpusURL,
		"corpus URL, s3:// URI, CSV file, or directory of CSV files")
	destPath := flag.String("dest", "data/blog",
		"where to download the corpus to")
	name := flag.String("name", resources.DefaultCorpusName,
		"file name of the downloaded corpus")
	flag.Parse()
	if *source == "" {
		flag.Usage()
		log.Fatal("Must provide -source")
	}

	paths, rsrcErr := resources.NewFetcher().ResolveCorpus(*source,
		*destPath, *name)
	if rsrcErr != nil {
		log.Fatalf("Error downloading corpus: %s", rsrcErr)
	}
	for _, path := range paths {
		log.Printf("Corpus file: %s", path)
	}
}
