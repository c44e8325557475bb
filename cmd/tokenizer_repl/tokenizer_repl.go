package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/wbrown/repeat_gpt"
	"github.com/wbrown/repeat_gpt/types"
)

// A REPL for checking how the blog corpus tokenizer splits text.

func main() {
	// Command line switch for selecting the tokenizer to use.
	tokenizerOpt := flag.String("tokenizer",
		repeat_gpt.DefaultEncoderId,
		"The tokenizer to use.")

	flag.Parse()

	tokenizer, err := repeat_gpt.NewEncoder(*tokenizerOpt)
	if err != nil {
		log.Fatal(err)
	}

	reader := bufio.NewReader(os.Stdin)
	// Provide a REPL
	for {
		fmt.Print(">>> ")
		input, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return
		} else if err != nil {
			log.Fatal(err)
		}
		// Remove trailing newline and replace \n with newline.
		input = strings.Replace(strings.TrimSuffix(input, "\n"), "\\n", "\n",
			-1)

		tokens, err := repeat_gpt.EncodeString(tokenizer, input)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%v\n", tokens)
		for _, token := range tokens {
			fmt.Printf("|%s", tokenizer.Decode(&types.Tokens{token}))
		}
		fmt.Printf("\n")
	}
}
