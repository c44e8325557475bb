package repeat_gpt

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// SplitSentences segments text into sentences. Blank text yields none.
func SplitSentences(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(
		text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false),
	)
	if err != nil {
		return nil, err
	}
	sentences := make([]string, 0)
	for _, sentence := range doc.Sentences() {
		if trimmed := strings.TrimSpace(sentence.Text); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences, nil
}
