package repeat_gpt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/wbrown/gpt_bpe"
	"github.com/wbrown/repeat_gpt/types"
)

const (
	DefaultEncoderId = "gpt2"
	TiktokenPrefix   = "tiktoken:"
	RUNEBUF_SZ       = 8 * 1024 * 1024
	ENCODE_CHUNK_SZ  = 16384
)

// ExactParityEncoderId encodes special token text, like `<|endoftext|>`, as
// ordinary text. The gpt_bpe encoders map it to the special token id.
const ExactParityEncoderId = TiktokenPrefix + "gpt2"

// TokensIterator returns the next chunk of tokens, or nil once the input is
// exhausted.
type TokensIterator func() *types.Tokens

// Encoder is a byte-pair encoding tokenizer.
type Encoder interface {
	StreamingEncode(reader io.Reader) (TokensIterator, error)
	Decode(tokens *types.Tokens) string
	Name() string
}

var encoders = make(map[string]Encoder)
var encodersMtx sync.Mutex

// NewEncoder
// Resolves an encoder id. Ids prefixed with `tiktoken:` name a tiktoken
// encoding, everything else is a gpt_bpe vocabulary id. Encoders are cached
// per id.
func NewEncoder(id string) (Encoder, error) {
	encodersMtx.Lock()
	defer encodersMtx.Unlock()
	if encoder, ok := encoders[id]; ok {
		return encoder, nil
	}
	var encoder Encoder
	var err error
	if strings.HasPrefix(id, TiktokenPrefix) {
		encoder, err = newTiktokenEncoder(strings.TrimPrefix(id,
			TiktokenPrefix))
	} else {
		encoder, err = newGPTBpeEncoder(id)
	}
	if err != nil {
		return nil, err
	}
	encoders[id] = encoder
	return encoder, nil
}

// EncodeString tokenizes text in full.
func EncodeString(encoder Encoder, text string) (types.Tokens, error) {
	nextTokens, err := encoder.StreamingEncode(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	encoded := make(types.Tokens, 0, len(text)/4)
	for {
		tokens := nextTokens()
		if tokens == nil {
			break
		}
		encoded = append(encoded, *tokens...)
	}
	return encoded, nil
}

type gptBpeEncoder struct {
	id      string
	encoder *gpt_bpe.GPTEncoder
}

func newGPTBpeEncoder(id string) (*gptBpeEncoder, error) {
	// Check if it's an embedded vocabulary. If not, it's a path or a
	// HuggingFace id.
	encoder, err := gpt_bpe.NewEncoder(id + "-tokenizer")
	if err != nil {
		encoder, err = gpt_bpe.NewEncoder(id)
		if err != nil {
			return nil, fmt.Errorf("cannot load tokenizer %s: %w", id, err)
		}
	}
	return &gptBpeEncoder{id: id, encoder: encoder}, nil
}

func (enc *gptBpeEncoder) StreamingEncode(reader io.Reader) (TokensIterator,
	error) {
	encodeChunk := enc.encoder.StreamingEncode(bufio.NewReaderSize(reader,
		RUNEBUF_SZ))
	return func() *types.Tokens {
		chunk := encodeChunk(ENCODE_CHUNK_SZ)
		if chunk == nil {
			return nil
		}
		tokens := make(types.Tokens, len(*chunk))
		for idx, token := range *chunk {
			tokens[idx] = types.Token(token)
		}
		return &tokens
	}, nil
}

func (enc *gptBpeEncoder) Decode(tokens *types.Tokens) string {
	bpeTokens := make(gpt_bpe.Tokens, len(*tokens))
	for idx, token := range *tokens {
		bpeTokens[idx] = gpt_bpe.Token(token)
	}
	return enc.encoder.Decode(&bpeTokens)
}

func (enc *gptBpeEncoder) Name() string {
	return enc.id
}

// tiktokenEncoder encodes ordinary text only: special token strings in the
// input are tokenized like any other text.
type tiktokenEncoder struct {
	encoding string
	bpe      *tiktoken.Tiktoken
}

func newTiktokenEncoder(encoding string) (*tiktokenEncoder, error) {
	resolved := encoding
	// tiktoken's `gpt2` encoding shares its ranks with r50k_base.
	if encoding == "gpt2" {
		resolved = "r50k_base"
	}
	bpe, err := tiktoken.GetEncoding(resolved)
	if err != nil {
		return nil, fmt.Errorf("cannot load tiktoken encoding %s: %w",
			encoding, err)
	}
	return &tiktokenEncoder{encoding: encoding, bpe: bpe}, nil
}

func (enc *tiktokenEncoder) StreamingEncode(reader io.Reader) (
	TokensIterator, error) {
	text, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	ids := enc.bpe.EncodeOrdinary(string(text))
	idx := 0
	return func() *types.Tokens {
		if idx >= len(ids) {
			return nil
		}
		end := idx + ENCODE_CHUNK_SZ
		if end > len(ids) {
			end = len(ids)
		}
		tokens := make(types.Tokens, 0, end-idx)
		for _, id := range ids[idx:end] {
			tokens = append(tokens, types.Token(id))
		}
		idx = end
		return &tokens
	}, nil
}

func (enc *tiktokenEncoder) Decode(tokens *types.Tokens) string {
	ids := make([]int, len(*tokens))
	for idx, token := range *tokens {
		ids[idx] = int(token)
	}
	return enc.bpe.Decode(ids)
}

func (enc *tiktokenEncoder) Name() string {
	return TiktokenPrefix + enc.encoding
}
