package repeat_gpt

import (
	"io"
	"unicode/utf8"

	"github.com/wbrown/repeat_gpt/types"
)

// maxCarryTokens bounds how many trailing tokens are held back when a
// window ends inside a character. A UTF-8 sequence spans at most 4 bytes,
// and byte-level BPE tokens each carry at least one of them.
const maxCarryTokens = 4

// TokenSource is a random-access run of tokens, such as a mapped token file.
type TokenSource interface {
	Len() int
	Slice(begin, end int) (types.Tokens, error)
}

// DecodingReader presents a TokenSource as the text it decodes to. Tokens
// are decoded a window at a time; when a window ends in an incomplete
// character its trailing tokens are carried into the next window.
type DecodingReader struct {
	source  TokenSource
	encoder Encoder
	window  int
	idx     int
	end     int
	carry   types.Tokens
	pending []byte
}

// NewDecodingReader decodes tokens [begin, end) of source in windows of
// window tokens. An end past the source length is clamped.
func NewDecodingReader(source TokenSource, encoder Encoder, window int,
	begin int, end int) *DecodingReader {
	if window < 1 {
		window = 1
	}
	if end > source.Len() {
		end = source.Len()
	}
	return &DecodingReader{
		source:  source,
		encoder: encoder,
		window:  window,
		idx:     begin,
		end:     end,
	}
}

func (r *DecodingReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if r.idx >= r.end && len(r.carry) == 0 {
			return 0, io.EOF
		}
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *DecodingReader) fill() error {
	windowEnd := r.idx + r.window
	if windowEnd > r.end {
		windowEnd = r.end
	}
	next, err := r.source.Slice(r.idx, windowEnd)
	if err != nil {
		return err
	}
	r.idx = windowEnd
	tokens := make(types.Tokens, 0, len(r.carry)+len(next))
	tokens = append(append(tokens, r.carry...), next...)
	r.carry = nil

	text := r.encoder.Decode(&tokens)
	if r.idx < r.end && endsIncomplete(text) {
		text, r.carry = r.holdBack(tokens)
		if len(r.carry) == 0 {
			// No prefix decodes cleanly, so the replacement is genuine.
			text = r.encoder.Decode(&tokens)
		}
	}
	r.pending = []byte(text)
	return nil
}

// holdBack finds the shortest token suffix whose removal leaves text that
// ends on a complete character.
func (r *DecodingReader) holdBack(tokens types.Tokens) (string,
	types.Tokens) {
	for held := 1; held <= maxCarryTokens && held <= len(tokens); held++ {
		prefix := tokens[:len(tokens)-held]
		text := r.encoder.Decode(&prefix)
		if !endsIncomplete(text) {
			carry := make(types.Tokens, held)
			copy(carry, tokens[len(tokens)-held:])
			return text, carry
		}
	}
	return "", nil
}

// endsIncomplete reports whether text ends in a replacement character or a
// truncated UTF-8 sequence.
func endsIncomplete(text string) bool {
	if len(text) == 0 {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	return last == utf8.RuneError
}
