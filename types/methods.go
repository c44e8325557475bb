package types

import (
	"encoding/binary"
	"fmt"
)

// ToBin serializes tokens as a flat little-endian array, 16-bit unless
// useUint32 is set.
func (tokens *Tokens) ToBin(useUint32 bool) (*[]byte, error) {
	if useUint32 {
		return tokens.ToBinUint32()
	}
	return tokens.ToBinUint16()
}

// ToBinUint16 fails on the first id that does not fit in 16 bits.
func (tokens *Tokens) ToBinUint16() (*[]byte, error) {
	bin := make([]byte, len(*tokens)*TokenSize)
	for idx, token := range *tokens {
		if token > MaxToken16 {
			return nil, fmt.Errorf("integer overflow: tried to write "+
				"token ID %d at index %d as unsigned 16-bit", token, idx)
		}
		binary.LittleEndian.PutUint16(bin[idx*TokenSize:], uint16(token))
	}
	return &bin, nil
}

func (tokens *Tokens) ToBinUint32() (*[]byte, error) {
	bin := make([]byte, len(*tokens)*TokenSize32)
	for idx, token := range *tokens {
		binary.LittleEndian.PutUint32(bin[idx*TokenSize32:], uint32(token))
	}
	return &bin, nil
}

// TokensFromBin reads 16-bit tokens. A trailing odd byte is ignored.
func TokensFromBin(bin *[]byte) *Tokens {
	tokens := make(Tokens, len(*bin)/TokenSize)
	for idx := range tokens {
		tokens[idx] = Token(binary.LittleEndian.Uint16((*bin)[idx*TokenSize:]))
	}
	return &tokens
}

// TokensFromBin32 reads 32-bit tokens. Trailing partial words are ignored.
func TokensFromBin32(bin *[]byte) *Tokens {
	tokens := make(Tokens, len(*bin)/TokenSize32)
	for idx := range tokens {
		tokens[idx] = Token(
			binary.LittleEndian.Uint32((*bin)[idx*TokenSize32:]))
	}
	return &tokens
}

// Max returns the largest token id, or 0 for no tokens.
func (tokens Tokens) Max() Token {
	var max Token
	for _, token := range tokens {
		if token > max {
			max = token
		}
	}
	return max
}
