package types

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// TokenFile is a read-only memory mapped view over a flat token binary.
type TokenFile struct {
	file      *os.File
	data      mmap.MMap
	useUint32 bool
	width     int
}

// MapTokens maps the token file at path. Empty files are valid and have no
// tokens.
func MapTokens(path string, useUint32 bool) (*TokenFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	width := TokenWidth(useUint32)
	if stat.Size()%int64(width) != 0 {
		file.Close()
		return nil, fmt.Errorf("%s: size %d is not a multiple of the "+
			"%d byte token width", path, stat.Size(), width)
	}
	tokenFile := &TokenFile{
		file:      file,
		useUint32: useUint32,
		width:     width,
	}
	// mmap refuses zero length mappings.
	if stat.Size() == 0 {
		return tokenFile, nil
	}
	data, mmapErr := mmap.Map(file, mmap.RDONLY, 0)
	if mmapErr != nil {
		file.Close()
		return nil, fmt.Errorf("error trying to mmap %s: %w", path, mmapErr)
	}
	tokenFile.data = data
	return tokenFile, nil
}

func (tf *TokenFile) Len() int {
	return len(tf.data) / tf.width
}

func (tf *TokenFile) At(idx int) Token {
	offset := idx * tf.width
	if tf.useUint32 {
		return Token(binary.LittleEndian.Uint32(tf.data[offset:]))
	}
	return Token(binary.LittleEndian.Uint16(tf.data[offset:]))
}

// Slice copies tokens [begin, end) out of the mapping, clamping end to the
// file length.
func (tf *TokenFile) Slice(begin, end int) (Tokens, error) {
	if end > tf.Len() {
		end = tf.Len()
	}
	if begin < 0 || begin > end {
		return nil, fmt.Errorf("invalid token range [%d, %d) for %d tokens",
			begin, end, tf.Len())
	}
	tokens := make(Tokens, 0, end-begin)
	for idx := begin; idx < end; idx++ {
		tokens = append(tokens, tf.At(idx))
	}
	return tokens, nil
}

func (tf *TokenFile) Close() error {
	if tf.data != nil {
		if err := tf.data.Unmap(); err != nil {
			tf.file.Close()
			return err
		}
		tf.data = nil
	}
	return tf.file.Close()
}
