package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBinUint16LittleEndian(t *testing.T) {
	tokens := Tokens{1, 256, 50256}
	bin, err := tokens.ToBin(false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x01, 0x50, 0xc4}, *bin)
	assert.Equal(t, tokens, *TokensFromBin(bin))
}

func TestToBinUint16Overflow(t *testing.T) {
	tokens := Tokens{10, 65536}
	_, err := tokens.ToBin(false)
	assert.Error(t, err)

	bin, err := tokens.ToBin(true)
	require.NoError(t, err)
	assert.Len(t, *bin, 8)
	assert.Equal(t, tokens, *TokensFromBin32(bin))
}

func TestTokensFromBinIgnoresTrailingByte(t *testing.T) {
	bin := []byte{0x02, 0x00, 0x07}
	assert.Equal(t, Tokens{2}, *TokensFromBin(&bin))
}

func TestMax(t *testing.T) {
	assert.Equal(t, Token(0), Tokens{}.Max())
	assert.Equal(t, Token(50256), Tokens{3, 50256, 198}.Max())
}

func TestToBinUint32LittleEndian(t *testing.T) {
	tokens := Tokens{1, 70000}
	bin, err := tokens.ToBinUint32()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00, 0x70, 0x11, 0x01, 0x00},
		*bin)

	partial := append(*bin, 0x05, 0x06)
	assert.Equal(t, tokens, *TokensFromBin32(&partial))
}

func TestToBinOverflowReportsIndex(t *testing.T) {
	tokens := Tokens{MaxToken16, 0, MaxToken16 + 1}
	_, err := tokens.ToBinUint16()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 2")
}

func TestToBinRoundTripLarge(t *testing.T) {
	tokens := make(Tokens, 100000)
	for idx := range tokens {
		tokens[idx] = Token(idx % (MaxToken16 + 1))
	}
	bin, err := tokens.ToBin(false)
	require.NoError(t, err)
	assert.Len(t, *bin, len(tokens)*TokenSize)
	assert.Equal(t, tokens, *TokensFromBin(bin))

	bin, err = tokens.ToBin(true)
	require.NoError(t, err)
	assert.Len(t, *bin, len(tokens)*TokenSize32)
	assert.Equal(t, tokens, *TokensFromBin32(bin))
}

func TestEmptyBin(t *testing.T) {
	empty := Tokens{}
	bin, err := empty.ToBin(false)
	require.NoError(t, err)
	assert.Empty(t, *bin)
	assert.Empty(t, *TokensFromBin(bin))
}

func writeTokens(t *testing.T, tokens Tokens, useUint32 bool) string {
	bin, err := tokens.ToBin(useUint32)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tokens.bin")
	require.NoError(t, os.WriteFile(path, *bin, 0644))
	return path
}

func TestMapTokens(t *testing.T) {
	for _, use32 := range []bool{false, true} {
		tokens := Tokens{15496, 995, 198, 40, 1101}
		path := writeTokens(t, tokens, use32)

		tf, err := MapTokens(path, use32)
		require.NoError(t, err)
		assert.Equal(t, len(tokens), tf.Len())
		assert.Equal(t, Token(995), tf.At(1))

		window, err := tf.Slice(1, 3)
		require.NoError(t, err)
		assert.Equal(t, Tokens{995, 198}, window)

		tail, err := tf.Slice(3, 100)
		require.NoError(t, err)
		assert.Equal(t, Tokens{40, 1101}, tail)

		_, err = tf.Slice(4, 2)
		assert.Error(t, err)
		assert.NoError(t, tf.Close())
	}
}

func TestMapTokensEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	tf, err := MapTokens(path, false)
	require.NoError(t, err)
	assert.Equal(t, 0, tf.Len())
	assert.NoError(t, tf.Close())
}

func TestMapTokensMisaligned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0644))
	_, err := MapTokens(path, false)
	assert.Error(t, err)
}
