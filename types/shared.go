package types

type Token uint32
type Tokens []Token

const (
	TokenSize   = 2
	TokenSize32 = 4
	MaxToken16  = 65535
)

// TokenWidth returns the on-disk width of a token for the given format.
func TokenWidth(useUint32 bool) int {
	if useUint32 {
		return TokenSize32
	}
	return TokenSize
}
