package adapter

import "strings"

// Str64 stores a short credential without keeping a heap string around.
type Str64 [64]byte

// FitsStr64 reports whether s survives NewStr64 unchanged: at most 64 bytes
// and no NUL byte.
func FitsStr64(s string) bool {
	return len(s) <= len(Str64{}) && !strings.ContainsRune(s, 0)
}

func NewStr64(s string) Str64 {
	var k Str64
	copy(k[:], s)
	return k
}

func (bs Str64) AppendBytes(buf []byte) []byte {
	for i := range bs {
		if bs[i] != 0 {
			buf = append(buf, bs[i])
		}
	}
	return buf
}

func (bs Str64) String() string {
	return string(bs.AppendBytes(make([]byte, 0, len(bs))))
}

func (bs Str64) IsZero() bool {
	return bs == Str64{}
}

// Token represents a venue API key pair.
type Token struct {
	Key    Str64
	Secret Str64
}

// NewToken creates a API token
func NewToken(key, secret string) Token {
	return Token{
		Key:    NewStr64(key),
		Secret: NewStr64(secret),
	}
}

// IsZero reports whether either half of the pair is missing.
func (t Token) IsZero() bool {
	return t.Key.IsZero() || t.Secret.IsZero()
}

// Masked returns the key with everything but the last four characters hidden.
func (t Token) Masked() string {
	key := t.Key.String()
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
