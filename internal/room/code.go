package room

import "crypto/rand"

// codeAlphabet deliberately omits 0/O and 1/I so codes read aloud survive
// bad handwriting and worse speakers.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// newAccessCode returns a random 6-character room code.
func newAccessCode() string {
	buf := make([]byte, codeLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
