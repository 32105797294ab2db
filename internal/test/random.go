package test

import "math/rand/v2"

const (
	asciiLetters    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderIDLength   = 17
)

// RandomASCIIString returns a pseudo-random alphanumeric string with length in [minLen, maxLen].
func RandomASCIIString(minLen, maxLen int) string {
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	return randomFrom(asciiLetters, minLen+rand.IntN(maxLen-minLen+1))
}

// RandomOrderID returns an identifier shaped like a processor order id.
func RandomOrderID() string {
	return randomFrom(orderIDAlphabet, orderIDLength)
}

func randomFrom(alphabet string, length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(buf)
}
