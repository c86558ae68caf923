package util

import (
	"fmt"
	"math/rand"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString generates a random alphanumeric string of the given length.
func RandomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}

// RandomUserID generates a plausible user ID for tests and seeds.
func RandomUserID() string {
	return fmt.Sprintf("u_%s", RandomString(12))
}
