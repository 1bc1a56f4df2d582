package server

import (
	"crypto/rand"
	"time"
)

// Join codes use a confusable-free alphabet: four letters followed by
// two digits, no I/L/O/0/1.
func newJoinCode() string {
	const letters = "ABCDEFGHJKMNPQRSTUVWXYZ"
	const digits = "23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "AAAA22"
	}
	for i := 0; i < 4; i++ {
		buf[i] = letters[int(buf[i])%len(letters)]
	}
	for i := 4; i < 6; i++ {
		buf[i] = digits[int(buf[i])%len(digits)]
	}
	return string(buf)
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
