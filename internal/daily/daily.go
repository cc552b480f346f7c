// Package daily derives one shared challenge per game per UTC day and keeps
// each player's single daily entry.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the content seed for kind on t's date: HMAC(salt, kind|date).
// Everyone playing kind on the same day gets the same targets; without the
// salt the seed cannot be predicted ahead of time.
func Seed(t time.Time, salt, kind string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(kind + "|" + DateKey(t)))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// NextReset is the start of the next UTC day after t.
func NextReset(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
