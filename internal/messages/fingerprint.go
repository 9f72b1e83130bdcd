package messages

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Fingerprint produces a deterministic id for an inbound message, stable
// under retransmission of the same (sender, timestamp, text) triple. A
// collision is indistinguishable from a true duplicate; that approximation
// is accepted.
func Fingerprint(sender string, timestamp time.Time, text string) string {
	h := sha256.New()
	h.Write([]byte(sender))
	h.Write([]byte{':'})
	h.Write([]byte(timestamp.UTC().Format(time.RFC3339)))
	h.Write([]byte{':'})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
