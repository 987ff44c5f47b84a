// Package security provides secure random generation utilities
package security

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// GenerateULID generates a new ULID string.
func GenerateULID() string {
	return ulid.Make().String()
}

// GeneratePrefixedID returns prefix + base36 randomness + base36 millisecond timestamp,
// e.g. "vis_k3j9x0a2mq_lw1x9c2h". It never fails: if the system source of randomness is
// unavailable the randomness is derived from the monotonic clock instead.
func GeneratePrefixedID(prefix string, now time.Time) string {
	var buf [8]byte
	var random uint64
	if _, err := rand.Read(buf[:]); err == nil {
		random = binary.BigEndian.Uint64(buf[:])
	} else {
		random = uint64(time.Now().UnixNano()) * 2654435761
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(strconv.FormatUint(random, 36))
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	return b.String()
}
