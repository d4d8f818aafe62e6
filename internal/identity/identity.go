// Package identity derives the pseudo-identity component of rate-limit
// bucket keys. The fingerprint is a fast, non-cryptographic 32-bit hash of
// environment attributes: collisions are acceptable, its only job is to
// bias buckets toward "this device" without cookies or accounts. It must
// never be treated as an authentication primitive.
package identity

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Attributes are the pre-authentication environment signals folded into
// the fingerprint. Browser callers pass what they observe; server-side
// callers can use SystemAttributes.
type Attributes struct {
	UserAgent      string
	Language       string
	ColorDepth     int
	ScreenWidth    int
	ScreenHeight   int
	TimezoneOffset int // minutes from UTC
}

// SystemAttributes builds a best-effort attribute set for non-browser
// callers from the host environment. Stable within a session, which is
// all the fingerprint contract requires.
func SystemAttributes() Attributes {
	host, _ := os.Hostname()
	_, tzSecs := time.Now().Zone()

	lang := os.Getenv("LANG")
	if lang == "" {
		lang = "en"
	}

	return Attributes{
		UserAgent:      runtime.GOOS + "/" + runtime.GOARCH + " " + host,
		Language:       lang,
		TimezoneOffset: tzSecs / 60,
	}
}

// Fingerprint reduces the attributes to a base-36 rendering of a 32-bit
// rolling hash.
func Fingerprint(a Attributes) string {
	var b strings.Builder
	b.WriteString(a.UserAgent)
	b.WriteString(a.Language)
	b.WriteString(strconv.Itoa(a.ColorDepth))
	b.WriteString(strconv.Itoa(a.ScreenWidth))
	b.WriteString(strconv.Itoa(a.ScreenHeight))
	b.WriteString(strconv.Itoa(a.TimezoneOffset))

	return strconv.FormatUint(uint64(hash(b.String())), 36)
}

// Identifier returns the bucket key component for a caller. With an email
// it is hash(lowercased email) + "_" + fingerprint, limiting the same
// device per-account; without one the fingerprint alone limits per-device.
func Identifier(a Attributes, email string) string {
	if email == "" {
		return Fingerprint(a)
	}

	mailHash := strconv.FormatUint(uint64(hash(strings.ToLower(email))), 36)
	return mailHash + "_" + Fingerprint(a)
}

// hash is the multiply-and-subtract accumulator masked to 32 bits:
// h = h*31 + c, where h*31 is computed as (h<<5)-h.
func hash(s string) uint32 {
	var h uint32
	for _, c := range s {
		h = (h << 5) - h + uint32(c)
	}
	return h
}
