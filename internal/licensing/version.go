package licensing

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultClientVersion is assumed when a client sends no version or one that
// does not parse.
const DefaultClientVersion = "1.0"

// MaxClientVersionLen bounds what ClientVersion tries to parse. Longer input
// is treated as malformed.
const MaxClientVersionLen = 64

// Version is a dot-separated tuple of non-negative integers. Missing trailing
// components compare as zero, so "1.2" == "1.2.0".
type Version []uint64

// ParseVersion parses "1", "1.2", "1.10.0" and so on. A single leading "v" is
// tolerated. Anything else (empty parts, signs, suffixes like "-beta") is an
// error.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return nil, fmt.Errorf("version: empty")
	}
	parts := strings.Split(s, ".")
	out := make(Version, 0, len(parts))
	for _, p := range parts {
		if p == "" || strings.IndexFunc(p, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return nil, fmt.Errorf("version: invalid component %q in %q", p, s)
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("version: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// ClientVersion parses a client supplied version, falling back to
// DefaultClientVersion when it is missing, malformed or longer than
// MaxClientVersionLen. Never fails.
func ClientVersion(s string) Version {
	if len(s) <= MaxClientVersionLen {
		if v, err := ParseVersion(s); err == nil {
			return v
		}
	}
	v, _ := ParseVersion(DefaultClientVersion)
	return v
}

// Compare returns -1, 0 or +1 comparing a and b over zero padded tuples.
func Compare(a, b Version) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y uint64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(parts, ".")
}
