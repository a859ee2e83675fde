package licensing

// Fingerprint returns a short display fragment of a license key: at most the
// first eight characters and never more than half of the key, followed by an
// ellipsis. It is what goes into logs and credentials instead of the key.
func Fingerprint(key string) string {
	r := []rune(key)
	if len(r) == 0 {
		return ""
	}
	n := len(r) / 2
	if n > 8 {
		n = 8
	}
	if n == 0 {
		return "…"
	}
	return string(r[:n]) + "…"
}
