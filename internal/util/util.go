// Package util holds small helpers shared across the console.
package util

// MaskKey obscures a secret for logging, keeping only a short prefix and
// suffix visible.
func MaskKey(key string) string {
	switch {
	case len(key) > 8:
		return key[:4] + "..." + key[len(key)-4:]
	case len(key) > 4:
		return key[:2] + "..." + key[len(key)-2:]
	case len(key) > 2:
		return key[:1] + "..." + key[len(key)-1:]
	}
	return key
}
