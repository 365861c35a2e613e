package signals

import (
	dErrors "veritas/pkg/domain-errors"
)

// HammingDistance counts differing positions between two equal-length hash
// strings. Symmetric, and always in [0, len].
func HammingDistance(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "hash length mismatch")
	}
	distance := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			distance++
		}
	}
	return distance, nil
}
