//go:build !linux && !darwin && !freebsd

package malloc

// osmap fall back to golang heap when anonymous mapping is not available.
func osmap(size int64) ([]byte, error) {
	return make([]byte, size), nil
}

func osunmap(block []byte) error {
	return nil
}
