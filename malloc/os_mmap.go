//go:build linux || darwin || freebsd

package malloc

import "golang.org/x/sys/unix"

// osmap obtain `size` bytes of zeroed, page aligned, anonymous memory.
func osmap(size int64) ([]byte, error) {
	prot, flags := unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE
	return unix.Mmap(-1, 0, int(size), prot, flags)
}

func osunmap(block []byte) error {
	if block == nil {
		return nil
	}
	err := unix.Munmap(block)
	if err == unix.EINVAL { // double unmap
		return nil
	}
	return err
}
