//go:build !unix

package ringbuffer

// allocate on non-unix platforms is a plain heap allocation; there is no
// portable populate-hint mmap API to reach for there.
func allocate(size int) []byte {
	return make([]byte, size)
}
