//go:build unix

package ringbuffer

import (
	"log"
	"syscall"
)

// allocate backs the slab with an anonymous private mmap region. No
// MAP_POPULATE hint is passed, so pages are faulted in on first write
// rather than at allocation. Falls back to a plain heap allocation if
// the mapping fails (e.g. sandboxed environments without mmap).
func allocate(size int) []byte {
	b, err := syscall.Mmap(-1, 0, size,
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		log.Printf("ringbuffer: mmap unavailable (%v), falling back to heap allocation", err)
		return make([]byte, size)
	}
	return b
}
