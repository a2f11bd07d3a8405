// Package secure provides memory-safe handling of file-sourced secret
// material. It wraps memguard so that raw file bytes are wiped after the
// trimmed value is copied out, and plaintext never lingers in reusable
// buffers.
package secure

import (
	"os"
	"strings"

	"github.com/awnumar/memguard"
)

// Buffer holds sensitive bytes in guarded memory.
type Buffer struct {
	inner *memguard.LockedBuffer
}

// NewBuffer takes ownership of data and wipes the original slice.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{inner: memguard.NewBufferFromBytes(data)}
}

// String copies the guarded bytes out as a string.
func (b *Buffer) String() string {
	if b.inner == nil || !b.inner.IsAlive() {
		return ""
	}
	return string(b.inner.Bytes())
}

// Destroy wipes and releases the guarded memory. Safe to call twice.
func (b *Buffer) Destroy() {
	if b.inner != nil {
		b.inner.Destroy()
	}
}

// ReadFile reads a secret file through a guarded buffer and returns its
// content with surrounding whitespace trimmed.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	// memguard rejects zero-length buffers.
	if len(data) == 0 {
		return "", nil
	}

	buf := NewBuffer(data)
	defer buf.Destroy()

	return strings.TrimSpace(buf.String()), nil
}
