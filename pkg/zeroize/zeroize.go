// Package zeroize holds plaintext secrets behind an accessor that wipes its
// backing storage once it is no longer needed.
package zeroize

// Secret is a plaintext value that must not outlive the statement that
// reveals it. Go has no deterministic destructors, so callers must invoke
// Close (directly or via Reveal) once the value is no longer needed; until
// then the bytes sit in a single buffer that Close overwrites in place.
type Secret struct {
	buf []byte
}

// New wraps plaintext in a Secret. The caller's copy of plaintext is not
// itself wiped — callers should avoid retaining a second reference.
func New(plaintext string) *Secret {
	return &Secret{buf: []byte(plaintext)}
}

// Reveal invokes fn with the plaintext and wipes the backing buffer
// immediately afterward, regardless of whether fn panics.
func (s *Secret) Reveal(fn func(plaintext string)) {
	defer s.Close()
	fn(string(s.buf))
}

// String returns the plaintext. Prefer Reveal where possible; String exists
// for call sites (building an environment block, writing a .env file) that
// must hand the value to an API taking a string and cannot scope the wipe
// around a closure.
func (s *Secret) String() string {
	return string(s.buf)
}

// Close overwrites the backing buffer with zero bytes. Safe to call more
// than once.
func (s *Secret) Close() {
	for i := range s.buf {
		s.buf[i] = 0
	}
	s.buf = s.buf[:0]
}
