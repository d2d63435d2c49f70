package core

// streaming.go prepares raw upload bytes for the text-based normalizers.
//
// Two transforms are applied in order:
//
//   - BOM handling: a UTF-8 BOM is dropped and UTF-16 (LE/BE) input carrying a
//     BOM is transcoded to UTF-8. Input without a BOM passes through untouched.
//   - UTF-8 sanitization: invalid byte sequences are replaced with '?' so the
//     CSV reader and line splitter never see broken runes.

import (
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader wraps r with BOM-aware decoding and UTF-8 sanitization.
func NewTextReader(r io.Reader) io.Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	return NewUTF8Sanitizer(decoded)
}

// UTF8Sanitizer replaces invalid UTF-8 sequences with '?' while streaming.
// A multi-byte rune split across two reads is carried over to the next call.
type UTF8Sanitizer struct {
	reader  io.Reader
	pending []byte
}

// NewUTF8Sanitizer creates a streaming sanitizer over r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of bytes ready for
// the caller. Unless atEOF, an incomplete trailing rune is held back.
func (s *UTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		b := data[read]
		if b < utf8.RuneSelf {
			data[write] = b
			write++
			read++
			continue
		}

		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}
