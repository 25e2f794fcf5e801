package kma

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/kmaweather/kmaweather/internal/station"
)

// DecodeEUCKR converts an EUC-KR body to UTF-8.
// Bytes that do not map to a character fail the decode instead of being
// replaced, so a corrupted name never reaches the directory.
func DecodeEUCKR(b []byte) ([]byte, error) {
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", station.ErrInvalidEncoding, err)
	}
	if i := bytes.IndexRune(out, utf8.RuneError); i >= 0 {
		return nil, fmt.Errorf("%w: undecodable byte near offset %d", station.ErrInvalidEncoding, i)
	}
	return out, nil
}
