// Package codec is the bitstring codec adapter: it wraps a gzip+base64
// encoded bit array behind the createList/encodeList/decodeList/setStatus
// contract the Allocator and Updater are written against, so a different
// codec implementation could be swapped in without touching either.
//
// Grounded on internal/statuslist/bitstring.go's BitString type from the
// teacher repo; the encode/decode and bit-twiddling logic is carried over
// essentially unchanged, renamed to the adapter's narrower contract.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"io"

	"github.com/ParichayaHQ/credence/internal/merrors"
)

const op = "codec"

// DefaultCompressionLevel matches gzip.DefaultCompression, the level
// EncodeList uses every time a status credential is re-encoded.
const DefaultCompressionLevel = gzip.DefaultCompression

// List is an in-memory bitstring: bit i encodes the status of whichever
// credential was assigned status-list index i.
type List struct {
	bits   []byte
	length int
}

// CreateList allocates a new all-zero (all-valid) list of the given
// bit length.
func CreateList(length int) *List {
	if length <= 0 {
		length = 1
	}
	numBytes := (length + 7) / 8
	return &List{
		bits:   make([]byte, numBytes),
		length: length,
	}
}

// EncodeList gzip-compresses and base64-encodes a list, per the
// BitstringStatusList encoding rule.
func EncodeList(list *List) (string, error) {
	if list == nil || len(list.bits) == 0 || list.length == 0 {
		return "", nil
	}

	var compressed bytes.Buffer
	writer, err := gzip.NewWriterLevel(&compressed, DefaultCompressionLevel)
	if err != nil {
		return "", merrors.Wrap(merrors.KindInternalServer, op, "failed to create gzip writer", err)
	}
	if _, err := writer.Write(list.bits); err != nil {
		writer.Close()
		return "", merrors.Wrap(merrors.KindInternalServer, op, "failed to compress bitstring", err)
	}
	if err := writer.Close(); err != nil {
		return "", merrors.Wrap(merrors.KindInternalServer, op, "failed to close gzip writer", err)
	}

	return base64.StdEncoding.EncodeToString(compressed.Bytes()), nil
}

// DecodeList reverses EncodeList. The decoded bit length is the decoded
// byte length times 8: the wire format does not separately carry the
// original bit count, matching the teacher's FromCompressedBase64.
func DecodeList(encoded string) (*List, error) {
	if encoded == "" {
		return &List{bits: []byte{}, length: 0}, nil
	}

	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindInternalServer, op, "failed to base64-decode encoded list", err)
	}

	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, merrors.Wrap(merrors.KindInternalServer, op, "failed to open gzip reader", err)
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindInternalServer, op, "failed to decompress list", err)
	}

	return &List{bits: decompressed, length: len(decompressed) * 8}, nil
}

// SetStatus sets the bit at index to value, expanding the list if index
// falls beyond its current length.
func (l *List) SetStatus(index int, value bool) error {
	if index < 0 {
		return merrors.New(merrors.KindBadRequest, op, "status list index cannot be negative")
	}
	if index >= l.length {
		l.expand(index + 1)
	}

	byteIndex := index / 8
	bitIndex := uint(index % 8)
	if value {
		l.bits[byteIndex] |= 1 << bitIndex
	} else {
		l.bits[byteIndex] &^= 1 << bitIndex
	}
	return nil
}

// GetStatus reads the bit at index; an out-of-range read returns false,
// matching the all-zero (valid) default a freshly created list carries.
func (l *List) GetStatus(index int) (bool, error) {
	if index < 0 {
		return false, merrors.New(merrors.KindBadRequest, op, "status list index cannot be negative")
	}
	if index >= l.length {
		return false, nil
	}
	byteIndex := index / 8
	bitIndex := uint(index % 8)
	return (l.bits[byteIndex] & (1 << bitIndex)) != 0, nil
}

// Length returns the list's bit length.
func (l *List) Length() int {
	return l.length
}

func (l *List) expand(newLength int) {
	if newLength <= l.length {
		return
	}
	newNumBytes := (newLength + 7) / 8
	if newNumBytes > len(l.bits) {
		newBits := make([]byte, newNumBytes)
		copy(newBits, l.bits)
		l.bits = newBits
	}
	l.length = newLength
}
