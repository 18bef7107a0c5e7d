package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	// ErrTruncated is returned when the stream ends inside a record.
	ErrTruncated = errors.New("truncated metric record")

	// ErrBadMagic is returned when a record does not start with Magic.
	ErrBadMagic = errors.New("invalid metric record magic")

	// ErrUnsupportedVersion is returned for files written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported metric format version")
)

// Reader decodes records sequentially.
type Reader struct {
	r       *bufio.Reader
	version int
	offset  int64
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Version returns the format version announced by the stream, or 0 if no
// header record has been seen yet.
func (r *Reader) Version() int {
	return r.version
}

// Offset returns the number of bytes consumed by complete records.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next returns the next metric record. Version records are consumed
// transparently. It returns io.EOF at a clean end of stream, ErrTruncated
// when the stream ends mid-record and ErrBadMagic on corruption.
func (r *Reader) Next() (Record, error) {
	for {
		rec, err := r.next()
		if err != nil {
			return Record{}, err
		}
		if rec.Kind != KindVersion {
			return rec, nil
		}

		if rec.Value > FormatVersion {
			return Record{}, fmt.Errorf("%w: %v", ErrUnsupportedVersion, rec.Value)
		}
		r.version = int(rec.Value)
	}
}

func (r *Reader) next() (Record, error) {
	var head [headerSize]byte
	n, err := io.ReadFull(r.r, head[:])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, ErrTruncated
	}

	if magic := binary.LittleEndian.Uint32(head[0:4]); magic != Magic {
		return Record{}, fmt.Errorf("%w at offset %d: got %d", ErrBadMagic, r.offset, magic)
	}

	kind := Kind(head[4])
	if !kind.Valid() {
		return Record{}, fmt.Errorf("%w at offset %d: unknown kind %d", ErrBadMagic, r.offset, kind)
	}

	nameLen := binary.LittleEndian.Uint32(head[5:9])
	if nameLen > MaxNameLength {
		return Record{}, fmt.Errorf("%w at offset %d: name length %d", ErrBadMagic, r.offset, nameLen)
	}

	body := make([]byte, int(nameLen)+8)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return Record{}, ErrTruncated
	}

	r.offset += int64(headerSize + len(body))

	return Record{
		Kind:  kind,
		Name:  string(body[:nameLen]),
		Value: math.Float64frombits(binary.LittleEndian.Uint64(body[nameLen:])),
	}, nil
}

// Decode reads every complete record from r. Decoding stops at the first
// truncated or corrupt record; the records decoded so far are returned
// together with the error that stopped decoding. A clean end of stream
// returns a nil error.
func Decode(r io.Reader) ([]Record, error) {
	reader := NewReader(r)
	var records []Record
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

// ReadFile decodes the records stored in the file at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}
