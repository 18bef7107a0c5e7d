// Package wire implements the binary metric-record format shared by the
// in-process sampler and the harness.
//
// Every record is laid out little-endian as
//
//	[4 bytes magic=7248][1 byte kind][4 bytes name length N][N bytes name][8 bytes float64 value]
//
// and a file is a flat concatenation of records. Writers start each file with
// a version record (kind KindVersion, name "timeit") so readers can reject
// formats they do not understand.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Magic prefixes every record and lets readers detect corruption.
const Magic uint32 = 7248

// FormatVersion is the version written into the header record.
const FormatVersion = 1

// HeaderName is the name carried by the version record.
const HeaderName = "timeit"

// MaxNameLength bounds the name of a single record.
const MaxNameLength = 1 << 16

// headerSize is magic + kind + name length.
const headerSize = 4 + 1 + 4

// Kind identifies how a metric is reduced by the harness.
type Kind uint8

const (
	// KindCounter values are summed.
	KindCounter Kind = 0

	// KindGauge values are averaged.
	KindGauge Kind = 1

	// KindIncrement values are summed.
	KindIncrement Kind = 2

	// KindTimer values are averaged.
	KindTimer Kind = 3

	// KindVersion marks the format header record.
	KindVersion Kind = 0x7F
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindIncrement:
		return "increment"
	case KindTimer:
		return "timer"
	case KindVersion:
		return "version"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k <= KindTimer || k == KindVersion
}

// Record is a single metric emission.
type Record struct {
	Kind  Kind
	Name  string
	Value float64
}

// Counter creates a counter record.
func Counter(name string, value float64) Record {
	return Record{Kind: KindCounter, Name: name, Value: value}
}

// Gauge creates a gauge record.
func Gauge(name string, value float64) Record {
	return Record{Kind: KindGauge, Name: name, Value: value}
}

// Increment creates an increment record.
func Increment(name string, value float64) Record {
	return Record{Kind: KindIncrement, Name: name, Value: value}
}

// Timer creates a timer record.
func Timer(name string, value float64) Record {
	return Record{Kind: KindTimer, Name: name, Value: value}
}

// Header returns the version record written at the start of every file.
func Header() Record {
	return Record{Kind: KindVersion, Name: HeaderName, Value: FormatVersion}
}

// Size returns the encoded size of r in bytes.
func (r Record) Size() int {
	return headerSize + len(r.Name) + 8
}

// AppendBinary appends the encoded record to buf.
func (r Record) AppendBinary(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, Magic)
	buf = append(buf, byte(r.Kind))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(r.Name)))
	buf = append(buf, r.Name...)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(r.Value))
	return buf
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r Record) MarshalBinary() ([]byte, error) {
	if len(r.Name) > MaxNameLength {
		return nil, fmt.Errorf("metric name too long: %d bytes", len(r.Name))
	}
	return r.AppendBinary(make([]byte, 0, r.Size())), nil
}
