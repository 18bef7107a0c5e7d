package wire

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Layout(t *testing.T) {
	rec := Gauge("abc", 1.5)
	b, err := rec.MarshalBinary()
	require.NoError(t, err)

	require.Len(t, b, 4+1+4+3+8)
	assert.Equal(t, uint32(7248), binary.LittleEndian.Uint32(b[0:4]))
	assert.Equal(t, byte(1), b[4])
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(b[5:9]))
	assert.Equal(t, "abc", string(b[9:12]))
	assert.Equal(t, rec.Size(), len(b))
}

func TestRoundTrip_Gauge(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	want := Gauge("runtime.dotnet.gc.size.gen0", 12345.0)
	require.NoError(t, w.Write(want))

	records, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, want, records[0])
}

func TestRoundTrip_AllKinds(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	want := []Record{
		Counter("exceptions.panic", 2),
		Gauge("heap.bytes", 1024),
		Increment("gc.count", 1),
		Timer("process.start", 1712345678901.25),
	}
	require.NoError(t, w.Write(want...))

	reader := NewReader(&buf)
	var got []Record
	for {
		rec, err := reader.Next()
		if err != nil {
			break
		}
		got = append(got, rec)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, FormatVersion, reader.Version())
}

func TestDecode_TruncatedTrailingRecord(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Write(Gauge("a", 1), Counter("b", 2), Timer("c", 3)))

	data := buf.Bytes()
	for cut := 1; cut < Timer("c", 3).Size(); cut++ {
		truncated := data[:len(data)-cut]
		records, err := Decode(bytes.NewReader(truncated))
		assert.ErrorIs(t, err, ErrTruncated, "cut=%d", cut)
		assert.Equal(t, []Record{Gauge("a", 1), Counter("b", 2)}, records, "cut=%d", cut)
	}
}

func TestDecode_BadMagicStops(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Write(Gauge("a", 1)))
	buf.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})

	records, err := Decode(&buf)
	assert.ErrorIs(t, err, ErrBadMagic)
	assert.Equal(t, []Record{Gauge("a", 1)}, records)
}

func TestDecode_NoHeaderAccepted(t *testing.T) {
	b := Counter("legacy", 7).AppendBinary(nil)

	reader := NewReader(bytes.NewReader(b))
	rec, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, Counter("legacy", 7), rec)
	assert.Equal(t, 0, reader.Version())
}

func TestDecode_NewerVersionRejected(t *testing.T) {
	b := Record{Kind: KindVersion, Name: HeaderName, Value: FormatVersion + 1}.AppendBinary(nil)
	b = Gauge("a", 1).AppendBinary(b)

	records, err := Decode(bytes.NewReader(b))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
	assert.Empty(t, records)
}

func TestDecode_Empty(t *testing.T) {
	records, err := Decode(bytes.NewReader(nil))
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestWriter_FileAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.bin")
	w, err := Create(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(Gauge("x", 1)))
	require.NoError(t, w.Close())
	assert.Error(t, w.Write(Gauge("y", 2)))

	records, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Record{Gauge("x", 1)}, records)
}

func TestWriter_ConcurrentWritesStayFramed(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = w.Write(Increment("ticks", 1), Gauge("g", float64(j)))
			}
		}()
	}
	wg.Wait()

	records, err := Decode(&buf)
	require.NoError(t, err)
	assert.Len(t, records, 8*50*2)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "counter", KindCounter.String())
	assert.Equal(t, "gauge", KindGauge.String())
	assert.Equal(t, "increment", KindIncrement.String())
	assert.Equal(t, "timer", KindTimer.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
	assert.False(t, Kind(9).Valid())
}
