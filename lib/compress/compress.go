/*package compress reads and writes .vgr files, vizgrid's binary grid cache.
A .vgr file stores everything a loader module produced for one input file, so
the grid can be reloaded without parsing the text again. Positions and fields
are stored as 32-bit floats, the precision the visualizer renders at, and each
block is compressed with one of several Methods.
*/
package compress

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/DataDog/zstd"
)

// MethodFlag is a flag representing the method used to compress the data.
type MethodFlag uint32

const (
	ZStdFlag MethodFlag = iota
	ZLibFlag
	DeltaFlag
)

// DefaultZStdLevel is the compression level used by ZStd methods.
const DefaultZStdLevel = 3

// Buffer is an expandable buffer which is used by many of compress's functions
// to avoid unneeded heap allocations.
type Buffer struct {
	b   []byte
	bZ  []byte
	u32 []uint32
	i64 []int64
	f32 []float32
}

// NewBuffer creates a new, resizable Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Resize resizes the buffer so its arrays all have length n.
func (buf *Buffer) Resize(n int) {
	buf.b = resizeBytes(buf.b, n)

	if cap(buf.u32) >= n {
		buf.u32 = buf.u32[:n]
	} else {
		buf.u32 = make([]uint32, n)
	}

	if cap(buf.i64) >= n {
		buf.i64 = buf.i64[:n]
	} else {
		buf.i64 = make([]int64, n)
	}

	if cap(buf.f32) >= n {
		buf.f32 = buf.f32[:n]
	} else {
		buf.f32 = make([]float32, n)
	}
}

// Method is an interface representing a compression method.
type Method interface {
	// MethodFlag returns the method used to compress the data.
	MethodFlag() MethodFlag
	// SetOrder sets the byte order of the compression method.
	SetOrder(order binary.ByteOrder)

	// WriteInfo writes initialization information to a Writer.
	WriteInfo(wr io.Writer) error
	// ReadInfo reads initialization information from a Reader.
	ReadInfo(order binary.ByteOrder, rd io.Reader) error

	// Compress compresses x and writes it to wr. The buffer buf is used for
	// intermediate allocations.
	Compress(x []float32, buf *Buffer, wr io.Writer) error
	// Decompress reads n compressed values from rd. The returned array uses
	// the space in buf, so you need to copy that data elsewhere before calling
	// Decompress again.
	Decompress(buf *Buffer, rd io.Reader, n int) ([]float32, error)
}

// MethodFromName returns the Method with the given name: "zstd", "zlib", or
// "delta". accuracy is only used by "delta".
func MethodFromName(name string, accuracy float64) (Method, error) {
	switch strings.ToLower(name) {
	case "zstd", "":
		return NewZStd(DefaultZStdLevel), nil
	case "zlib":
		return NewZLib(), nil
	case "delta":
		if !(accuracy > 0) {
			return nil, fmt.Errorf("The 'delta' method needs a positive "+
				"accuracy, but was given %g.", accuracy)
		}
		return NewDelta(accuracy), nil
	}
	return nil, fmt.Errorf("'%s' is not a recognized compression method. "+
		"Use 'zstd', 'zlib', or 'delta'.", name)
}

// selectMethod returns an unconfigured Method for a flag read from a file.
func selectMethod(flag MethodFlag) (Method, error) {
	switch flag {
	case ZStdFlag:
		return &ZStd{}, nil
	case ZLibFlag:
		return &ZLib{}, nil
	case DeltaFlag:
		return &Delta{}, nil
	}
	return nil, fmt.Errorf("The method flag %d isn't recognized. Either the "+
		"file is corrupted or it was written by a newer version of vizgrid.",
		flag)
}

// readFlag reads a method's flag and checks that it's the expected one.
func readFlag(order binary.ByteOrder, rd io.Reader, exp MethodFlag) error {
	var flag MethodFlag
	if err := binary.Read(rd, order, &flag); err != nil {
		return err
	}
	if flag != exp {
		return fmt.Errorf("Mismatch between the Method type used to "+
			"decompress block and the Method type used to compress it. The "+
			"block was read with flag %d, but its flag is %d.", exp, flag)
	}
	return nil
}

// ZStd is a lossless method which splits the bits of each float into byte
// columns and compresses each column with zstd. It implements Method.
type ZStd struct {
	order binary.ByteOrder
	level int32
}

// NewZStd creates a ZStd method with the given zstd compression level.
func NewZStd(level int) *ZStd {
	return &ZStd{binary.LittleEndian, int32(level)}
}

func (m *ZStd) MethodFlag() MethodFlag { return ZStdFlag }
func (m *ZStd) SetOrder(order binary.ByteOrder) { m.order = order }

func (m *ZStd) WriteInfo(wr io.Writer) error {
	if err := binary.Write(wr, m.order, ZStdFlag); err != nil {
		return err
	}
	return binary.Write(wr, m.order, m.level)
}

func (m *ZStd) ReadInfo(order binary.ByteOrder, rd io.Reader) error {
	m.order = order
	if err := readFlag(order, rd, ZStdFlag); err != nil {
		return err
	}
	return binary.Read(rd, order, &m.level)
}

func (m *ZStd) Compress(x []float32, buf *Buffer, wr io.Writer) error {
	buf.Resize(len(x))
	floatBits(x, buf.u32)
	for col := 0; col < 4; col++ {
		uint32ToByte(buf.u32, buf.b, col)
		if err := m.writeColumn(buf, wr); err != nil {
			return fmt.Errorf("zstd error while writing column %d: %w",
				col, err)
		}
	}
	return nil
}

func (m *ZStd) writeColumn(buf *Buffer, wr io.Writer) error {
	var err error
	buf.bZ, err = zstd.CompressLevel(buf.bZ[:0], buf.b, int(m.level))
	if err != nil {
		return err
	}
	return writeBlock(wr, m.order, buf.bZ)
}

func (m *ZStd) Decompress(buf *Buffer, rd io.Reader, n int) ([]float32, error) {
	buf.Resize(n)
	for i := range buf.u32 {
		buf.u32[i] = 0
	}

	for col := 0; col < 4; col++ {
		var err error
		buf.bZ, err = readBlock(rd, m.order, buf.bZ)
		if err != nil {
			return nil, err
		}
		b, err := zstd.Decompress(buf.b, buf.bZ)
		if err != nil {
			return nil, fmt.Errorf("zstd error while reading column %d: %w",
				col, err)
		} else if len(b) != n {
			return nil, fmt.Errorf("Column %d has %d values, but the block "+
				"should have %d.", col, len(b), n)
		}
		buf.b = b
		byteToUint32(buf.b, buf.u32, col)
	}

	bitsFloat(buf.u32, buf.f32)
	return buf.f32, nil
}

// ZLib is the same as ZStd, but uses zlib for each byte column. It's slower,
// but files written with it can be read by anything that has zlib.
type ZLib struct {
	order binary.ByteOrder
}

// NewZLib creates a ZLib method.
func NewZLib() *ZLib {
	return &ZLib{binary.LittleEndian}
}

func (m *ZLib) MethodFlag() MethodFlag { return ZLibFlag }
func (m *ZLib) SetOrder(order binary.ByteOrder) { m.order = order }

func (m *ZLib) WriteInfo(wr io.Writer) error {
	return binary.Write(wr, m.order, ZLibFlag)
}

func (m *ZLib) ReadInfo(order binary.ByteOrder, rd io.Reader) error {
	m.order = order
	return readFlag(order, rd, ZLibFlag)
}

func (m *ZLib) Compress(x []float32, buf *Buffer, wr io.Writer) error {
	buf.Resize(len(x))
	floatBits(x, buf.u32)

	for col := 0; col < 4; col++ {
		// A new zlib stream is used for each column so the high-significance
		// bytes don't share a dictionary with the noisy low ones.
		uint32ToByte(buf.u32, buf.b, col)
		z := &bytes.Buffer{}
		wrZLib := zlib.NewWriter(z)
		if _, err := wrZLib.Write(buf.b); err != nil {
			return err
		}
		if err := wrZLib.Close(); err != nil {
			return err
		}
		if err := writeBlock(wr, m.order, z.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (m *ZLib) Decompress(buf *Buffer, rd io.Reader, n int) ([]float32, error) {
	buf.Resize(n)
	for i := range buf.u32 {
		buf.u32[i] = 0
	}

	for col := 0; col < 4; col++ {
		var err error
		buf.bZ, err = readBlock(rd, m.order, buf.bZ)
		if err != nil {
			return nil, err
		}

		rdZLib, err := zlib.NewReader(bytes.NewReader(buf.bZ))
		if err != nil {
			return nil, fmt.Errorf("zlib error while reading column %d: %w",
				col, err)
		}
		if _, err := io.ReadFull(rdZLib, buf.b); err != nil {
			return nil, fmt.Errorf("zlib error while reading column %d: %w",
				col, err)
		}
		if err := rdZLib.Close(); err != nil {
			return nil, err
		}
		byteToUint32(buf.b, buf.u32, col)
	}

	bitsFloat(buf.u32, buf.f32)
	return buf.f32, nil
}

// Delta is a lossy method. Values are rounded to the nearest multiple of
// Accuracy, the difference between neighboring values is taken (along the
// fastest-varying grid axis, for grid blocks), and the differences are split
// into byte columns and compressed with zstd. Smooth fields compress to a
// small fraction of their original size. Every value read back is within
// Accuracy/2 of the value written, up to float32 rounding. Values must be
// finite.
type Delta struct {
	order    binary.ByteOrder
	Accuracy float64
}

// NewDelta creates a Delta method which stores values to the given accuracy.
func NewDelta(accuracy float64) *Delta {
	return &Delta{binary.LittleEndian, accuracy}
}

func (m *Delta) MethodFlag() MethodFlag { return DeltaFlag }
func (m *Delta) SetOrder(order binary.ByteOrder) { m.order = order }

func (m *Delta) WriteInfo(wr io.Writer) error {
	if err := binary.Write(wr, m.order, DeltaFlag); err != nil {
		return err
	}
	return binary.Write(wr, m.order, m.Accuracy)
}

func (m *Delta) ReadInfo(order binary.ByteOrder, rd io.Reader) error {
	m.order = order
	if err := readFlag(order, rd, DeltaFlag); err != nil {
		return err
	}
	return binary.Read(rd, order, &m.Accuracy)
}

func (m *Delta) Compress(x []float32, buf *Buffer, wr io.Writer) error {
	if !(m.Accuracy > 0) {
		return fmt.Errorf("The Delta method needs a positive accuracy, "+
			"but was given %g.", m.Accuracy)
	}
	buf.Resize(len(x))

	if err := Quantize(x, m.Accuracy, buf.i64); err != nil {
		return err
	}
	DeltaEncode(0, buf.i64, buf.i64)

	for col := 0; col < 8; col++ {
		intToByte(buf.i64, buf.b, col)
		var err error
		buf.bZ, err = zstd.CompressLevel(buf.bZ[:0], buf.b, DefaultZStdLevel)
		if err != nil {
			return fmt.Errorf("zstd error while writing column %d: %w",
				col, err)
		}
		if err := writeBlock(wr, m.order, buf.bZ); err != nil {
			return err
		}
	}
	return nil
}

func (m *Delta) Decompress(buf *Buffer, rd io.Reader, n int) ([]float32, error) {
	buf.Resize(n)
	// Columns are added to buf.i64 byte-by-byte, so it needs to be cleared.
	for i := range buf.i64 {
		buf.i64[i] = 0
	}

	for col := 0; col < 8; col++ {
		var err error
		buf.bZ, err = readBlock(rd, m.order, buf.bZ)
		if err != nil {
			return nil, err
		}
		b, err := zstd.Decompress(buf.b, buf.bZ)
		if err != nil {
			return nil, fmt.Errorf("zstd error while reading column %d: %w",
				col, err)
		} else if len(b) != n {
			return nil, fmt.Errorf("Column %d has %d values, but the block "+
				"should have %d.", col, len(b), n)
		}
		buf.b = b
		byteToInt(buf.b, buf.i64, col)
	}

	DeltaDecode(0, buf.i64, buf.i64)
	Dequantize(buf.i64, m.Accuracy, buf.f32)
	return buf.f32, nil
}

// maxQuantized is the largest quantized value that Quantize will produce.
// Keeping well away from the int64 limits means deltas can't overflow.
const maxQuantized = 1 << 61

// Quantize rounds each value of x to the nearest multiple of delta and writes
// the multiples to out. An error is returned if a value is not finite or is
// too large to be quantized at this accuracy.
func Quantize(x []float32, delta float64, out []int64) error {
	for i := range x {
		q := math.Round(float64(x[i]) / delta)
		if math.IsNaN(q) || math.Abs(q) > maxQuantized {
			return fmt.Errorf("The value %g at index %d can't be stored "+
				"with an accuracy of %g.", x[i], i, delta)
		}
		out[i] = int64(q)
	}
	return nil
}

// Dequantize is the inverse of Quantize.
func Dequantize(q []int64, delta float64, out []float32) {
	for i := range q {
		out[i] = float32(float64(q[i]) * delta)
	}
}

// DeltaEncode delta encodes the array x into the array out. The element
// before x[0] is taken to be offset. x and out can be the same array.
func DeltaEncode(offset int64, x, out []int64) {
	if len(x) != len(out) {
		panic(fmt.Sprintf("Internal error: len(x) = %d, but len(out) = "+
			"%d in DeltaEncode", len(x), len(out)))
	}
	if len(x) == 0 {
		return
	}

	// The loop is written this way so that DeltaEncode can be called in
	// place.
	prev := x[0]
	out[0] = prev - offset
	for i := 1; i < len(x); i++ {
		next := x[i]
		out[i] = next - prev
		prev = next
	}
}

// DeltaDecode decodes a integer array encoded with DeltaEncode.
func DeltaDecode(offset int64, x, out []int64) {
	if len(x) != len(out) {
		panic(fmt.Sprintf("Internal error: len(x) = %d, but len(out) = "+
			"%d in DeltaDecode", len(x), len(out)))
	}
	if len(x) == 0 {
		return
	}

	out[0] = offset + x[0]
	for i := 1; i < len(out); i++ {
		out[i] = out[i-1] + x[i]
	}
}

// floatBits and bitsFloat convert between floats and their IEEE 754 bits.
func floatBits(x []float32, out []uint32) {
	for i := range x {
		out[i] = math.Float32bits(x[i])
	}
}

func bitsFloat(u []uint32, out []float32) {
	for i := range u {
		out[i] = math.Float32frombits(u[i])
	}
}

// intToByte transfers a one-byte "column" from i64 to b. The bytes are
// indexed from least to most significant.
func intToByte(i64 []int64, b []byte, col int) {
	for i := range i64 {
		b[i] = byte((uint64(i64[i]) >> (8 * col)) & 0xff)
	}
}

// byteToInt adds a one-byte column to i64.
func byteToInt(b []byte, i64 []int64, col int) {
	for i := range i64 {
		i64[i] = int64(uint64(i64[i]) | uint64(b[i])<<(8*col))
	}
}

func uint32ToByte(u32 []uint32, b []byte, col int) {
	for i := range u32 {
		b[i] = byte((u32[i] >> (8 * col)) & 0xff)
	}
}

func byteToUint32(b []byte, u32 []uint32, col int) {
	for i := range u32 {
		u32[i] |= uint32(b[i]) << (8 * col)
	}
}

// writeBlock writes a length-prefixed block of bytes.
func writeBlock(wr io.Writer, order binary.ByteOrder, b []byte) error {
	if err := binary.Write(wr, order, int64(len(b))); err != nil {
		return err
	}
	_, err := wr.Write(b)
	return err
}

// readBlock reads a block written by writeBlock into b, which is resized as
// needed and returned.
func readBlock(rd io.Reader, order binary.ByteOrder, b []byte) ([]byte, error) {
	var n int64
	if err := binary.Read(rd, order, &n); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("Compressed block has negative length %d.", n)
	}
	b = resizeBytes(b, int(n))
	if _, err := io.ReadFull(rd, b); err != nil {
		return nil, err
	}
	return b, nil
}

// resizeBytes resizes a byte buffer to have length n.
func resizeBytes(b []byte, n int) []byte {
	if cap(b) >= n {
		return b[:n]
	}
	b = b[:cap(b)]
	return append(b, make([]byte, n-len(b))...)
}
