package compress

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/phil-mansfield/gotetra/render/geom"

	"github.com/phil-mansfield/vizgrid/lib/grid"
)

const (
	// MagicNumber is an arbitrary number at the start of all .vgr files
	// which should help identify when the code is run on something else by
	// accident.
	MagicNumber = 0x7615cace
	// ReverseMagicNumber is the magic number if read on a machine with
	// flipped endianness.
	ReverseMagicNumber = 0xceca1576
	Version            = 1
)

// FixedWidthHeader is the part of a .vgr header with a fixed size.
type FixedWidthHeader struct {
	// N is the number of vertices in the grid.
	N int64
	// Dims gives the number of vertices along each axis.
	Dims [3]int64
}

// Header describes the grid stored in a .vgr file.
type Header struct {
	FixedWidthHeader
	// Module is the name of the loader module which read the original file.
	Module string
	// Names gives the names of all the fields stored in the file, in the order
	// they were added.
	Names []string
	// Vectors gives the grid's vector variables.
	Vectors []grid.Vector
}

// Writer is a class which handles writing to disk. The pattern is that you
// create a single writer with NewWriter, add the positions with AddPositions,
// add fields to it with AddField, and finally call Flush() when you want to
// flush all the buffers and write to disk.
type Writer struct {
	Header
	fname                  string
	buf                    *Buffer
	order                  binary.ByteOrder
	methodFlags            []MethodFlag
	headerEdges, dataEdges []int64
	header, data           *bytes.Buffer
	x                      []float32
}

// NewWriter creates a Writer targeting a given file and using a given byte
// ordering. buf handles all the internal arrays needed by the compression
// methods and b is used to store an in-RAM version of the file. If you don't
// want to make excess heap allocations, pass the array returned by Flush().
func NewWriter(
	fname, module string, dims grid.Index, vectors []grid.Vector,
	buf *Buffer, b []byte, order binary.ByteOrder,
) *Writer {
	hd := Header{
		FixedWidthHeader{int64(dims.Count()),
			[3]int64{int64(dims[0]), int64(dims[1]), int64(dims[2])}},
		module, []string{}, append([]grid.Vector{}, vectors...),
	}

	return &Writer{
		Header: hd, fname: fname, buf: buf, order: order,
		headerEdges: []int64{0}, dataEdges: []int64{0},
		header: &bytes.Buffer{}, data: bytes.NewBuffer(b[:0]),
	}
}

// AddPositions adds the vertex positions to the file. It must be called
// before any fields are added.
func (wr *Writer) AddPositions(pos [][3]float64, method Method) error {
	if len(wr.methodFlags) > 0 {
		return fmt.Errorf("Positions have already been added to %s.",
			wr.fname)
	}
	if int64(len(pos)) != wr.N {
		return fmt.Errorf("File stores %d vertices, but was given %d "+
			"positions.", wr.N, len(pos))
	}

	vec := make([]geom.Vec, len(pos))
	for i := range pos {
		vec[i] = geom.Vec{float32(pos[i][0]), float32(pos[i][1]),
			float32(pos[i][2])}
	}

	// Each axis is stored contiguously so neighboring values are similar.
	wr.x = resizeFloat32s(wr.x, 3*len(vec))
	for dim := 0; dim < 3; dim++ {
		for i := range vec {
			wr.x[dim*len(vec)+i] = vec[i][dim]
		}
	}

	return wr.addBlock(wr.x, method)
}

// AddField adds a new field to the file which will be compressed with a given
// method.
func (wr *Writer) AddField(name string, x []float64, method Method) error {
	if len(wr.methodFlags) == 0 {
		return fmt.Errorf("The field '%s' was added to %s before the "+
			"vertex positions.", name, wr.fname)
	}
	if int64(len(x)) != wr.N {
		return fmt.Errorf("File stores %d vertices, but was given a new "+
			"field, %s, with %d values.", wr.N, name, len(x))
	}
	if findString(wr.Names, name) != -1 {
		return fmt.Errorf("The field '%s' has already been added to %s.",
			name, wr.fname)
	}

	wr.x = resizeFloat32s(wr.x, len(x))
	for i := range x {
		wr.x[i] = float32(x[i])
	}

	if err := wr.addBlock(wr.x, method); err != nil {
		return fmt.Errorf("Could not compress field '%s': %w", name, err)
	}
	wr.Names = append(wr.Names, name)
	return nil
}

func (wr *Writer) addBlock(x []float32, method Method) error {
	method.SetOrder(wr.order)

	if err := method.WriteInfo(wr.header); err != nil {
		return err
	}
	if err := method.Compress(x, wr.buf, wr.data); err != nil {
		return err
	}

	wr.headerEdges = append(wr.headerEdges, int64(wr.header.Len()))
	wr.dataEdges = append(wr.dataEdges, int64(wr.data.Len()))
	wr.methodFlags = append(wr.methodFlags, method.MethodFlag())
	return nil
}

// Flush flushes the internal buffers to disk. It returns a (potentially
// cap-expanded) byte array that can be passed to later call to NewWriter().
func (wr *Writer) Flush() ([]byte, error) {
	if len(wr.methodFlags) == 0 {
		return nil, fmt.Errorf("No positions were added to %s.", wr.fname)
	}
	for _, v := range wr.Vectors {
		for _, c := range v.Components {
			if c < 0 || c >= len(wr.Names) {
				return nil, fmt.Errorf("The vector '%s' uses field %d, but "+
					"only %d fields were added to %s.", v.Name, c,
					len(wr.Names), wr.fname)
			}
		}
	}

	// The file header is assembled in memory first so that its size is known
	// when computing block offsets.
	hd := &bytes.Buffer{}
	if err := binary.Write(hd, wr.order, uint32(MagicNumber)); err != nil {
		return nil, err
	}
	if err := binary.Write(hd, wr.order, uint32(Version)); err != nil {
		return nil, err
	}
	if err := wr.Header.write(hd, wr.order); err != nil {
		return nil, err
	}

	nHd := int64(hd.Len())
	nHd += 4 * int64(len(wr.methodFlags)) // methodFlags size
	nHd += 8 * int64(len(wr.headerEdges)) // headerEdges size
	nHd += 8 * int64(len(wr.dataEdges))   // dataEdges size

	headerEdges := make([]int64, len(wr.headerEdges))
	dataEdges := make([]int64, len(wr.dataEdges))
	dataOffset := nHd + wr.headerEdges[len(wr.headerEdges)-1]
	for i := range wr.headerEdges {
		headerEdges[i] = wr.headerEdges[i] + nHd
		dataEdges[i] = wr.dataEdges[i] + dataOffset
	}

	if err := binary.Write(hd, wr.order, wr.methodFlags); err != nil {
		return nil, err
	}
	if err := binary.Write(hd, wr.order, headerEdges); err != nil {
		return nil, err
	}
	if err := binary.Write(hd, wr.order, dataEdges); err != nil {
		return nil, err
	}

	fp, err := os.Create(wr.fname)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	bData := wr.data.Bytes()
	for _, b := range [][]byte{hd.Bytes(), wr.header.Bytes(), bData} {
		if _, err := fp.Write(b); err != nil {
			return bData[:0], err
		}
	}

	return bData[:0], fp.Close()
}

func (hd *Header) write(wr io.Writer, order binary.ByteOrder) error {
	if err := binary.Write(wr, order, &hd.FixedWidthHeader); err != nil {
		return err
	}
	if err := writeString(wr, order, hd.Module); err != nil {
		return err
	}

	if err := binary.Write(wr, order, uint32(len(hd.Names))); err != nil {
		return err
	}
	for _, name := range hd.Names {
		if err := writeString(wr, order, name); err != nil {
			return err
		}
	}

	if err := binary.Write(wr, order, uint32(len(hd.Vectors))); err != nil {
		return err
	}
	for _, v := range hd.Vectors {
		if err := writeString(wr, order, v.Name); err != nil {
			return err
		}
		comp := [3]uint32{uint32(v.Components[0]), uint32(v.Components[1]),
			uint32(v.Components[2])}
		if err := binary.Write(wr, order, comp); err != nil {
			return err
		}
	}

	return nil
}

func (hd *Header) read(rd io.Reader, order binary.ByteOrder) error {
	if err := binary.Read(rd, order, &hd.FixedWidthHeader); err != nil {
		return err
	}
	dims := hd.Dims
	if dims[0] < 1 || dims[1] < 1 || dims[2] < 1 ||
		dims[0]*dims[1]*dims[2] != hd.N {
		return fmt.Errorf("The header describes a %d grid with %d vertices.",
			dims, hd.N)
	}

	var err error
	if hd.Module, err = readString(rd, order); err != nil {
		return err
	}

	var nFields uint32
	if err := binary.Read(rd, order, &nFields); err != nil {
		return err
	}
	hd.Names = make([]string, nFields)
	for i := range hd.Names {
		if hd.Names[i], err = readString(rd, order); err != nil {
			return err
		}
	}

	var nVectors uint32
	if err := binary.Read(rd, order, &nVectors); err != nil {
		return err
	}
	hd.Vectors = make([]grid.Vector, nVectors)
	for i := range hd.Vectors {
		if hd.Vectors[i].Name, err = readString(rd, order); err != nil {
			return err
		}
		comp := [3]uint32{}
		if err := binary.Read(rd, order, &comp); err != nil {
			return err
		}
		for dim := range comp {
			if comp[dim] >= nFields {
				return fmt.Errorf("The vector '%s' uses field %d, but there "+
					"are only %d fields.", hd.Vectors[i].Name, comp[dim],
					nFields)
			}
			hd.Vectors[i].Components[dim] = int(comp[dim])
		}
	}

	return nil
}

// maxStringLen is the length of the longest string that readString will
// accept.
const maxStringLen = 1 << 16

func writeString(wr io.Writer, order binary.ByteOrder, s string) error {
	if len(s) > maxStringLen {
		return fmt.Errorf("The string '%.20s...' is %d bytes long, but only "+
			"strings up to %d bytes can be stored.", s, len(s), maxStringLen)
	}
	if err := binary.Write(wr, order, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(wr, s)
	return err
}

func readString(rd io.Reader, order binary.ByteOrder) (string, error) {
	var n uint32
	if err := binary.Read(rd, order, &n); err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("The header contains a %d byte string, which "+
			"is longer than the %d byte limit.", n, maxStringLen)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rd, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// Reader handles the I/O and navigation associated with reading compressed
// fields from disk. Unlike Writer, it will need to be closed after use.
type Reader struct {
	Header
	fname                  string
	f                      *os.File
	order                  binary.ByteOrder
	headerEdges, dataEdges []int64
	methodFlags            []MethodFlag
	buf                    *Buffer

	// Blocks are read into midBuf in one go and decompressed from there so
	// that the file isn't read in small pieces.
	midBuf []byte
}

// NewReader creates a new Reader associated with the given file and uses the
// given buffers to avoid unnecessary heap allocation.
func NewReader(fname string, buf *Buffer, midBuf []byte) (*Reader, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}

	rd, err := newReader(fname, f, buf, midBuf)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rd, nil
}

func newReader(
	fname string, f *os.File, buf *Buffer, midBuf []byte,
) (*Reader, error) {
	order, err := checkFile(fname, f)
	if err != nil {
		return nil, err
	}

	hd := &Header{}
	if err := hd.read(f, order); err != nil {
		return nil, fmt.Errorf("Could not read the header of %s: %w",
			fname, err)
	}
	nBlocks := len(hd.Names) + 1

	rd := &Reader{
		Header: *hd, fname: fname, f: f, order: order,
		headerEdges: make([]int64, nBlocks+1),
		dataEdges:   make([]int64, nBlocks+1),
		methodFlags: make([]MethodFlag, nBlocks),
		buf:         buf, midBuf: midBuf,
	}

	// Read in navigation information
	if err := binary.Read(f, order, rd.methodFlags); err != nil {
		return nil, err
	}
	if err := binary.Read(f, order, rd.headerEdges); err != nil {
		return nil, err
	}
	if err := binary.Read(f, order, rd.dataEdges); err != nil {
		return nil, err
	}

	return rd, nil
}

// ReadPositions reads the vertex positions. Like ReadField, the returned
// array is only valid until the next read.
func (rd *Reader) ReadPositions() ([]geom.Vec, error) {
	x, err := rd.readBlock(0, 3*int(rd.N))
	if err != nil {
		return nil, fmt.Errorf("Could not read the positions in %s: %w",
			rd.fname, err)
	}

	n := int(rd.N)
	vec := make([]geom.Vec, n)
	for i := range vec {
		vec[i] = geom.Vec{x[i], x[n+i], x[2*n+i]}
	}
	return vec, nil
}

// ReadField reads a field from the reader. (Note: use Names to find these.)
//
// NOTE: ReadField uses the array space in Buffer to store the field. If you
// want to call ReadField again, YOU WILL NEED TO COPY THE DATA OUT OF THE
// ARRAY and into your own locally-allocated array or you could lose it.
func (rd *Reader) ReadField(name string) ([]float32, error) {
	i := findString(rd.Names, name)
	if i == -1 {
		return nil, fmt.Errorf("The field '%s' is not in the compressed "+
			"file %s. It only contains the fields %s.",
			name, rd.fname, rd.Names)
	}

	x, err := rd.readBlock(i+1, int(rd.N))
	if err != nil {
		return nil, fmt.Errorf("Could not read the field '%s' in %s: %w",
			name, rd.fname, err)
	}
	return x, nil
}

// readBlock decompresses the i-th block, which holds n values.
func (rd *Reader) readBlock(i, n int) ([]float32, error) {
	headerOffset, dataOffset := rd.headerEdges[i], rd.dataEdges[i]

	if _, err := rd.f.Seek(headerOffset, io.SeekStart); err != nil {
		return nil, err
	}

	method, err := selectMethod(rd.methodFlags[i])
	if err != nil {
		return nil, err
	}
	if err := method.ReadInfo(rd.order, rd.f); err != nil {
		return nil, err
	}

	if _, err := rd.f.Seek(dataOffset, io.SeekStart); err != nil {
		return nil, err
	}

	nData := rd.dataEdges[i+1] - rd.dataEdges[i]
	if nData < 0 {
		return nil, fmt.Errorf("Block %d has a negative size.", i)
	}
	rd.midBuf = resizeBytes(rd.midBuf, int(nData))
	if _, err := io.ReadFull(rd.f, rd.midBuf); err != nil {
		return nil, err
	}

	return method.Decompress(rd.buf, bytes.NewReader(rd.midBuf), n)
}

// Grid reads every block in the file and assembles them into a grid.
func (rd *Reader) Grid() (*grid.Grid, error) {
	dims := grid.Index{int(rd.Dims[0]), int(rd.Dims[1]), int(rd.Dims[2])}
	b := grid.NewBuilder()
	if err := b.SetGrid(dims, rd.Names); err != nil {
		return nil, err
	}
	for _, v := range rd.Vectors {
		err := b.AddVector(v.Name, rd.Names[v.Components[0]],
			rd.Names[v.Components[1]], rd.Names[v.Components[2]])
		if err != nil {
			return nil, err
		}
	}

	pos, err := rd.ReadPositions()
	if err != nil {
		return nil, err
	}
	for i := range pos {
		b.SetPosition(dims.Unlinear(i), [3]float64{
			float64(pos[i][0]), float64(pos[i][1]), float64(pos[i][2]),
		})
	}

	for f, name := range rd.Names {
		x, err := rd.ReadField(name)
		if err != nil {
			return nil, err
		}
		for i := range x {
			b.SetField(f, dims.Unlinear(i), float64(x[i]))
		}
	}

	return b.Finalize()
}

// Close closes the files associated with the Reader.
func (rd *Reader) Close() error {
	return rd.f.Close()
}

// ReuseMidBuf returns the midBuf used by the Reader so that it can be used by
// a later reader without excess heap allocation.
func (rd *Reader) ReuseMidBuf() []byte {
	return rd.midBuf[:0]
}

// WriteGrid writes every position and field of g to a .vgr file with a single
// method.
func WriteGrid(
	fname, module string, g *grid.Grid, method Method, order binary.ByteOrder,
) error {
	wr := NewWriter(fname, module, g.Dims(), g.Vectors(), NewBuffer(),
		nil, order)
	if err := wr.AddPositions(g.Positions(), method); err != nil {
		return err
	}
	for f, name := range g.Names() {
		if err := wr.AddField(name, g.Slice(f), method); err != nil {
			return err
		}
	}
	_, err := wr.Flush()
	return err
}

// ReadGrid reads a grid from a .vgr file. It also returns the name of the
// module that originally loaded it.
func ReadGrid(fname string) (*grid.Grid, string, error) {
	rd, err := NewReader(fname, NewBuffer(), nil)
	if err != nil {
		return nil, "", err
	}
	defer rd.Close()

	g, err := rd.Grid()
	if err != nil {
		return nil, "", err
	}
	return g, rd.Module, nil
}

// findString returns the index of the first instance of target in x and -1 if
// target isn't in x.
func findString(x []string, target string) int {
	for i := range x {
		if x[i] == target {
			return i
		}
	}
	return -1
}

func resizeFloat32s(x []float32, n int) []float32 {
	if cap(x) >= n {
		return x[:n]
	}
	return make([]float32, n)
}

// checkFile reads in the file's magic number and version number and makes
// sure that vizgrid can actually read it. If it can, the byte order is
// returned. Otherwise an error is returned.
func checkFile(fname string, rd io.Reader) (binary.ByteOrder, error) {
	var magicNumber, version uint32

	// Read the magic number and check that this is actually a .vgr file.
	order := binary.ByteOrder(binary.LittleEndian)
	if err := binary.Read(rd, order, &magicNumber); err != nil {
		return nil, fmt.Errorf("%s is too short to be a .vgr file: %w",
			fname, err)
	}

	switch magicNumber {
	case MagicNumber:
	case ReverseMagicNumber:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%s is not a .vgr file. All .vgr files "+
			"begin with either the 32-bit integer %x or %x. This file begins "+
			"with %x.", fname, MagicNumber, ReverseMagicNumber, magicNumber)
	}

	// Check the version.
	if err := binary.Read(rd, order, &version); err != nil {
		return nil, err
	}
	if version > Version {
		return nil, fmt.Errorf("The file %s was created with .vgr version "+
			"%d, but you are trying to read it with version %d. This means "+
			"that the file contains features which weren't implemented at "+
			"the time your code was written.", fname, version, Version)
	}

	return order, nil
}
