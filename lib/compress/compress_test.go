package compress

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/vizgrid/lib/eq"
)

func smoothField(n int) []float32 {
	x := make([]float32, n)
	for i := range x {
		x[i] = float32(math.Sin(float64(i)/10) * 100)
	}
	return x
}

func TestDeltaEncode(t *testing.T) {
	tests := []struct {
		offset   int64
		x, delta []int64
	}{
		{0, []int64{}, []int64{}},
		{0, []int64{5}, []int64{5}},
		{3, []int64{5}, []int64{2}},
		{0, []int64{1, 2, 4, 8, 7, -3}, []int64{1, 1, 2, 4, -1, -10}},
		{10, []int64{10, 10, 10}, []int64{0, 0, 0}},
	}

	for i, test := range tests {
		out := make([]int64, len(test.x))
		DeltaEncode(test.offset, test.x, out)
		if !eq.Int64s(out, test.delta) {
			t.Errorf("%d) Expected DeltaEncode(%d, %d) = %d, got %d.",
				i, test.offset, test.x, test.delta, out)
		}

		DeltaDecode(test.offset, out, out)
		if !eq.Int64s(out, test.x) {
			t.Errorf("%d) Expected DeltaDecode(%d, %d) = %d, got %d.",
				i, test.offset, test.delta, test.x, out)
		}
	}
}

func TestQuantize(t *testing.T) {
	x := []float32{0, 0.24, 0.26, -0.26, 10, -1e3}
	q := make([]int64, len(x))
	require.NoError(t, Quantize(x, 0.5, q))
	assert.Equal(t, []int64{0, 0, 1, -1, 20, -2000}, q)

	out := make([]float32, len(q))
	Dequantize(q, 0.5, out)
	assert.Equal(t, []float32{0, 0, 0.5, -0.5, 10, -1000}, out)

	for _, bad := range []float32{float32(math.NaN()), float32(math.Inf(1)),
		3e38} {
		assert.Error(t, Quantize([]float32{1, bad}, 1, q[:2]), "%g", bad)
	}
}

func TestByteColumns(t *testing.T) {
	i64 := []int64{0, 1, -1, math.MaxInt64, math.MinInt64, 0x0123456789abcdef}
	b := make([]byte, len(i64))
	out := make([]int64, len(i64))
	for col := 0; col < 8; col++ {
		intToByte(i64, b, col)
		byteToInt(b, out, col)
	}
	assert.Equal(t, i64, out)

	u32 := []uint32{0, 1, math.MaxUint32, 0xdeadbeef}
	b = b[:len(u32)]
	uOut := make([]uint32, len(u32))
	for col := 0; col < 4; col++ {
		uint32ToByte(u32, b, col)
		byteToUint32(b, uOut, col)
	}
	assert.Equal(t, u32, uOut)
}

func TestMethods(t *testing.T) {
	lossless := []Method{NewZStd(1), NewZStd(DefaultZStdLevel), NewZLib()}
	rng := rand.New(rand.NewSource(1))
	noise := make([]float32, 1000)
	for i := range noise {
		noise[i] = float32(rng.NormFloat64())
	}
	special := []float32{0, float32(math.Inf(-1)), float32(math.NaN()),
		math.SmallestNonzeroFloat32, math.MaxFloat32}

	buf := NewBuffer()
	for _, order := range []binary.ByteOrder{binary.LittleEndian,
		binary.BigEndian} {
		for _, x := range [][]float32{smoothField(1000), noise, special,
			{7}} {

			for _, m := range lossless {
				m.SetOrder(order)
				b := &bytes.Buffer{}
				require.NoError(t, m.WriteInfo(b))
				require.NoError(t, m.Compress(x, buf, b))

				m2, err := selectMethod(m.MethodFlag())
				require.NoError(t, err)
				require.NoError(t, m2.ReadInfo(order, b))
				out, err := m2.Decompress(buf, b, len(x))
				require.NoError(t, err)

				if !eq.Float32sBits(x, out) {
					t.Errorf("Method %d did not reproduce its input.",
						m.MethodFlag())
				}
			}
		}
	}
}

func TestDelta(t *testing.T) {
	accuracies := []float64{1e-3, 0.1, 10}
	buf := NewBuffer()
	x := smoothField(2000)

	for _, acc := range accuracies {
		m := NewDelta(acc)
		b := &bytes.Buffer{}
		require.NoError(t, m.WriteInfo(b))
		require.NoError(t, m.Compress(x, buf, b))

		m2 := &Delta{}
		require.NoError(t, m2.ReadInfo(binary.LittleEndian, b))
		assert.Equal(t, acc, m2.Accuracy)

		out, err := m2.Decompress(buf, b, len(x))
		require.NoError(t, err)
		// float32 rounding can add a little on top of acc/2.
		if !eq.Float32sEps(x, out, float32(acc/2)+1e-4) {
			t.Errorf("Delta(%g) changed values by more than %g.", acc, acc/2)
		}
	}

	assert.Error(t, NewDelta(0).Compress(x, buf, &bytes.Buffer{}))
	assert.Error(t, NewDelta(1).Compress([]float32{float32(math.NaN())}, buf,
		&bytes.Buffer{}))
}

func TestMethodMismatch(t *testing.T) {
	b := &bytes.Buffer{}
	require.NoError(t, NewZLib().WriteInfo(b))
	assert.Error(t, (&ZStd{}).ReadInfo(binary.LittleEndian, b))

	_, err := selectMethod(MethodFlag(100))
	assert.Error(t, err)
}

func TestMethodFromName(t *testing.T) {
	tests := []struct {
		name     string
		accuracy float64
		flag     MethodFlag
		ok       bool
	}{
		{"zstd", 0, ZStdFlag, true},
		{"", 0, ZStdFlag, true},
		{"ZLib", 0, ZLibFlag, true},
		{"delta", 0.1, DeltaFlag, true},
		{"delta", 0, DeltaFlag, false},
		{"gzip", 0, ZStdFlag, false},
	}

	for _, test := range tests {
		m, err := MethodFromName(test.name, test.accuracy)
		if !test.ok {
			assert.Error(t, err, test.name)
			continue
		}
		require.NoError(t, err, test.name)
		assert.Equal(t, test.flag, m.MethodFlag(), test.name)
	}
}
