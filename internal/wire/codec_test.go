package wire_test

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/deltasync/internal/wire"
)

func TestIntRoundTrip(t *testing.T) {
	t.Parallel()

	values := []int32{0, 1, -1, 700, -701, math.MaxInt32, math.MinInt32}

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	for _, v := range values {
		require.NoError(t, w.WriteInt(v))
	}
	require.NoError(t, w.Flush())
	assert.Equal(t, int64(len(values)*wire.IntSize), w.Written())
	assert.Equal(t, len(values)*wire.IntSize, buf.Len())

	r := wire.NewReader(&buf)
	for _, want := range values {
		got, err := r.ReadInt()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, int64(len(values)*wire.IntSize), r.BytesRead())
}

func TestIntByteOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, w.WriteInt(0x01020304))
	require.NoError(t, w.WriteInt(-1))
	require.NoError(t, w.Flush())

	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01, 0xff, 0xff, 0xff, 0xff}, buf.Bytes())
}

func TestLongRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, w.WriteLong(1<<40+5))
	require.NoError(t, w.WriteLong(-3))
	require.NoError(t, w.Flush())

	r := wire.NewReader(&buf)
	got, err := r.ReadLong()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40+5), got)
	got, err = r.ReadLong()
	require.NoError(t, err)
	assert.Equal(t, int64(-3), got)
}

func TestBufRoundTrip(t *testing.T) {
	t.Parallel()

	payload := []byte("binary\x00content\xff")

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, w.WriteInt(int32(len(payload))))
	require.NoError(t, w.WriteBuf(payload))
	require.NoError(t, w.WriteBuf(nil))
	require.NoError(t, w.Flush())

	r := wire.NewReader(&buf)
	n, err := r.ReadInt()
	require.NoError(t, err)
	got := make([]byte, n)
	require.NoError(t, r.ReadBuf(got))
	assert.Equal(t, payload, got)
}

func TestShortRead(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		read  func(r *wire.Reader) error
	}{
		{
			name:  "empty stream int",
			input: nil,
			read: func(r *wire.Reader) error {
				_, err := r.ReadInt()
				return err
			},
		},
		{
			name:  "truncated int",
			input: []byte{1, 2},
			read: func(r *wire.Reader) error {
				_, err := r.ReadInt()
				return err
			},
		},
		{
			name:  "truncated buffer",
			input: []byte("abc"),
			read: func(r *wire.Reader) error {
				return r.ReadBuf(make([]byte, 10))
			},
		},
		{
			name:  "truncated long",
			input: []byte{1, 2, 3, 4, 5},
			read: func(r *wire.Reader) error {
				_, err := r.ReadLong()
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.read(wire.NewReader(bytes.NewReader(tt.input)))
			require.Error(t, err)
			assert.ErrorIs(t, err, wire.ErrShortRead)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestReadErrorIsShortRead(t *testing.T) {
	t.Parallel()

	_, err := wire.NewReader(failingReader{}).ReadInt()
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrShortRead)
	assert.Contains(t, err.Error(), "connection reset")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteErrorSurfacesOnFlush(t *testing.T) {
	t.Parallel()

	w := wire.NewWriter(failingWriter{})
	require.NoError(t, w.WriteInt(1))
	err := w.Flush()
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
