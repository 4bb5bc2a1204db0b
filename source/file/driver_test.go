package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coltrim/internal/table"
	"coltrim/source"
)

func TestRegistry_FileDriver(t *testing.T) {
	a, err := source.NewAdapter("file")
	require.NoError(t, err)
	require.NotNil(t, a)

	_, err = source.NewAdapter("s3")
	require.Error(t, err)
}

func TestConfigure_RejectsWrongTypeAndEmptyPath(t *testing.T) {
	d := New()
	require.Error(t, d.Configure("in.csv"))
	require.Error(t, d.Configure(Config{}))
}

func TestOpen_MissingFileIsNotFound(t *testing.T) {
	d := New()
	missing := filepath.Join(t.TempDir(), "nope.csv")
	require.NoError(t, d.Configure(Config{Path: missing}))

	_, err := d.Open(context.Background())
	var nf *table.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, missing, nf.Path)
}

func TestOpen_ReadsRowsAndTagsParseErrorsWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n3\n"), 0o644))

	d := New()
	require.NoError(t, d.Configure(Config{Path: path}))
	rd, err := d.Open(context.Background())
	require.NoError(t, err)
	defer rd.Close()

	assert.Equal(t, []string{"a", "b"}, rd.Header())
	row, err := rd.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, row)

	_, err = rd.Read()
	var pe *table.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path, pe.Path)
	assert.Equal(t, 3, pe.Line)

	require.NoError(t, rd.Close())
	require.NoError(t, rd.Close())
}

func TestOpen_Stdin(t *testing.T) {
	d := &driver{stdin: strings.NewReader("h\nv\n")}
	require.NoError(t, d.Configure(Config{Path: Stdin}))

	rd, err := d.Open(context.Background())
	require.NoError(t, err)
	row, err := rd.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, row)
	_, err = rd.Read()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestOpen_CancelledContext(t *testing.T) {
	d := New()
	require.NoError(t, d.Configure(Config{Path: "x.csv"}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Open(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
