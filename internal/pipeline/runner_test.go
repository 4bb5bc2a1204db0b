package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coltrim/internal/table"
	"coltrim/internal/telemetry"
	"coltrim/source"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	header []string
	rows   [][]string
	failAt int // row index that fails with a ParseError; -1 = never
	closed bool
}

func (f *fakeSource) Configure(any) error { return nil }
func (f *fakeSource) Open(ctx context.Context) (source.Reader, error) {
	return &fakeReader{src: f}, nil
}

type fakeReader struct {
	src *fakeSource
	i   int
}

func (r *fakeReader) Header() []string { return r.src.header }
func (r *fakeReader) Read() ([]string, error) {
	if r.i == r.src.failAt {
		return nil, &table.ParseError{Line: r.i + 2, Err: errors.New("ragged")}
	}
	if r.i >= len(r.src.rows) {
		return nil, io.EOF
	}
	row := r.src.rows[r.i]
	r.i++
	return row, nil
}
func (r *fakeReader) Close() error { r.src.closed = true; return nil }

type captureSink struct {
	header    []string
	pushed    [][]string
	opened    bool
	committed bool
	closed    bool
	pushErr   error
	commitErr error
}

func (c *captureSink) Configure(any) error { return nil }
func (c *captureSink) Open(_ context.Context, h []string) error {
	c.opened, c.header = true, h
	return nil
}
func (c *captureSink) Push(row []string) error {
	if c.pushErr != nil {
		return c.pushErr
	}
	c.pushed = append(c.pushed, row)
	return nil
}
func (c *captureSink) Commit() error {
	if c.commitErr != nil {
		return c.commitErr
	}
	c.committed = true
	return nil
}
func (c *captureSink) Close() error { c.closed = true; return nil }

// localSink stages its output like the csv and stdout sinks.
type localSink struct{ captureSink }

func (*localSink) Local() {}

func netflixSource() *fakeSource {
	return &fakeSource{
		header: []string{"show_id", "type", "title", "director", "cast", "country", "date_added",
			"release_year", "rating", "duration", "listed_in", "description"},
		rows: [][]string{
			{"s1", "Movie", "Dick Johnson Is Dead", "Kirsten Johnson", "", "United States", "September 25, 2021",
				"2020", "PG-13", "90 min", "Documentaries", "As her father nears the end of his life..."},
			{"s2", "TV Show", "Blood & Water", "", "Ama Qamata", "South Africa", "September 24, 2021",
				"2021", "TV-MA", "2 Seasons", "International TV Shows", "After crossing paths at a party..."},
		},
		failAt: -1,
	}
}

func newRunner(src source.Adapter, stream bool, sinks ...*captureSink) *Runner {
	r := NewRunner()
	r.SetSource(src)
	r.SetTransform(Transform{DropColumns: table.DefaultDropColumns, Stream: stream})
	for i, s := range sinks {
		r.AddSink(string(rune('a'+i)), s)
	}
	return r
}

func TestRunner_TrimsAndCommitsEverySink(t *testing.T) {
	for _, stream := range []bool{false, true} {
		src := netflixSource()
		s1, s2 := &captureSink{}, &captureSink{}
		r := newRunner(src, stream, s1, s2)
		m := telemetry.New()
		r.SetMetrics(m)

		st, err := r.Run(context.Background())
		require.NoError(t, err)

		want := []string{"type", "title", "director", "country", "release_year"}
		for _, s := range []*captureSink{s1, s2} {
			assert.Equal(t, want, s.header)
			require.Len(t, s.pushed, 2)
			assert.Equal(t, []string{"TV Show", "Blood & Water", "", "South Africa", "2021"}, s.pushed[1])
			assert.True(t, s.committed)
			assert.True(t, s.closed)
		}
		assert.True(t, src.closed)
		assert.Equal(t, 2, st.RowsRead)
		assert.Equal(t, 2, st.RowsWritten)
		assert.Equal(t, want, st.OutputColumns)
		assert.Len(t, st.Dropped, 7)
		assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsWritten))
		assert.Equal(t, 7.0, testutil.ToFloat64(m.ColumnsDropped))
	}
}

func TestRunner_MemoryModeParseErrorNeverOpensSinks(t *testing.T) {
	src := netflixSource()
	src.failAt = 1
	s := &captureSink{}

	_, err := newRunner(src, false, s).Run(context.Background())
	var pe *table.ParseError
	require.ErrorAs(t, err, &pe)
	assert.False(t, s.opened)
	assert.Empty(t, s.pushed)
}

func TestRunner_StreamModeParseErrorClosesUncommitted(t *testing.T) {
	src := netflixSource()
	src.failAt = 1
	s := &captureSink{}

	st, err := newRunner(src, true, s).Run(context.Background())
	var pe *table.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Len(t, s.pushed, 1)
	assert.False(t, s.committed)
	assert.True(t, s.closed)
	assert.Equal(t, 1, st.RowsWritten)
}

func TestRunner_StrictMissingColumn(t *testing.T) {
	src := &fakeSource{header: []string{"title", "type"}, failAt: -1}
	s := &captureSink{}

	_, err := newRunner(src, false, s).Run(context.Background())
	var mce *table.MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Len(t, mce.Columns, 7)
	assert.False(t, s.opened)
}

func TestRunner_LenientMissingColumnIsNoOp(t *testing.T) {
	src := &fakeSource{header: []string{"title", "type"}, rows: [][]string{{"Movie A", "Movie"}}, failAt: -1}
	s := &captureSink{}
	r := newRunner(src, false, s)
	r.SetTransform(Transform{DropColumns: table.DefaultDropColumns, AllowMissing: true})

	st, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "type"}, s.header)
	assert.Equal(t, [][]string{{"Movie A", "Movie"}}, s.pushed)
	assert.Len(t, st.Missing, 7)
}

func TestRunner_SinkPushErrorAborts(t *testing.T) {
	boom := errors.New("disk full")
	s1, s2 := &captureSink{}, &captureSink{pushErr: boom}

	_, err := newRunner(netflixSource(), false, s1, s2).Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sink b")
	assert.False(t, s1.committed)
	assert.True(t, s1.closed)
	assert.True(t, s2.closed)
}

func TestRunner_LocalSinksCommitAfterRemote(t *testing.T) {
	boom := errors.New("tx aborted")
	file := &localSink{}
	db := &captureSink{commitErr: boom}
	r := NewRunner()
	r.SetSource(netflixSource())
	r.SetTransform(Transform{DropColumns: table.DefaultDropColumns})
	r.AddSink("csv", file)
	r.AddSink("postgres", db)

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sink postgres")
	assert.False(t, file.committed)
	assert.True(t, file.closed)
}

func TestRunner_MemoryModeParseErrorBeforeMissingColumns(t *testing.T) {
	src := &fakeSource{header: []string{"a", "b"}, rows: [][]string{{"1", "2"}}, failAt: 1}
	s := &captureSink{}

	_, err := newRunner(src, false, s).Run(context.Background())
	var pe *table.ParseError
	require.ErrorAs(t, err, &pe)
	assert.False(t, s.opened)

	src = &fakeSource{header: []string{"a", "b"}, rows: [][]string{{"1", "2"}}, failAt: 1}
	_, err = newRunner(src, true, s).Run(context.Background())
	var mce *table.MissingColumnError
	require.ErrorAs(t, err, &mce, "stream mode checks the header first")
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &captureSink{}

	_, err := newRunner(netflixSource(), true, s).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.committed)
}

func TestRunner_RequiresSourceAndSink(t *testing.T) {
	_, err := NewRunner().Run(context.Background())
	require.Error(t, err)

	r := NewRunner()
	r.SetSource(netflixSource())
	_, err = r.Run(context.Background())
	require.Error(t, err)
}

func TestCompile_JobFileEndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.csv"),
		[]byte("show_id,title,cast,date_added,rating,duration,listed_in,description,type\n"+
			"s1,Movie A,Actor X,2020-01-01,PG,90 min,Dramas,\"A story.\",Movie\n"), 0o644))
	job := filepath.Join(dir, "job.yml")
	require.NoError(t, os.WriteFile(job, []byte(`schema_version: v1
source: { kind: file, path: in.csv }
transform: { mode: stream }
sinks: [csv]
sink_configs:
  csv: { path: out.csv }
`), 0o644))

	r, spec, err := Compile(job)
	require.NoError(t, err)
	assert.True(t, r.Transform().Stream)
	assert.Equal(t, filepath.Join(dir, "out.csv"), spec.SinkConfigs.CSV.Path)

	_, err = r.Run(context.Background())
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	assert.Equal(t, "title,type\nMovie A,Movie\n", string(got))
}

func TestCompile_UnknownSink(t *testing.T) {
	dir := t.TempDir()
	job := filepath.Join(dir, "job.yml")
	require.NoError(t, os.WriteFile(job, []byte("source: { path: in.csv }\nsinks: [ftp]\n"), 0o644))
	_, _, err := Compile(job)
	require.Error(t, err)
}
