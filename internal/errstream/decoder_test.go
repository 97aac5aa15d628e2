package errstream_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xbuild/internal/errstream"
)

func collect(t *testing.T, r io.Reader) ([]errstream.Record, error) {
	t.Helper()
	var out []errstream.Record
	err := errstream.Decode(r, func(rec errstream.Record) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}

func TestDecode_StickyFileAndDefaultLine(t *testing.T) {
	stream := `<errors>
  <error><file>A.java</file><line>10</line><message>bad</message></error>
  <error><line>-1</line><message>oops</message></error>
</errors>`

	got, err := collect(t, strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, []errstream.Record{
		{File: "A.java", Line: 10, Message: "bad"},
		{File: "A.java", Line: 1, Message: "oops"},
	}, got)
}

func TestDecode_LineResetsPerError(t *testing.T) {
	stream := `<errors>
<error><file>A.java</file><line>7</line><message>first</message></error>
<error><file>B.java</file><message>no line</message></error>
<error><file></file><line>0</line><message>zero</message></error>
<error><file>C.java</file><line> 3 </line><message>
  padded
</message></error>
</errors>`

	got, err := collect(t, strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, []errstream.Record{
		{File: "A.java", Line: 7, Message: "first"},
		{File: "B.java", Line: 1, Message: "no line"},
		{File: "B.java", Line: 1, Message: "zero"},
		{File: "C.java", Line: 3, Message: "padded"},
	}, got)
}

func TestDecode_BareSequenceWithoutRoot(t *testing.T) {
	stream := `<error><file>/ws/p/A.java</file><line>2</line><message>x</message></error>
<error><file>/ws/p/B.java</file><line>4</line><message>y</message></error>
`
	got, err := collect(t, strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/ws/p/B.java", got[1].File)
}

func TestDecode_ByteAtATime(t *testing.T) {
	stream := `<errors><error><file>A.java</file><line>12</line><message>a &lt; b</message></error></errors>`
	got, err := collect(t, iotest.OneByteReader(strings.NewReader(stream)))
	require.NoError(t, err)
	assert.Equal(t, []errstream.Record{{File: "A.java", Line: 12, Message: "a < b"}}, got)
}

func TestDecode_EmitsBeforeStreamEnds(t *testing.T) {
	pr, pw := io.Pipe()
	records := make(chan errstream.Record, 1)
	done := make(chan error, 1)
	go func() {
		done <- errstream.Decode(pr, func(rec errstream.Record) error {
			records <- rec
			return nil
		})
	}()

	_, err := io.WriteString(pw, `<errors><error><file>A.java</file><line>1</line><message>early</message></error>`)
	require.NoError(t, err)

	select {
	case rec := <-records:
		assert.Equal(t, "early", rec.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("record was not emitted while the stream was still open")
	}

	_, err = io.WriteString(pw, `</errors>`)
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	require.NoError(t, <-done)
}

func TestDecode_EmptyStream(t *testing.T) {
	got, err := collect(t, strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecode_Malformed(t *testing.T) {
	tests := map[string]string{
		"mismatched tags": `<errors><error><file>A.java</line></error></errors>`,
		"truncated":       `<errors><error><file>A.java</file>`,
		"bad line":        `<errors><error><file>A.java</file><line>ten</line><message>m</message></error></errors>`,
	}
	for name, stream := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := collect(t, strings.NewReader(stream))
			require.ErrorIs(t, err, errstream.ErrMalformed)
		})
	}
}

func TestDecode_RecordsBeforeMalformedAreDelivered(t *testing.T) {
	stream := `<errors><error><file>A.java</file><line>1</line><message>ok</message></error><error><file>`
	got, err := collect(t, strings.NewReader(stream))
	require.ErrorIs(t, err, errstream.ErrMalformed)
	assert.Len(t, got, 1)
}

func TestDecode_HandlerErrorStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	stream := `<errors><error><message>a</message></error><error><message>b</message></error></errors>`
	err := errstream.Decode(strings.NewReader(stream), func(errstream.Record) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.NotErrorIs(t, err, errstream.ErrMalformed)
	assert.Equal(t, 1, calls)
}

func TestState_CarriesFileAcrossStreams(t *testing.T) {
	var st errstream.State
	var got []errstream.Record
	handle := func(rec errstream.Record) error {
		got = append(got, rec)
		return nil
	}
	require.NoError(t, st.Decode(strings.NewReader(`<error><file>A.java</file><message>one</message></error>`), handle))
	require.NoError(t, st.Decode(strings.NewReader(`<error><message>two</message></error>`), handle))
	require.Len(t, got, 2)
	assert.Equal(t, "A.java", got[1].File)
}
