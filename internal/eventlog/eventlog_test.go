package eventlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptrackio/ptrack/internal/eventsink"
	"github.com/ptrackio/ptrack/internal/funcgraph"
)

func newSink(t *testing.T) *eventsink.Sink {
	t.Helper()
	sink := eventsink.New()
	require.NoError(t, sink.Init(1000, 100, "&host", funcgraph.CostParams{PerAccessComputeCost: 1, Parallelism: 1},
		"&accel", funcgraph.CostParams{PerAccessComputeCost: 10, Parallelism: 1}))
	return sink
}

func TestReplay_RoundTrip(t *testing.T) {
	sink := newSink(t)

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Enter("main"))
	require.NoError(t, enc.Call("main", "work"))
	require.NoError(t, enc.Write("work", 0x1000))
	require.NoError(t, enc.Read("work", 0x1000))

	n, err := Replay(&buf, sink)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	fg, err := sink.Teardown()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fg.TotalCalls())
}

func TestReplay_SkipsBlankLines(t *testing.T) {
	sink := newSink(t)
	input := "\n" + `{"kind":"call","caller":"a","callee":"b"}` + "\n\n"

	n, err := Replay(strings.NewReader(input), sink)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReplay_MalformedLine(t *testing.T) {
	sink := newSink(t)
	_, err := Replay(strings.NewReader("not json"), sink)
	assert.Error(t, err)
}

func TestReplay_UnknownKind(t *testing.T) {
	sink := newSink(t)
	_, err := Replay(strings.NewReader(`{"kind":"teleport"}`), sink)
	assert.Error(t, err)
}

func TestReplay_MathLibraryCharge(t *testing.T) {
	sink := newSink(t)
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Call("work", "sqrt"))

	_, err := Replay(&buf, sink)
	require.NoError(t, err)

	fg, err := sink.Teardown()
	require.NoError(t, err)
	assert.Greater(t, fg.TotalAccesses(), uint64(0))
}
