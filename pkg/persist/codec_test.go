package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	codec := NewJSONCodec()
	require.NoError(t, codec.Encode(&buf, testState{Name: "backend", Count: 42}))

	var decoded testState
	require.NoError(t, codec.Decode(&buf, &decoded))

	assert.Equal(t, testState{Name: "backend", Count: 42}, decoded)
}

func TestJSONCodec_PrettyVersusCompact(t *testing.T) {
	t.Parallel()

	var pretty, compact bytes.Buffer

	require.NoError(t, NewJSONCodec().Encode(&pretty, testState{Name: "x"}))
	require.NoError(t, NewCompactJSONCodec().Encode(&compact, testState{Name: "x"}))

	assert.Contains(t, pretty.String(), "\n  ")
	assert.NotContains(t, strings.TrimSuffix(compact.String(), "\n"), "\n")
}

func TestLZ4Codec_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	codec := NewLZ4Codec()
	require.NoError(t, codec.Encode(&buf, testState{Name: "backend", Count: 42}))

	// Frame output is not plain JSON.
	assert.NotContains(t, buf.String(), "backend")

	var decoded testState
	require.NoError(t, codec.Decode(&buf, &decoded))

	assert.Equal(t, testState{Name: "backend", Count: 42}, decoded)
}

func TestCodec_Extensions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".json", NewJSONCodec().Extension())
	assert.Equal(t, ".json.lz4", NewLZ4Codec().Extension())
}

func TestSaveState_LoadState(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	codec := NewJSONCodec()

	require.NoError(t, SaveState(dir, "index", codec, testState{Name: "backend", Count: 7}))

	_, err := os.Stat(filepath.Join(dir, "index.json"))
	require.NoError(t, err)

	var decoded testState
	require.NoError(t, LoadState(dir, "index", codec, &decoded))

	assert.Equal(t, testState{Name: "backend", Count: 7}, decoded)
}

func TestLoadState_MissingFile(t *testing.T) {
	t.Parallel()

	var decoded testState
	err := LoadState(t.TempDir(), "absent", NewJSONCodec(), &decoded)

	require.Error(t, err)
}

func TestSaveState_LoadState_LZ4(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	codec := NewLZ4Codec()

	require.NoError(t, SaveState(dir, "backend_commits", codec, testState{Name: "backend"}))

	_, err := os.Stat(filepath.Join(dir, "backend_commits.json.lz4"))
	require.NoError(t, err)

	var decoded testState
	require.NoError(t, LoadState(dir, "backend_commits", codec, &decoded))

	assert.Equal(t, "backend", decoded.Name)
}
