package recognizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelMapPath(t *testing.T) {
	assert.Equal(t, "models/trained_model_labels.json", LabelMapPath("models/trained_model.yml"))
	assert.Equal(t, "m_labels.json", LabelMapPath("m.xml"))
}

func TestBuildLabelMapWithKeys(t *testing.T) {
	labels := []int{0, 0, 1, 1, 2, 2}
	keys := []string{"E028-01-1303/2020", "E028-01-0042/2022", "B12/2024"}

	lm := BuildLabelMap(labels, keys)
	require.Len(t, lm, 3)
	// keys[i] names label i, whatever its lexical rank.
	assert.Equal(t, "E028-01-1303/2020", lm[0])
	assert.Equal(t, "E028-01-0042/2022", lm[1])
	assert.Equal(t, "B12/2024", lm[2])
}

func TestBuildLabelMapKeepsKeyOrder(t *testing.T) {
	// Directory names sort "A-2020" before "A-B-2020" ('-' < 'B'), but
	// the registration numbers they decode to sort the other way round
	// ("A-B/2020" < "A/2020", '-' < '/'). The map must follow label
	// assignment order, not re-sort the registration numbers.
	labels := []int{0, 1}
	keys := []string{"A/2020", "A-B/2020"}

	lm := BuildLabelMap(labels, keys)
	assert.Equal(t, "A/2020", lm.Lookup(0))
	assert.Equal(t, "A-B/2020", lm.Lookup(1))
}

func TestBuildLabelMapPlaceholder(t *testing.T) {
	// Key cardinality mismatch falls back to identity mapping.
	lm := BuildLabelMap([]int{0, 1, 2}, []string{"only-one"})
	assert.Equal(t, LabelMap{0: "0", 1: "1", 2: "2"}, lm)

	lm = BuildLabelMap([]int{0, 1}, nil)
	assert.Equal(t, "0", lm.Lookup(0))
	assert.Equal(t, "7", lm.Lookup(7), "unknown labels fall back to their string form")
}

func TestLabelMapRoundTrip(t *testing.T) {
	lm := LabelMap{0: "E028-01-1303/2020", 1: "E028-01-0042/2022"}
	path := filepath.Join(t.TempDir(), "label_map.json")

	require.NoError(t, lm.Save(path))

	loaded, err := LoadLabelMap(path)
	require.NoError(t, err)
	assert.Equal(t, lm, loaded)
}

func TestLabelMapIsHumanInspectable(t *testing.T) {
	lm := LabelMap{0: "B12/2024"}
	path := filepath.Join(t.TempDir(), "label_map.json")
	require.NoError(t, lm.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Indented JSON object with stringified integer keys.
	assert.Contains(t, string(data), "\n  \"0\": \"B12/2024\"")

	var raw map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "B12/2024", raw["0"])
}

func TestLoadLabelMapErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadLabelMap(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not-an-int": "x"}`), 0o644))
	_, err = LoadLabelMap(bad)
	assert.Error(t, err)
}
