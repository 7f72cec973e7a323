package synonym

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
)

func TestBuildAndLookup(t *testing.T) {
	tbl, err := Build([]Record{
		{Key: "Car", Synonyms: []string{"automobile", "motor vehicle"}},
		{Key: "car", Synonyms: []string{"ignored"}},
		{Key: "big", Value: []string{"large"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"automobile", "motor vehicle"}, tbl.Lookup("CAR"))
	assert.Equal(t, []string{"large"}, tbl.Lookup("big"))
	assert.Nil(t, tbl.Lookup("small"))
}

func TestBuildRejectsEmptyKeys(t *testing.T) {
	_, err := Build([]Record{{Key: ""}, {Key: "ok"}, {Key: "  "}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfig))
	assert.Contains(t, err.Error(), "record 0")
	assert.Contains(t, err.Error(), "record 2")
}

func TestExpand(t *testing.T) {
	tbl, err := Build([]Record{
		{Key: "car", Synonyms: []string{"automobile", "Motor-Vehicle"}},
		{Key: "fast", Synonyms: []string{"quick"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"automobile", "motor", "vehicle"}, tbl.Expand("red [car]"))
	assert.Equal(t, []string{"automobile", "motor", "vehicle", "quick"}, tbl.Expand("[car] is [fast]"))
	assert.Equal(t, []string{"automobile", "motor", "vehicle", "quick"}, tbl.Expand("[Car fast]"))
	assert.Empty(t, tbl.Expand("car fast"), "no brackets")
	assert.Empty(t, tbl.Expand("[car fast"), "unmatched bracket")
	assert.Empty(t, tbl.Expand("[]"))
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	assert.Equal(t, 0, tbl.Len())
	assert.Nil(t, tbl.Lookup("x"))
	assert.Nil(t, tbl.Expand("[x]"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "synonyms.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"key":"happy","value":["glad","joyful"]}]`), 0o644))
	yamlPath := filepath.Join(dir, "synonyms.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- key: sad\n  synonyms: [unhappy]\n"), 0o644))

	tbl, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"glad", "joyful"}, tbl.Lookup("happy"))

	tbl, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"unhappy"}, tbl.Lookup("sad"))

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"key":`), 0o644))
	_, err = LoadFile(badPath)
	assert.True(t, errors.Is(err, apperrors.ErrConfig))

	_, err = LoadFile(filepath.Join(dir, "synonyms.txt"))
	assert.True(t, errors.Is(err, apperrors.ErrConfig))
}

func TestLookupFoldsAccents(t *testing.T) {
	tbl, err := Build([]Record{{Key: "Niño", Synonyms: []string{"chico"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"chico"}, tbl.Lookup("nino"))
	assert.Equal(t, []string{"chico"}, tbl.Expand("[NIÑO]"))
}
