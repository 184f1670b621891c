package storage

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	name  string
	value string
}

func (r testRow) Header() []string { return []string{"name", "value"} }
func (r testRow) Values() []string { return []string{r.name, r.value} }

func TestWriteCSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	rows := []testRow{{"Gladiator", "460583960"}, {"Cast Away, The", ""}}

	require.NoError(t, WriteCSV(fs, "out/data.csv", rows[0].Header(), rows))

	got, err := afero.ReadFile(fs, "out/data.csv")
	require.NoError(t, err)
	assert.Equal(t, "name,value\nGladiator,460583960\n\"Cast Away, The\",\n", string(got))
}

func TestWriteCSV_ReplacesExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "data.csv", []byte("old content that is longer\n"), 0o644))

	require.NoError(t, WriteCSV(fs, "data.csv", []string{"name", "value"}, []testRow{{"a", "1"}}))

	got, err := afero.ReadFile(fs, "data.csv")
	require.NoError(t, err)
	assert.Equal(t, "name,value\na,1\n", string(got))
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, WriteCSV[testRow](fs, "empty.csv", []string{"name", "value"}, nil))

	got, err := afero.ReadFile(fs, "empty.csv")
	require.NoError(t, err)
	assert.Equal(t, "name,value\n", string(got))
}

func TestWriteCSV_ReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	err := WriteCSV(fs, "data.csv", []string{"name"}, []testRow{{"a", "1"}})
	assert.Error(t, err)
}
