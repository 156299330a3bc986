package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "brandscraper/pkg/errors"
	"brandscraper/pkg/models"
)

func sample() *models.Snapshot {
	return &models.Snapshot{
		Products: []models.ProductRecord{
			{Name: "Box of Chocolate Candy", Price: "24.99"},
			{Name: "Box of Chocolate Candy", Price: "24.99"},
		},
		Testimonials: []models.TestimonialRecord{
			{Text: "Fish & chips <3", Author: "Jane"},
		},
		Reviews: []models.ReviewRecord{
			{Text: "Très bon", Date: "2022-07-22"},
			{Text: "", Date: models.DefaultReviewDate},
		},
	}
}

func TestWriteLoadPreservesOrderAndDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	want := sample()

	require.NoError(t, Write(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalFormat(t *testing.T) {
	data, err := Marshal(sample())
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "{\n    \"products\": [\n        {\n            \"name\""), text)
	assert.Contains(t, text, "Fish & chips <3", "HTML characters stay literal")
	assert.Contains(t, text, "Très bon", "non-ASCII stays UTF-8")
	assert.Less(t, strings.Index(text, `"products"`), strings.Index(text, `"testimonials"`))
	assert.Less(t, strings.Index(text, `"testimonials"`), strings.Index(text, `"reviews"`))
}

func TestMarshalEmptyCollections(t *testing.T) {
	data, err := Marshal(&models.Snapshot{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"products":[],"testimonials":[],"reviews":[]}`, string(data))
}

func TestWriteOverwritesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, Write(path, sample()))

	next := models.NewSnapshot(nil, nil, []models.ReviewRecord{{Text: "only", Date: "2024-01-01"}})
	require.NoError(t, Write(path, next))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(next, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestInterruptedWriteLeavesPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, Write(path, sample()))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	var sawTemp string
	beforeRename = func(tmp string) error {
		sawTemp = tmp
		return errors.New("power cut")
	}
	defer func() { beforeRename = func(string) error { return nil } }()

	err = Write(path, models.NewSnapshot(nil, nil, nil))
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeIO))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "canonical path untouched")

	assert.Equal(t, dir, filepath.Dir(sawTemp), "temp file lives beside the target")
	_, err = os.Stat(sawTemp)
	assert.True(t, os.IsNotExist(err), "temp file removed")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInterruptedFirstWriteLeavesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "data.json")

	beforeRename = func(string) error { return errors.New("killed") }
	defer func() { beforeRename = func(string) error { return nil } }()

	require.Error(t, Write(path, sample()))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, Write(path, sample()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestWriteFileKeepsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, WriteFile(path, []byte("first"), 0600))
	require.NoError(t, WriteFile(path, []byte("second"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errs.IsType(err, errs.ErrorTypeIO))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = Load(bad)
	assert.True(t, errs.IsType(err, errs.ErrorTypeDecode))
}

func TestLoadNormalizesNulls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"products":null,"reviews":[]}`), 0644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.NotNil(t, got.Products)
	assert.NotNil(t, got.Testimonials)
}
