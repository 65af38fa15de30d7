package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openDrivers(t *testing.T) map[string]KeyValueStore {
	t.Helper()
	dir := t.TempDir()

	fileKV, err := Open("file", filepath.Join(dir, "kv"))
	require.NoError(t, err)
	sqliteKV, err := Open("sqlite", filepath.Join(dir, "drafts.db"))
	require.NoError(t, err)

	stores := map[string]KeyValueStore{
		"file":   fileKV,
		"sqlite": sqliteKV,
		"memory": NewMemoryKV(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestKeyValueStores(t *testing.T) {
	for name, kv := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get("form_missing")
			assert.True(t, errors.Is(err, ErrKeyNotFound))

			require.NoError(t, kv.Set("form_f1", []byte(`{"currentStep":0}`)))
			require.NoError(t, kv.Set("form_f2", []byte(`{"currentStep":1}`)))
			require.NoError(t, kv.Set("settings", []byte(`{}`)))
			require.NoError(t, kv.Set("form_f1", []byte(`{"currentStep":2}`)))

			got, err := kv.Get("form_f1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"currentStep":2}`, string(got))

			keys, err := kv.Keys("form_")
			require.NoError(t, err)
			assert.Equal(t, []string{"form_f1", "form_f2"}, keys)

			require.NoError(t, kv.Remove("form_f1"))
			assert.True(t, errors.Is(kv.Remove("form_f1"), ErrKeyNotFound))

			_, err = kv.Get("form_f1")
			assert.True(t, errors.Is(err, ErrKeyNotFound))
		})
	}
}

func TestFileKVEscapesKeys(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Set("form_a/b c", []byte("1")))
	keys, err := kv.Keys("form_")
	require.NoError(t, err)
	assert.Equal(t, []string{"form_a/b c"}, keys)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("redis", "")
	assert.Error(t, err)
}

func TestFileStorageJSON(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer fs.Close()

	type record struct {
		Name string `json:"name"`
	}
	require.NoError(t, fs.SaveJSONFile("users/u1", "a.json", record{Name: "first"}))

	var out record
	require.NoError(t, fs.LoadJSONFile("users/u1", "a.json", &out))
	assert.Equal(t, "first", out.Name)

	// 写入后缓存失效
	require.NoError(t, fs.SaveJSONFile("users/u1", "a.json", record{Name: "second"}))
	require.NoError(t, fs.LoadJSONFile("users/u1", "a.json", &out))
	assert.Equal(t, "second", out.Name)

	files, err := fs.ListFiles("users/u1", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json"}, files)

	empty, err := fs.ListFiles("users/nobody", ".json")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, fs.DeleteFile("users/u1", "a.json"))
	assert.True(t, errors.Is(fs.DeleteFile("users/u1", "a.json"), ErrFileNotFound))
	assert.True(t, errors.Is(fs.LoadJSONFile("users/u1", "a.json", &out), ErrFileNotFound))
}
