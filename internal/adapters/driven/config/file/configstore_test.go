package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("test_key", "test_value")
	require.NoError(t, err)

	val, ok := store.Get("test_key")
	assert.True(t, ok)
	assert.Equal(t, "test_value", val)
}

func TestConfigStore_GetString(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("string_key", "hello world"))
	assert.Equal(t, "hello world", store.GetString("string_key"))

	// Non-existent key
	assert.Equal(t, "", store.GetString("nonexistent"))

	// Wrong type
	require.NoError(t, store.Set("int_key", 42))
	assert.Equal(t, "", store.GetString("int_key"))
}

func TestConfigStore_GetInt(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("int_key", 42))
	assert.Equal(t, 42, store.GetInt("int_key"))

	assert.Equal(t, 0, store.GetInt("nonexistent"))

	require.NoError(t, store.Set("string_key", "not an int"))
	assert.Equal(t, 0, store.GetInt("string_key"))
}

func TestConfigStore_GetFloat(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("threshold", 0.35))
	assert.Equal(t, 0.35, store.GetFloat("threshold"))

	// Integers coerce
	require.NoError(t, store.Set("whole", 2))
	assert.Equal(t, 2.0, store.GetFloat("whole"))

	assert.Equal(t, 0.0, store.GetFloat("nonexistent"))
}

func TestConfigStore_GetBool(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("bool_key", true))
	assert.True(t, store.GetBool("bool_key"))

	assert.False(t, store.GetBool("nonexistent"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("slice_key", []string{"a", "b", "c"}))
	assert.Equal(t, []string{"a", "b", "c"}, store.GetStringSlice("slice_key"))

	assert.Nil(t, store.GetStringSlice("nonexistent"))
}

func TestConfigStore_PersistsAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("embedding.provider", "openai"))
	require.NoError(t, store.Set("search.similarity_threshold", 0.35))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "openai", reopened.GetString("embedding.provider"))
	assert.Equal(t, 0.35, reopened.GetFloat("search.similarity_threshold"))
}

func TestConfigStore_FlattensNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `[embedding]
provider = "ollama"
model = "nomic-embed-text"

[llm]
provider = "openai"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, "nomic-embed-text", store.GetString("embedding.model"))
	assert.Equal(t, "openai", store.GetString("llm.provider"))
}

func TestConfigStore_LoadInvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("not [valid toml"), 0600))

	_, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
}
