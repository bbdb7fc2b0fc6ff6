package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls int
}

func (l *countingLoader) load(path string) (string, error) {
	l.calls++
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func TestFileDataReusesValueForUnchangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	loader := &countingLoader{}
	c := NewFileData(path, nil, loader.load)

	v, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, "one", v)

	v, err = c.Get()
	require.NoError(t, err)
	assert.Equal(t, "one", v)
	assert.Equal(t, 1, loader.calls)
}

func TestFileDataReloadsOnChange(t *testing.T) {
	tests := []struct {
		name   string
		change func(t *testing.T, path string)
		want   string
	}{
		{
			name: "size changed",
			change: func(t *testing.T, path string) {
				info, err := os.Stat(path)
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(path, []byte("three"), 0o644))
				// Keep the mtime so only the size differs.
				require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))
			},
			want: "three",
		},
		{
			name: "mtime changed",
			change: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
				later := time.Now().Add(time.Hour)
				require.NoError(t, os.Chtimes(path, later, later))
			},
			want: "two",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.json")
			require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
			loader := &countingLoader{}
			c := NewFileData(path, &sync.Mutex{}, loader.load)

			_, err := c.Get()
			require.NoError(t, err)

			tt.change(t, path)

			v, err := c.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, 2, loader.calls)
		})
	}
}

func TestFileDataBypassesCacheWhenStatFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	loader := &countingLoader{}
	c := NewFileData(path, nil, loader.load)

	_, err := c.Get()
	assert.Error(t, err)
	_, err = c.Get()
	assert.Error(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestFileDataInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
	loader := &countingLoader{}
	c := NewFileData(path, nil, loader.load)

	_, err := c.Get()
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}
