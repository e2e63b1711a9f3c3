package framer

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImages(t *testing.T, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}

	return dir
}

func TestDirFramerOrder(t *testing.T) {
	dir := writeImages(t, "b.jpg", "a.JPEG", "notes.txt", "c.jpg")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o700))

	f := NewDirFramer(dir, false)
	require.NoError(t, f.Start())
	defer f.Stop()

	var names []string
	for {
		frame, err := f.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		assert.Equal(t, len(names)+1, frame.Sequence)
		assert.Equal(t, frame.Name, string(frame.Payload))
		names = append(names, frame.Name)
	}

	assert.Equal(t, []string{"a.JPEG", "b.jpg", "c.jpg"}, names)
}

func TestDirFramerLoop(t *testing.T) {
	dir := writeImages(t, "a.jpg", "b.jpg")

	f := NewDirFramer(dir, true)
	require.NoError(t, f.Start())

	var names []string
	for i := 0; i < 5; i++ {
		frame, err := f.Next()
		require.NoError(t, err)
		names = append(names, frame.Name)
		assert.Equal(t, i+1, frame.Sequence)
	}

	assert.Equal(t, []string{"a.jpg", "b.jpg", "a.jpg", "b.jpg", "a.jpg"}, names)
}

func TestDirFramerEmpty(t *testing.T) {
	dir := writeImages(t, "readme.md")

	err := NewDirFramer(dir, false).Start()
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestDirFramerMissingDir(t *testing.T) {
	err := NewDirFramer(filepath.Join(t.TempDir(), "missing"), false).Start()
	assert.Error(t, err)
}
