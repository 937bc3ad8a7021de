package raster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectPagesSortsNumerically(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "page")

	// pdftoppm pads page numbers to the width of the last page, but older
	// versions did not. Write unpadded names so lexical order is wrong.
	for _, n := range []string{"1", "2", "10", "3"} {
		err := os.WriteFile(prefix+"-"+n+".jpg", []byte("page "+n), 0o600)
		require.NoError(t, err)
	}

	pages, err := collectPages(prefix)
	require.NoError(t, err)
	require.Len(t, pages, 4)

	assert.Equal(t, []byte("page 1"), pages[0])
	assert.Equal(t, []byte("page 2"), pages[1])
	assert.Equal(t, []byte("page 3"), pages[2])
	assert.Equal(t, []byte("page 10"), pages[3])
}

func TestCollectPagesFailsWhenEmpty(t *testing.T) {
	dir := t.TempDir()

	_, err := collectPages(filepath.Join(dir, "page"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pages")
}

func TestPageNumberOf(t *testing.T) {
	assert.Equal(t, 7, pageNumberOf("/tmp/work/page-07.jpg"))
	assert.Equal(t, 123, pageNumberOf("page-123.jpg"))
	assert.Equal(t, 0, pageNumberOf("page.jpg"))
}
