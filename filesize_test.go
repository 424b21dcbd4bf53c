package filesize

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timfallmk/filesize/internal/testutils"
)

func TestSizeOnDisk_NotExist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")

	size, err := SizeOnDisk(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "want not-exist error, got %v", err)
	assert.Zero(t, size)

	var pathErr *fs.PathError
	assert.True(t, errors.As(err, &pathErr), "want *fs.PathError, got %T", err)

	_, err = Path(path).SizeOnDisk()
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestSizeOnDisk_EmptyFile(t *testing.T) {
	path := testutils.CreateFile(t, "empty", 0)

	size, err := SizeOnDisk(path)
	require.NoError(t, err)
	// Zero, or a minimum allocation unit on filesystems that charge one.
	assert.LessOrEqual(t, size, uint64(64*1024))
}

func TestSizeOnDisk_Idempotent(t *testing.T) {
	path := testutils.CreateFile(t, "data", 100_000)

	first, err := SizeOnDisk(path)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := SizeOnDisk(path)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPathMethods(t *testing.T) {
	path := testutils.CreateFile(t, "data", 12_345)

	want, err := SizeOnDisk(path)
	require.NoError(t, err)

	got, err := Path(path).SizeOnDisk()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Lstat(path)
	require.NoError(t, err)

	wantFast, err := SizeOnDiskFast(path, info)
	require.NoError(t, err)

	gotFast, err := Path(path).SizeOnDiskFast(info)
	require.NoError(t, err)
	assert.Equal(t, wantFast, gotFast)

	assert.Equal(t, path, Path(path).String())
}

func TestSizeOnDisk_Concurrent(t *testing.T) {
	path := testutils.CreateFile(t, "data", 50_000)

	want, err := SizeOnDisk(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan uint64, 16)

	for i := 0; i < cap(results); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			size, err := SizeOnDisk(path)
			if err != nil {
				t.Errorf("SizeOnDisk() error = %v", err)
				return
			}
			results <- size
		}()
	}

	wg.Wait()
	close(results)

	for got := range results {
		assert.Equal(t, want, got)
	}
}
