package native_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go.ngs.io/envreader/internal/adapter/dataset"
	"go.ngs.io/envreader/internal/adapter/dataset/datasettest"
	"go.ngs.io/envreader/internal/adapter/dataset/native"
)

func TestBackend(t *testing.T) {
	datasettest.RunBackend(t, func(path string) (dataset.Dataset, error) {
		return native.Open(path)
	})
}

func TestOpenMissingFile(t *testing.T) {
	_, err := native.Open(filepath.Join(t.TempDir(), "absent.nc"))
	require.Error(t, err)
}
