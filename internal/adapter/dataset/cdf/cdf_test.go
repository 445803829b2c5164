package cdf_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go.ngs.io/envreader/internal/adapter/dataset"
	"go.ngs.io/envreader/internal/adapter/dataset/datasettest"
	"go.ngs.io/envreader/internal/adapter/dataset/cdf"
)

func TestBackend(t *testing.T) {
	datasettest.RunBackend(t, func(path string) (dataset.Dataset, error) {
		return cdf.Open(path)
	})
}

func TestOpenMissingFile(t *testing.T) {
	_, err := cdf.Open(filepath.Join(t.TempDir(), "absent.nc"))
	require.Error(t, err)
}
