package pagedump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAndWipe(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")

	out, err := New(dir)
	require.NoError(t, err)
	out.Write("calendar.html", "<html>first run</html>")

	contents, err := os.ReadFile(filepath.Join(dir, "calendar.html"))
	require.NoError(t, err)
	require.Equal(t, "<html>first run</html>", string(contents))

	// a new run starts from an empty directory
	_, err = New(dir)
	require.NoError(t, err)
	_, err = os.ReadFile(filepath.Join(dir, "calendar.html"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestZeroOutputIsNoop(t *testing.T) {
	var out Output
	out.Write("anything.html", "ignored")
}
