package timezone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNowIsPortalLocal(t *testing.T) {
	now := Now()
	require.Equal(t, Location, now.Location())

	_, offset := now.Zone()
	// IST is UTC+5:30 year round, no DST
	require.Equal(t, 5*3600+30*60, offset)
}
