package epg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func TestWriteXMLTV_AtomicWriteRoundTrips(t *testing.T) {
	events := []model.EPGEvent{
		{UTCStartMs: 0, UTCEndMs: 30 * 60_000, Title: "Episode One", Synopsis: "synopsis"},
	}
	tv := BuildTV("chan-1", "Channel One", events)

	outPath := filepath.Join(t.TempDir(), "guide.xml")
	require.NoError(t, WriteXMLTV(tv, outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "Episode One")
	require.Contains(t, string(data), `id="chan-1"`)
}
