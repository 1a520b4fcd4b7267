package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultsUnchanged(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("defaults changed by Validate (-want +got):\n%s", diff)
	}
}

func TestValidate_ClampsOutOfRange(t *testing.T) {
	cfg := &Config{
		FocalLength:          -1,
		HistoryLength:        0,
		MaxFeatures:          -5,
		MinMatchCount:        2,
		RatioTestThreshold:   1.5,
		RansacReprojectionPx: 0,
		LSHTables:            0,
		LSHKeySize:           64,
		LSHProbeLevel:        7,
		ORBPatchSize:         0,
		ORBEdgeThreshold:     -1,
		MinMatchPercent:      250,
		MaxFrameWidth:        -1,
		CaptureIntervalMS:    0,
		SelectionW:           -3,
	}
	require.NoError(t, cfg.Validate())
	d := DefaultConfig()
	assert.Equal(t, d.FocalLength, cfg.FocalLength)
	assert.Equal(t, d.HistoryLength, cfg.HistoryLength)
	assert.Equal(t, d.MaxFeatures, cfg.MaxFeatures)
	assert.Equal(t, 4, cfg.MinMatchCount)
	assert.Equal(t, d.RatioTestThreshold, cfg.RatioTestThreshold)
	assert.Equal(t, d.RansacReprojectionPx, cfg.RansacReprojectionPx)
	assert.Equal(t, d.LSHTables, cfg.LSHTables)
	assert.Equal(t, d.LSHKeySize, cfg.LSHKeySize)
	assert.Equal(t, d.LSHProbeLevel, cfg.LSHProbeLevel)
	assert.Equal(t, d.ORBPatchSize, cfg.ORBPatchSize)
	assert.Equal(t, d.ORBEdgeThreshold, cfg.ORBEdgeThreshold)
	assert.Equal(t, d.MinMatchPercent, cfg.MinMatchPercent)
	assert.Zero(t, cfg.MaxFrameWidth)
	assert.Equal(t, d.CaptureIntervalMS, cfg.CaptureIntervalMS)
	assert.Zero(t, cfg.SelectionW)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"min_match_count": 25, "ratio_test_threshold": 0.8}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MinMatchCount)
	assert.InDelta(t, 0.8, cfg.RatioTestThreshold, 1e-12)
	assert.Equal(t, DefaultConfig().HistoryLength, cfg.HistoryLength)
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"history_length": `), 0o644))

	cfg, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	cfg := DefaultConfig()
	cfg.HistoryLength = 3
	cfg.TemplateViews = true
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
