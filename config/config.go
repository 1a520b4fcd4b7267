package config

import (
	"encoding/json"
	"os"
)

// Config holds runtime configuration for tracking and app behavior.
// Fields may be loaded from a JSON file and overridden by command-line flags.
type Config struct {
	Debug bool `json:"debug"`

	// Tracking parameters
	FocalLength          float64 `json:"focal_length"`
	HistoryLength        int     `json:"history_length"`
	MaxFeatures          int     `json:"max_features"`
	MinMatchCount        int     `json:"min_match_count"` // raised to 4 by Validate
	RatioTestThreshold   float64 `json:"ratio_test_threshold"`
	RansacReprojectionPx float64 `json:"ransac_reprojection_px"`

	// Descriptor index (LSH) parameters
	LSHTables     int `json:"lsh_tables"`
	LSHKeySize    int `json:"lsh_key_size"`
	LSHProbeLevel int `json:"lsh_probe_level"`

	// ORB border handling; keypoints closer than this to the image edge are skipped.
	ORBEdgeThreshold int `json:"orb_edge_threshold"`
	ORBPatchSize     int `json:"orb_patch_size"`

	// TemplateViews registers the whole image plus three sub-views per template.
	// Overlapping views index identical descriptors, so the ratio test discards
	// matches inside the overlap; off by default.
	TemplateViews bool `json:"template_views"`

	// MinMatchPercent is the decision threshold applied by the app to match_ratio.
	MinMatchPercent float64 `json:"min_match_percent"`

	// Frames larger than this are shrunk before tracking (0 disables).
	MaxFrameWidth  int `json:"max_frame_width"`
	MaxFrameHeight int `json:"max_frame_height"`

	// Live capture
	CaptureIntervalMS int `json:"capture_interval_ms"`
	SelectionX        int `json:"selection_x"`
	SelectionY        int `json:"selection_y"`
	SelectionW        int `json:"selection_w"`
	SelectionH        int `json:"selection_h"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:                false,
		FocalLength:          0.025,
		HistoryLength:        10,
		MaxFeatures:          1500,
		MinMatchCount:        15,
		RatioTestThreshold:   0.75,
		RansacReprojectionPx: 3.0,
		LSHTables:            6,
		LSHKeySize:           12,
		LSHProbeLevel:        1,
		ORBEdgeThreshold:     31,
		ORBPatchSize:         31,
		TemplateViews:        false,
		MinMatchPercent:      30,
		MaxFrameWidth:        0,
		MaxFrameHeight:       0,
		CaptureIntervalMS:    100,
		SelectionX:           0,
		SelectionY:           0,
		SelectionW:           0,
		SelectionH:           0,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.FocalLength < 0 {
		c.FocalLength = d.FocalLength
	}
	if c.HistoryLength < 1 {
		c.HistoryLength = d.HistoryLength
	}
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = d.MaxFeatures
	}
	if c.MinMatchCount <= 0 {
		c.MinMatchCount = d.MinMatchCount
	}
	// A homography needs at least four correspondences.
	if c.MinMatchCount < 4 {
		c.MinMatchCount = 4
	}
	if c.RatioTestThreshold <= 0 || c.RatioTestThreshold >= 1 {
		c.RatioTestThreshold = d.RatioTestThreshold
	}
	if c.RansacReprojectionPx <= 0 {
		c.RansacReprojectionPx = d.RansacReprojectionPx
	}
	if c.LSHTables <= 0 {
		c.LSHTables = d.LSHTables
	}
	if c.LSHKeySize <= 0 || c.LSHKeySize > 32 {
		c.LSHKeySize = d.LSHKeySize
	}
	if c.LSHProbeLevel < 0 || c.LSHProbeLevel > 2 {
		c.LSHProbeLevel = d.LSHProbeLevel
	}
	if c.ORBPatchSize < 2 {
		c.ORBPatchSize = d.ORBPatchSize
	}
	if c.ORBEdgeThreshold < 0 {
		c.ORBEdgeThreshold = d.ORBEdgeThreshold
	}
	if c.MinMatchPercent < 0 || c.MinMatchPercent > 100 {
		c.MinMatchPercent = d.MinMatchPercent
	}
	if c.MaxFrameWidth < 0 {
		c.MaxFrameWidth = 0
	}
	if c.MaxFrameHeight < 0 {
		c.MaxFrameHeight = 0
	}
	if c.CaptureIntervalMS <= 0 {
		c.CaptureIntervalMS = d.CaptureIntervalMS
	}
	if c.SelectionW < 0 || c.SelectionH < 0 {
		c.SelectionW, c.SelectionH = 0, 0
	}
	return nil
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
