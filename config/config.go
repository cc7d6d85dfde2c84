// Package config defines the tunable parameters of the tabletop perception
// pipeline and how they are read and validated.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/tabletop/spatialmath"
)

// Default values. These were tuned empirically against a tabletop depth
// camera at roughly 10 Hz.
const (
	DefaultColorThreshDeg   = 20.0
	DefaultDistanceThreshM  = 0.01
	DefaultRansacThreshM    = 0.01
	DefaultRansacPercent    = 0.1
	DefaultRansacIterations = 2000
	DefaultRansacSeed       = 1
	DefaultMinObjectSize    = 50
	DefaultMaxHistorySec    = 10.0
	DefaultMaxTravelDistM   = 0.07
	DefaultMaxColorChange   = 60.0
	DefaultDarkThreshold    = 30
	DefaultMaxHeightM       = 0.3
)

// Config holds every named parameter of the pipeline.
type Config struct {
	// Clustering.
	ColorThreshDeg  float64 `json:"color_thresh_deg"`
	DistanceThreshM float64 `json:"distance_thresh_m"`
	MinObjectSize   int     `json:"min_object_size"`

	// Floor estimation and filtering.
	RansacThreshM    float64 `json:"ransac_thresh_m"`
	RansacPercent    float64 `json:"ransac_percent"`
	RansacIterations int     `json:"ransac_iterations"`
	RansacSeed       int64   `json:"ransac_seed"`
	RefineFloor      bool    `json:"refine_floor"`
	MaxHeightM       float64 `json:"max_height_m"`

	// Identity tracking.
	MaxHistorySec  float64 `json:"max_history_sec"`
	MaxTravelDistM float64 `json:"max_travel_dist_m"`
	MaxColorChange float64 `json:"max_color_change"`
	DarkThreshold  int     `json:"dark_threshold"`

	// CameraExtrinsics is the camera-to-world transform as 16 row-major values.
	// Empty means identity.
	CameraExtrinsics []float64 `json:"camera_extrinsics,omitempty"`

	Debug bool `json:"debug,omitempty"`
}

// Default returns a config with every parameter at its default.
func Default() *Config {
	return &Config{
		ColorThreshDeg:   DefaultColorThreshDeg,
		DistanceThreshM:  DefaultDistanceThreshM,
		MinObjectSize:    DefaultMinObjectSize,
		RansacThreshM:    DefaultRansacThreshM,
		RansacPercent:    DefaultRansacPercent,
		RansacIterations: DefaultRansacIterations,
		RansacSeed:       DefaultRansacSeed,
		MaxHeightM:       DefaultMaxHeightM,
		MaxHistorySec:    DefaultMaxHistorySec,
		MaxTravelDistM:   DefaultMaxTravelDistM,
		MaxColorChange:   DefaultMaxColorChange,
		DarkThreshold:    DefaultDarkThreshold,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	positive := func(name string, v float64) {
		if v <= 0 {
			err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.Errorf("%s must be greater than 0", name)))
		}
	}
	positive("color_thresh_deg", cfg.ColorThreshDeg)
	positive("distance_thresh_m", cfg.DistanceThreshM)
	positive("ransac_thresh_m", cfg.RansacThreshM)
	positive("max_height_m", cfg.MaxHeightM)
	positive("max_history_sec", cfg.MaxHistorySec)
	positive("max_travel_dist_m", cfg.MaxTravelDistM)
	positive("max_color_change", cfg.MaxColorChange)

	if cfg.ColorThreshDeg > 180 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("color_thresh_deg must be in degrees, at most 180")))
	}
	if cfg.RansacPercent <= 0 || cfg.RansacPercent > 1 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("ransac_percent must be in (0, 1]")))
	}
	if cfg.RansacIterations < 1 {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "ransac_iterations"))
	}
	if cfg.MinObjectSize < 1 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("min_object_size must be at least 1")))
	}
	if cfg.DarkThreshold < 0 || cfg.DarkThreshold > 255 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("dark_threshold must be between 0 and 255")))
	}
	if cfg.MaxHeightM > 0 && cfg.RansacThreshM >= cfg.MaxHeightM {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("ransac_thresh_m must be less than max_height_m")))
	}
	if len(cfg.CameraExtrinsics) != 0 {
		if _, perr := spatialmath.NewPoseFromRowMajor(cfg.CameraExtrinsics); perr != nil {
			err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.Wrap(perr, "camera_extrinsics")))
		}
	}
	return err
}

// MaxHistory returns how long a vanished object stays recoverable.
func (cfg *Config) MaxHistory() time.Duration {
	return time.Duration(cfg.MaxHistorySec * float64(time.Second))
}

// Extrinsics returns the camera-to-world pose.
func (cfg *Config) Extrinsics() (spatialmath.Pose, error) {
	if len(cfg.CameraExtrinsics) == 0 {
		return spatialmath.NewZeroPose(), nil
	}
	return spatialmath.NewPoseFromRowMajor(cfg.CameraExtrinsics)
}
