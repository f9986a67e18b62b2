package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/hillas"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// DefaultInstrumentPath is the bundled instrument asset, relative to the
// deployment root.
const DefaultInstrumentPath = "bundled_files/instrument.cbor.gz"

// PipelineConfig is the root configuration for both stages and the local
// topology. Fields are pointers so that a partial JSON file leaves the
// remaining fields at their Get* defaults. Every field can also be set
// from the environment; environment values win over the file.
type PipelineConfig struct {
	// Image cleaning
	PictureThreshold    *float64 `json:"picture_threshold,omitempty" env:"HILLAS_PICTURE_THRESHOLD"`
	BoundaryThreshold   *float64 `json:"boundary_threshold,omitempty" env:"HILLAS_BOUNDARY_THRESHOLD"`
	NeighborOrder       *int     `json:"neighbor_order,omitempty" env:"HILLAS_NEIGHBOR_ORDER"`
	MinPictureNeighbors *int     `json:"min_picture_neighbors,omitempty" env:"HILLAS_MIN_PICTURE_NEIGHBORS"`

	// Stage state
	GeometryCacheSize *int `json:"geometry_cache_size,omitempty" env:"HILLAS_GEOMETRY_CACHE_SIZE"`
	LogEveryEvents    *int `json:"log_every_events,omitempty" env:"HILLAS_LOG_EVERY_EVENTS"`
	PerfSampleSize    *int `json:"perf_sample_size,omitempty" env:"HILLAS_PERF_SAMPLE_SIZE"`

	// Fixed array pointing used by the reconstruction stage
	PointingAzimuthDeg   *float64 `json:"pointing_azimuth_deg,omitempty" env:"HILLAS_POINTING_AZIMUTH_DEG"`
	PointingElevationDeg *float64 `json:"pointing_elevation_deg,omitempty" env:"HILLAS_POINTING_ELEVATION_DEG"`

	// Deployment
	DeploymentRoot *string `json:"deployment_root,omitempty" env:"HILLAS_DEPLOYMENT_ROOT"`
	InstrumentPath *string `json:"instrument_path,omitempty" env:"HILLAS_INSTRUMENT_PATH"`
	DatabasePath   *string `json:"database_path,omitempty" env:"HILLAS_DATABASE_PATH"`
	AdminListen    *string `json:"admin_listen,omitempty" env:"HILLAS_ADMIN_LISTEN"`

	// Local topology
	HillasParallelism *int `json:"hillas_parallelism,omitempty" env:"HILLAS_HILLAS_PARALLELISM"`
	RecoParallelism   *int `json:"reco_parallelism,omitempty" env:"HILLAS_RECO_PARALLELISM"`
	// BoundaryCodec frames tuples between the two stages: json, proto or none.
	BoundaryCodec *string `json:"boundary_codec,omitempty" env:"HILLAS_BOUNDARY_CODEC"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a PipelineConfig with all fields set to nil.
func EmptyConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultConfig returns a PipelineConfig with every field populated from
// the built-in defaults.
func DefaultConfig() *PipelineConfig {
	c := EmptyConfig()
	return &PipelineConfig{
		PictureThreshold:     ptrFloat64(c.GetPictureThreshold()),
		BoundaryThreshold:    ptrFloat64(c.GetBoundaryThreshold()),
		NeighborOrder:        ptrInt(c.GetNeighborOrder()),
		MinPictureNeighbors:  ptrInt(c.GetMinPictureNeighbors()),
		GeometryCacheSize:    ptrInt(c.GetGeometryCacheSize()),
		LogEveryEvents:       ptrInt(c.GetLogEveryEvents()),
		PerfSampleSize:       ptrInt(c.GetPerfSampleSize()),
		PointingAzimuthDeg:   ptrFloat64(c.GetPointingAzimuthDeg()),
		PointingElevationDeg: ptrFloat64(c.GetPointingElevationDeg()),
		DeploymentRoot:       ptrString(c.GetDeploymentRoot()),
		InstrumentPath:       ptrString(c.GetInstrumentPath()),
		DatabasePath:         ptrString(c.GetDatabasePath()),
		AdminListen:          ptrString(c.GetAdminListen()),
		HillasParallelism:    ptrInt(c.GetHillasParallelism()),
		RecoParallelism:      ptrInt(c.GetRecoParallelism()),
		BoundaryCodec:        ptrString(c.GetBoundaryCodec()),
	}
}

// LoadConfig loads a PipelineConfig from a JSON file on fsys and then
// applies environment overrides.
// The file must have a .json extension and be at most 1MB.
func LoadConfig(fsys fsutil.FileSystem, path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays HILLAS_* environment variables onto c.
func (c *PipelineConfig) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(fsutil.OSFileSystem{}, path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *PipelineConfig) Validate() error {
	if c.PictureThreshold != nil && *c.PictureThreshold < 0 {
		return fmt.Errorf("picture_threshold must be non-negative, got %f", *c.PictureThreshold)
	}
	if c.BoundaryThreshold != nil && *c.BoundaryThreshold < 0 {
		return fmt.Errorf("boundary_threshold must be non-negative, got %f", *c.BoundaryThreshold)
	}
	if c.GetBoundaryThreshold() > c.GetPictureThreshold() {
		return fmt.Errorf("boundary_threshold (%g) must not exceed picture_threshold (%g)",
			c.GetBoundaryThreshold(), c.GetPictureThreshold())
	}
	if c.NeighborOrder != nil && *c.NeighborOrder < 1 {
		return fmt.Errorf("neighbor_order must be at least 1, got %d", *c.NeighborOrder)
	}
	if c.MinPictureNeighbors != nil && *c.MinPictureNeighbors < 0 {
		return fmt.Errorf("min_picture_neighbors must be non-negative, got %d", *c.MinPictureNeighbors)
	}
	if c.GeometryCacheSize != nil && *c.GeometryCacheSize < 1 {
		return fmt.Errorf("geometry_cache_size must be positive, got %d", *c.GeometryCacheSize)
	}
	if c.LogEveryEvents != nil && *c.LogEveryEvents < 1 {
		return fmt.Errorf("log_every_events must be positive, got %d", *c.LogEveryEvents)
	}
	if c.PerfSampleSize != nil && *c.PerfSampleSize < 1 {
		return fmt.Errorf("perf_sample_size must be positive, got %d", *c.PerfSampleSize)
	}
	if el := c.GetPointingElevationDeg(); el < 0 || el > 90 {
		return fmt.Errorf("pointing_elevation_deg must be between 0 and 90, got %f", el)
	}
	if c.HillasParallelism != nil && *c.HillasParallelism < 1 {
		return fmt.Errorf("hillas_parallelism must be positive, got %d", *c.HillasParallelism)
	}
	if c.RecoParallelism != nil && *c.RecoParallelism < 1 {
		return fmt.Errorf("reco_parallelism must be positive, got %d", *c.RecoParallelism)
	}
	switch codec := c.GetBoundaryCodec(); codec {
	case "json", "proto", "none":
	default:
		return fmt.Errorf("boundary_codec must be json, proto or none, got %q", codec)
	}
	return nil
}

// GetPictureThreshold returns the picture_threshold value or the default.
func (c *PipelineConfig) GetPictureThreshold() float64 {
	if c.PictureThreshold == nil {
		return 10 // default
	}
	return *c.PictureThreshold
}

// GetBoundaryThreshold returns the boundary_threshold value or the default.
func (c *PipelineConfig) GetBoundaryThreshold() float64 {
	if c.BoundaryThreshold == nil {
		return 5 // default
	}
	return *c.BoundaryThreshold
}

// GetNeighborOrder returns the neighbor_order value or the default.
func (c *PipelineConfig) GetNeighborOrder() int {
	if c.NeighborOrder == nil {
		return 1 // default
	}
	return *c.NeighborOrder
}

// GetMinPictureNeighbors returns the min_picture_neighbors value or the default.
func (c *PipelineConfig) GetMinPictureNeighbors() int {
	if c.MinPictureNeighbors == nil {
		return 0 // default
	}
	return *c.MinPictureNeighbors
}

// GetGeometryCacheSize returns the geometry_cache_size value or the default.
func (c *PipelineConfig) GetGeometryCacheSize() int {
	if c.GeometryCacheSize == nil {
		return 128 // default
	}
	return *c.GeometryCacheSize
}

// GetLogEveryEvents returns the log_every_events value or the default.
func (c *PipelineConfig) GetLogEveryEvents() int {
	if c.LogEveryEvents == nil {
		return 25 // default
	}
	return *c.LogEveryEvents
}

// GetPerfSampleSize returns the perf_sample_size value or the default.
func (c *PipelineConfig) GetPerfSampleSize() int {
	if c.PerfSampleSize == nil {
		return 500 // default
	}
	return *c.PerfSampleSize
}

// GetPointingAzimuthDeg returns the pointing_azimuth_deg value or the default.
func (c *PipelineConfig) GetPointingAzimuthDeg() float64 {
	if c.PointingAzimuthDeg == nil {
		return 0 // default
	}
	return *c.PointingAzimuthDeg
}

// GetPointingElevationDeg returns the pointing_elevation_deg value or the default.
func (c *PipelineConfig) GetPointingElevationDeg() float64 {
	if c.PointingElevationDeg == nil {
		return 20 // default
	}
	return *c.PointingElevationDeg
}

// GetDeploymentRoot returns the deployment_root value or the default.
func (c *PipelineConfig) GetDeploymentRoot() string {
	if c.DeploymentRoot == nil || *c.DeploymentRoot == "" {
		return "." // default
	}
	return *c.DeploymentRoot
}

// GetInstrumentPath returns the instrument_path value or the default.
func (c *PipelineConfig) GetInstrumentPath() string {
	if c.InstrumentPath == nil || *c.InstrumentPath == "" {
		return DefaultInstrumentPath
	}
	return *c.InstrumentPath
}

// InstrumentAssetPath resolves the instrument asset against the deployment
// root. Absolute instrument paths are returned unchanged.
func (c *PipelineConfig) InstrumentAssetPath() string {
	p := c.GetInstrumentPath()
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.GetDeploymentRoot(), p)
}

// GetDatabasePath returns the database_path value or the default.
func (c *PipelineConfig) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return "hillas_results.db" // default
	}
	return *c.DatabasePath
}

// GetAdminListen returns the admin_listen value or the default.
func (c *PipelineConfig) GetAdminListen() string {
	if c.AdminListen == nil {
		return "localhost:8090" // default
	}
	return *c.AdminListen
}

// GetHillasParallelism returns the hillas_parallelism value or the default.
func (c *PipelineConfig) GetHillasParallelism() int {
	if c.HillasParallelism == nil {
		return 1 // default
	}
	return *c.HillasParallelism
}

// GetRecoParallelism returns the reco_parallelism value or the default.
func (c *PipelineConfig) GetRecoParallelism() int {
	if c.RecoParallelism == nil {
		return 1 // default
	}
	return *c.RecoParallelism
}

// GetBoundaryCodec returns the boundary_codec value or the default.
func (c *PipelineConfig) GetBoundaryCodec() string {
	if c.BoundaryCodec == nil || *c.BoundaryCodec == "" {
		return "json" // default
	}
	return *c.BoundaryCodec
}

// CleaningParams gathers the tail-cuts settings.
func (c *PipelineConfig) CleaningParams() hillas.CleaningParams {
	return hillas.CleaningParams{
		PictureThreshold:    c.GetPictureThreshold(),
		BoundaryThreshold:   c.GetBoundaryThreshold(),
		NeighborOrder:       c.GetNeighborOrder(),
		MinPictureNeighbors: c.GetMinPictureNeighbors(),
	}
}
