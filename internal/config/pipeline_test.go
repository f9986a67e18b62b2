package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/hillas"
)

func TestEmptyConfig_Defaults(t *testing.T) {
	cfg := EmptyConfig()

	if cfg.GetPictureThreshold() != 10 {
		t.Errorf("GetPictureThreshold() = %f, want 10", cfg.GetPictureThreshold())
	}
	if cfg.GetBoundaryThreshold() != 5 {
		t.Errorf("GetBoundaryThreshold() = %f, want 5", cfg.GetBoundaryThreshold())
	}
	if cfg.GetNeighborOrder() != 1 {
		t.Errorf("GetNeighborOrder() = %d, want 1", cfg.GetNeighborOrder())
	}
	if cfg.GetGeometryCacheSize() != 128 {
		t.Errorf("GetGeometryCacheSize() = %d, want 128", cfg.GetGeometryCacheSize())
	}
	if cfg.GetLogEveryEvents() != 25 {
		t.Errorf("GetLogEveryEvents() = %d, want 25", cfg.GetLogEveryEvents())
	}
	if cfg.GetPerfSampleSize() != 500 {
		t.Errorf("GetPerfSampleSize() = %d, want 500", cfg.GetPerfSampleSize())
	}
	if cfg.GetPointingAzimuthDeg() != 0 || cfg.GetPointingElevationDeg() != 20 {
		t.Errorf("pointing = (%f, %f), want (0, 20)", cfg.GetPointingAzimuthDeg(), cfg.GetPointingElevationDeg())
	}
	if cfg.GetBoundaryCodec() != "json" {
		t.Errorf("GetBoundaryCodec() = %q, want json", cfg.GetBoundaryCodec())
	}
	if got := cfg.InstrumentAssetPath(); got != filepath.Join(".", DefaultInstrumentPath) {
		t.Errorf("InstrumentAssetPath() = %q", got)
	}
}

func TestCleaningParams_MatchProductionDefaults(t *testing.T) {
	if got, want := EmptyConfig().CleaningParams(), hillas.DefaultCleaningParams(); got != want {
		t.Errorf("CleaningParams() = %+v, want %+v", got, want)
	}
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.PictureThreshold == nil || *cfg.PictureThreshold != 10 {
		t.Errorf("Expected PictureThreshold 10, got %v", cfg.PictureThreshold)
	}
}

func TestLoadConfig_PartialFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("conf/pipeline.json", []byte(`{
  "picture_threshold": 8,
  "boundary_threshold": 4,
  "deployment_root": "/opt/hillas"
}`))

	cfg, err := LoadConfig(fsys, "conf/pipeline.json")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetPictureThreshold() != 8 {
		t.Errorf("GetPictureThreshold() = %f, want 8", cfg.GetPictureThreshold())
	}
	if cfg.GetBoundaryThreshold() != 4 {
		t.Errorf("GetBoundaryThreshold() = %f, want 4", cfg.GetBoundaryThreshold())
	}
	// Omitted fields fall back to defaults.
	if cfg.GetGeometryCacheSize() != 128 {
		t.Errorf("GetGeometryCacheSize() = %d, want 128", cfg.GetGeometryCacheSize())
	}
	if got, want := cfg.InstrumentAssetPath(), "/opt/hillas/"+DefaultInstrumentPath; got != want {
		t.Errorf("InstrumentAssetPath() = %q, want %q", got, want)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("pipeline.json", []byte(`{"perf_sample_size": 100, "instrument_path": "a.cbor.gz"}`))

	t.Setenv("HILLAS_PERF_SAMPLE_SIZE", "250")
	t.Setenv("HILLAS_INSTRUMENT_PATH", "/srv/instrument.cbor.gz")

	cfg, err := LoadConfig(fsys, "pipeline.json")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.GetPerfSampleSize() != 250 {
		t.Errorf("GetPerfSampleSize() = %d, want 250", cfg.GetPerfSampleSize())
	}
	if cfg.GetBoundaryCodec() != "json" {
		t.Errorf("GetBoundaryCodec() = %q, want json", cfg.GetBoundaryCodec())
	}
	if got := cfg.InstrumentAssetPath(); got != "/srv/instrument.cbor.gz" {
		t.Errorf("InstrumentAssetPath() = %q, want absolute env path", got)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("bad.json", []byte(`{not json`))
	fsys.WriteFile("invalid.json", []byte(`{"picture_threshold": 3, "boundary_threshold": 5}`))
	fsys.WriteFile("pipeline.yaml", []byte(`picture_threshold: 3`))
	fsys.WriteFile("huge.json", []byte(strings.Repeat(" ", 1024*1024+1)))

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"wrong extension", "pipeline.yaml", ".json extension"},
		{"missing file", "missing.json", "failed to stat"},
		{"malformed JSON", "bad.json", "failed to parse config JSON"},
		{"boundary above picture", "invalid.json", "must not exceed"},
		{"too large", "huge.json", "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(fsys, tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(c *PipelineConfig)
		valid bool
	}{
		{"defaults", func(c *PipelineConfig) {}, true},
		{"negative picture", func(c *PipelineConfig) { c.PictureThreshold = ptrFloat64(-1) }, false},
		{"zero neighbor order", func(c *PipelineConfig) { c.NeighborOrder = ptrInt(0) }, false},
		{"zero cache", func(c *PipelineConfig) { c.GeometryCacheSize = ptrInt(0) }, false},
		{"zero log cadence", func(c *PipelineConfig) { c.LogEveryEvents = ptrInt(0) }, false},
		{"elevation above zenith", func(c *PipelineConfig) { c.PointingElevationDeg = ptrFloat64(91) }, false},
		{"zero reco parallelism", func(c *PipelineConfig) { c.RecoParallelism = ptrInt(0) }, false},
		{"second neighbor order", func(c *PipelineConfig) { c.NeighborOrder = ptrInt(2) }, true},
		{"proto codec", func(c *PipelineConfig) { c.BoundaryCodec = ptrString("proto") }, true},
		{"unknown codec", func(c *PipelineConfig) { c.BoundaryCodec = ptrString("avro") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EmptyConfig()
			tt.mod(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetPictureThreshold() != 10 || cfg.GetBoundaryThreshold() != 5 {
		t.Errorf("defaults file thresholds = (%f, %f), want (10, 5)",
			cfg.GetPictureThreshold(), cfg.GetBoundaryThreshold())
	}
	if cfg.GetGeometryCacheSize() != 128 {
		t.Errorf("defaults file geometry_cache_size = %d, want 128", cfg.GetGeometryCacheSize())
	}
}
