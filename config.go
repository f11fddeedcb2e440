package riverdriver

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config is the run configuration. Worker count and rank are not here: they
// come from the communication context, supplied by however the processes
// were launched.
type Config struct {
	// DemsJSON is the DEM manifest enumerating tile files and extents.
	DemsJSON string `yaml:"demsJson"`
	// ThalwegShp is the thalweg dataset (polyline shapefile).
	ThalwegShp string `yaml:"thalwegShp"`
	// OutputDir is the shared output directory. It is wiped at run start.
	OutputDir string `yaml:"outputDir"`
	// CacheDir holds the grouping cache.
	CacheDir string `yaml:"cacheDir"`
	// ThalwegBuffer is the lateral bank-search range in meters; it decides
	// which DEM tiles a thalweg needs.
	ThalwegBuffer float64 `yaml:"thalwegBuffer"`
	// UseDEMCache enables the collective DEM pre-caching phase.
	UseDEMCache bool `yaml:"useDemCache"`
	// ValidateDEMCache re-parses pre-cached tiles and checks them against
	// their sidecars. Diagnostic only.
	ValidateDEMCache bool `yaml:"validateDemCache"`
	// UseGroupingCache reads the grouping from cache when the same inputs
	// were grouped before. The cache is written regardless.
	UseGroupingCache bool `yaml:"useGroupingCache"`
	// SourceCRS is the coordinate reference of the partial shapefiles;
	// merged shapefiles are reprojected from it to EPSG:4326.
	SourceCRS string `yaml:"sourceCrs"`
	// SnapToleranceMeters bounds how far a seam vertex may move onto a
	// recorded joint during final cleanup.
	SnapToleranceMeters float64 `yaml:"snapToleranceMeters"`

	Logger *logrus.Logger `yaml:"-"`
}

// FromFile reads a YAML config and applies defaults.
func FromFile(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %q: %v", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %q: %v", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills zero values with the standard run settings.
func (c *Config) ApplyDefaults() {
	if c.DemsJSON == "" {
		c.DemsJSON = "./dems.json"
	}
	if c.OutputDir == "" {
		c.OutputDir = "./"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./Cache"
	}
	if c.ThalwegBuffer == 0 {
		c.ThalwegBuffer = 1000
	}
	if c.SnapToleranceMeters == 0 {
		c.SnapToleranceMeters = 0.4
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
}

// Validate checks the inputs a run cannot start without.
func (c *Config) Validate() error {
	if c.ThalwegShp == "" {
		return fmt.Errorf("thalwegShp is required")
	}
	if c.DemsJSON == "" {
		return fmt.Errorf("demsJson is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("outputDir is required")
	}
	return nil
}
