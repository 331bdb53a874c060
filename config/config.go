package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"dvf-mart/models"
)

const (
	envPrefix     = "DVF"
	configPathEnv = "DVF_CONFIG_FILE"
)

// Config holds run-level settings and the pipeline parameters.
type Config struct {
	InputPath     string   `yaml:"input_path" split_words:"true"`
	OutputDir     string   `yaml:"output_dir" split_words:"true" validate:"required"`
	OutputFormats []string `yaml:"output_formats" split_words:"true" validate:"dive,oneof=parquet csv sqlite xlsx postgres"`
	MetricsFile   string   `yaml:"metrics_file" split_words:"true"`
	LogLevel      string   `yaml:"log_level" split_words:"true" validate:"oneof=debug info warn error"`
	SinkWorkers   int      `yaml:"sink_workers" split_words:"true" validate:"gte=1"`

	Boundary BoundaryConfig `yaml:"boundary" split_words:"true"`
	Postgres PostgresConfig `yaml:"postgres" split_words:"true"`
	Pipeline PipelineConfig `yaml:"pipeline" split_words:"true"`
}

// BoundaryConfig locates the department to region mapping. An empty Path
// disables region enrichment.
type BoundaryConfig struct {
	Path            string `yaml:"path" split_words:"true"`
	DepartmentField string `yaml:"department_field" split_words:"true" validate:"required"`
	RegionField     string `yaml:"region_field" split_words:"true" validate:"required"`
	Delimiter       string `yaml:"delimiter" split_words:"true" validate:"len=1"`
}

// PostgresConfig describes the optional warehouse sink.
type PostgresConfig struct {
	Host        string `yaml:"host" split_words:"true"`
	Port        string `yaml:"port" split_words:"true"`
	User        string `yaml:"user" split_words:"true"`
	Password    string `yaml:"password" split_words:"true"`
	DB          string `yaml:"db" split_words:"true"`
	SSLMode     string `yaml:"sslmode" split_words:"true"`
	MaxAttempts int    `yaml:"max_attempts" split_words:"true" validate:"gte=1"`
}

// PipelineConfig is the immutable parameter set handed to every stage.
type PipelineConfig struct {
	Delimiter           string                         `yaml:"delimiter" split_words:"true" validate:"len=1"`
	NullValues          []string                       `yaml:"null_values" split_words:"true"`
	CompletedSaleNature string                         `yaml:"completed_sale_nature" split_words:"true" validate:"required"`
	ResidentialTypes    map[string]models.PropertyType `yaml:"residential_types" split_words:"true" validate:"required,min=1,dive,keys,required,endkeys,oneof=House Apartment"`

	MinSurface    float64     `yaml:"min_surface" split_words:"true" validate:"gte=0"`
	MinPrice      float64     `yaml:"min_price" split_words:"true" validate:"gte=0"`
	PriceBounds   PriceBounds `yaml:"price_bounds" split_words:"true"`
	UpperCeiling  float64     `yaml:"upper_ceiling" split_words:"true" validate:"gt=0"`
	IQRMultiplier float64     `yaml:"iqr_multiplier" split_words:"true" validate:"gte=0"`

	LowerPercentile float64 `yaml:"lower_percentile" split_words:"true" validate:"gte=0,lte=1"`
	UpperPercentile float64 `yaml:"upper_percentile" split_words:"true" validate:"gtfield=LowerPercentile,lte=1"`

	MinSales        map[string]int `yaml:"min_sales" split_words:"true" validate:"dive,keys,oneof=nation region department commune postcode neighborhood,endkeys,gte=0"`
	DefaultMinSales int            `yaml:"default_min_sales" split_words:"true" validate:"gte=0"`

	Columns Columns `yaml:"columns" split_words:"true"`
}

// PriceBounds is the fixed price-per-m² sanity interval, inclusive.
type PriceBounds struct {
	Low  float64 `yaml:"low" split_words:"true" validate:"gt=0"`
	High float64 `yaml:"high" split_words:"true" validate:"gtfield=Low"`
}

// Columns maps each logical field to its header name in the raw file.
// LandSurface and Neighborhood are optional in the input.
type Columns struct {
	DocumentID    string `yaml:"document_id" split_words:"true" validate:"required"`
	MutationDate  string `yaml:"mutation_date" split_words:"true" validate:"required"`
	Nature        string `yaml:"nature" split_words:"true" validate:"required"`
	Price         string `yaml:"price" split_words:"true" validate:"required"`
	PropertyType  string `yaml:"property_type" split_words:"true" validate:"required"`
	BuiltSurface  string `yaml:"built_surface" split_words:"true" validate:"required"`
	CarrezSurface string `yaml:"carrez_surface" split_words:"true" validate:"required"`
	LandSurface   string `yaml:"land_surface" split_words:"true"`
	Department    string `yaml:"department" split_words:"true" validate:"required"`
	Commune       string `yaml:"commune" split_words:"true" validate:"required"`
	PostalCode    string `yaml:"postal_code" split_words:"true" validate:"required"`
	Section       string `yaml:"section" split_words:"true" validate:"required"`
	PlanNumber    string `yaml:"plan_number" split_words:"true" validate:"required"`
	Neighborhood  string `yaml:"neighborhood" split_words:"true" validate:"required"`
}

// IdentityColumns returns the ordered fields a transaction key is built from.
func (c Columns) IdentityColumns() []string {
	return []string{c.DocumentID, c.MutationDate, c.Price, c.Department, c.Commune, c.Section, c.PlanNumber}
}

// NumericColumns returns the columns reparsed as numbers after loading.
func (c Columns) NumericColumns() []string {
	cols := []string{c.Price, c.BuiltSurface, c.CarrezSurface}
	if c.LandSurface != "" {
		cols = append(cols, c.LandSurface)
	}
	return cols
}

// Default returns the configuration for a standard DVF export.
func Default() Config {
	return Config{
		InputPath:     "data/raw/ValeursFoncieres.txt",
		OutputDir:     "data/mart",
		OutputFormats: []string{"parquet", "csv"},
		LogLevel:      "info",
		SinkWorkers:   2,
		Boundary: BoundaryConfig{
			Path:            "data/raw/departements.geojson",
			DepartmentField: "code_insee",
			RegionField:     "code_insee_de_la_region",
			Delimiter:       ",",
		},
		Postgres: PostgresConfig{
			Host:        "localhost",
			Port:        "5432",
			User:        "dvf",
			Password:    "dvf",
			DB:          "dvf_mart",
			SSLMode:     "disable",
			MaxAttempts: 5,
		},
		Pipeline: DefaultPipeline(),
	}
}

// DefaultPipeline returns the stage parameters used when nothing overrides them.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		Delimiter:           "|",
		NullValues:          []string{"", "NA"},
		CompletedSaleNature: "Vente",
		ResidentialTypes: map[string]models.PropertyType{
			"Maison":      models.House,
			"Appartement": models.Apartment,
		},
		MinSurface:      8,
		MinPrice:        10_000,
		PriceBounds:     PriceBounds{Low: 300, High: 30_000},
		UpperCeiling:    15_000,
		IQRMultiplier:   1.5,
		LowerPercentile: 0.10,
		UpperPercentile: 0.90,
		MinSales: map[string]int{
			models.LevelNation:       100,
			models.LevelRegion:       100,
			models.LevelDepartment:   50,
			models.LevelCommune:      10,
			models.LevelPostcode:     10,
			models.LevelNeighborhood: 10,
		},
		DefaultMinSales: 10,
		Columns: Columns{
			DocumentID:    "Identifiant de document",
			MutationDate:  "Date mutation",
			Nature:        "Nature mutation",
			Price:         "Valeur fonciere",
			PropertyType:  "Type local",
			BuiltSurface:  "Surface reelle bati",
			CarrezSurface: "Surface Carrez du 1er lot",
			LandSurface:   "Surface terrain",
			Department:    "Code departement",
			Commune:       "Code commune",
			PostalCode:    "Code postal",
			Section:       "Section",
			PlanNumber:    "No plan",
			Neighborhood:  "CODE_IRIS",
		},
	}
}

// MinSalesFor returns the minimum sale count for a level, falling back to
// DefaultMinSales for levels without an explicit threshold.
func (p PipelineConfig) MinSalesFor(level string) int {
	if n, ok := p.MinSales[level]; ok {
		return n
	}
	return p.DefaultMinSales
}

// Load reads .env, overlays the YAML file named by DVF_CONFIG_FILE on the
// defaults, applies DVF_* environment overrides and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	minSales := cfg.Pipeline.MinSales
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}
	// envconfig replaces a map wholesale; levels the variable leaves out
	// keep their file or default threshold.
	for level, n := range minSales {
		if _, ok := cfg.Pipeline.MinSales[level]; !ok {
			cfg.Pipeline.MinSales[level] = n
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	// yaml.v3 merges into existing maps. The residential type set is
	// replaced by the file instead, so it can be narrowed.
	var sets struct {
		Pipeline struct {
			ResidentialTypes map[string]models.PropertyType `yaml:"residential_types"`
		} `yaml:"pipeline"`
	}
	if err := yaml.Unmarshal(raw, &sets); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if sets.Pipeline.ResidentialTypes != nil {
		cfg.Pipeline.ResidentialTypes = nil
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints and the cross-field ordering rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return c.Pipeline.validateBounds()
}

// Validate checks a PipelineConfig on its own, for callers that build one
// without going through Load.
func (p PipelineConfig) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return p.validateBounds()
}

func (p PipelineConfig) validateBounds() error {
	if p.UpperCeiling <= p.PriceBounds.Low {
		return errors.New("config: upper_ceiling must be above price_bounds.low")
	}
	return nil
}

// DSN returns the PostgreSQL connection URL with every part escaped.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.DB,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

// CleanTablePath is where the clean transaction table is written and read back.
func (c *Config) CleanTablePath() string {
	return filepath.Join(c.OutputDir, "dvf_clean.parquet")
}

// Wants reports whether format is among the configured outputs.
func (c *Config) Wants(format string) bool {
	for _, f := range c.OutputFormats {
		if f == format {
			return true
		}
	}
	return false
}
