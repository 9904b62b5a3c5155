package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/handiism/osm-tile-downloader/internal/download"
	"github.com/handiism/osm-tile-downloader/internal/http"
	"github.com/handiism/osm-tile-downloader/internal/model"
)

// EnvPrefix prefixes environment variables read by Load, e.g. OSMTILE_RATE.
const EnvPrefix = "OSMTILE"

// ErrMissingBoundingBox is returned by Load when one of the four bounding box
// edges is set neither by flag, environment nor config file.
var ErrMissingBoundingBox = errors.New("bounding box requires north, east, south and west")

// Settings holds all configuration options.
type Settings struct {
	// Bounding box, in degrees
	North float64 `mapstructure:"north" validate:"gte=0,lt=360"`
	East  float64 `mapstructure:"east" validate:"gte=0,lt=360"`
	South float64 `mapstructure:"south" validate:"gte=0,lt=360"`
	West  float64 `mapstructure:"west" validate:"gte=0,lt=360"`

	// Download settings
	Rate   int    `mapstructure:"rate" validate:"gte=1,lte=255"`
	Zoom   int    `mapstructure:"zoom" validate:"gte=1,lte=30"`
	Output string `mapstructure:"output" validate:"required"`
	URL    string `mapstructure:"url" validate:"required"`

	// HTTP settings
	TileTimeout     time.Duration `mapstructure:"tile_timeout" validate:"gte=0"`
	UserAgent       string        `mapstructure:"user_agent"`
	StrictHostCheck bool          `mapstructure:"strict_host_check"`

	// Proxy settings
	ProxyType    string `mapstructure:"proxy_type" validate:"oneof=none system manual"` // none, system, manual
	ProxyAddress string `mapstructure:"proxy_address" validate:"required_if=ProxyType manual"`
	ProxyPort    int    `mapstructure:"proxy_port" validate:"required_if=ProxyType manual,gte=0,lte=65535"`

	// Logging
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile  string `mapstructure:"log_file"`
}

// DefaultSettings returns settings with default values.
// The bounding box, output directory and URL have no defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Rate:        5,
		Zoom:        18,
		TileTimeout: 60 * time.Second,
		UserAgent:   http.DefaultOptions().UserAgent,
		ProxyType:   http.ProxySystem,
		LogLevel:    "info",
	}
}

// flagKeys maps flag names to settings keys where they differ.
var flagKeys = map[string]string{
	"timeout":     "tile_timeout",
	"strict-host": "strict_host_check",
	"user-agent":  "user_agent",
	"log-level":   "log_level",
	"log-file":    "log_file",
}

// BindFlags registers the command line flags understood by Load on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := DefaultSettings()

	fs.Float64P("north", "n", 0, "northern edge of the bounding box in degrees [0, 360)")
	fs.Float64P("east", "e", 0, "eastern edge of the bounding box in degrees [0, 360)")
	fs.Float64P("south", "s", 0, "southern edge of the bounding box in degrees [0, 360)")
	fs.Float64P("west", "w", 0, "western edge of the bounding box in degrees [0, 360)")
	fs.IntP("rate", "r", d.Rate, "maximum number of tiles fetched concurrently")
	fs.IntP("zoom", "z", d.Zoom, "maximum zoom level to fetch")
	fs.StringP("output", "o", "", "output directory for the <z>/<x>/<y> tree")
	fs.StringP("url", "u", "", "tile URL template with {x}, {y} and {z} placeholders")
	fs.Duration("timeout", d.TileTimeout, "per-tile request timeout, 0 disables")
	fs.String("user-agent", d.UserAgent, "User-Agent header sent with every request")
	fs.Bool("strict-host", false, "check the URL host instead of its literal prefix")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	fs.String("log-file", "", "write logs to this file instead of stderr")
}

// Load resolves settings from defaults, an optional config file (JSON, YAML
// or TOML, chosen by extension), OSMTILE_* environment variables and flags
// registered with BindFlags, in increasing order of precedence.
//
// A missing config file is not an error. The result is validated.
func Load(path string, fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v, DefaultSettings())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			key := f.Name
			if k, ok := flagKeys[key]; ok {
				key = k
			}
			if !isSettingsKey(key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	for _, key := range []string{"north", "east", "south", "west"} {
		if !v.IsSet(key) {
			return nil, fmt.Errorf("%w: %s is not set", ErrMissingBoundingBox, key)
		}
	}

	settings := DefaultSettings()
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save writes settings to a config file. The format follows the extension
// of path.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	v := viper.New()
	for key, value := range s.values() {
		v.Set(key, value)
	}
	return v.WriteConfigAs(path)
}

// Validate checks every field and reports all violations in one error.
func (s *Settings) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		return name
	})

	if err := validate.Struct(s); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, e.Translate(trans))
		}
		return fmt.Errorf("validation error: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// BoundingBox converts the degree edges to a model.BoundingBox.
func (s *Settings) BoundingBox() (model.BoundingBox, error) {
	return model.NewBoundingBoxDegrees(s.North, s.East, s.South, s.West)
}

// ToConfig converts settings to a download.Config.
func (s *Settings) ToConfig() (download.Config, error) {
	bbox, err := s.BoundingBox()
	if err != nil {
		return download.Config{}, err
	}
	return download.Config{
		BoundingBox: bbox,
		FetchRate:   uint8(s.Rate),
		OutputDir:   s.Output,
		URL:         s.URL,
		MaxZoom:     uint8(s.Zoom),
	}, nil
}

// ToClientOptions converts settings to options for the tile HTTP client.
func (s *Settings) ToClientOptions() http.Options {
	opts := http.DefaultOptions()
	opts.Timeout = s.TileTimeout
	if s.UserAgent != "" {
		opts.UserAgent = s.UserAgent
	}
	if s.StrictHostCheck {
		opts.Policy = http.CheckHost
	}
	opts.Proxy = http.ProxyOptions{
		Type:    s.ProxyType,
		Address: s.ProxyAddress,
		Port:    s.ProxyPort,
	}
	return opts
}

func (s *Settings) values() map[string]any {
	return map[string]any{
		"north":             s.North,
		"east":              s.East,
		"south":             s.South,
		"west":              s.West,
		"rate":              s.Rate,
		"zoom":              s.Zoom,
		"output":            s.Output,
		"url":               s.URL,
		"tile_timeout":      s.TileTimeout.String(),
		"user_agent":        s.UserAgent,
		"strict_host_check": s.StrictHostCheck,
		"proxy_type":        s.ProxyType,
		"proxy_address":     s.ProxyAddress,
		"proxy_port":        s.ProxyPort,
		"log_level":         s.LogLevel,
		"log_file":          s.LogFile,
	}
}

func setDefaults(v *viper.Viper, d *Settings) {
	for key, value := range d.values() {
		switch key {
		case "north", "east", "south", "west":
			// Left unset so Load can tell a missing edge from 0.
			continue
		}
		v.SetDefault(key, value)
	}
}

func isSettingsKey(key string) bool {
	_, ok := DefaultSettings().values()[key]
	return ok
}
