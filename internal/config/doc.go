// Package config provides configuration management for the tile downloader.
//
// This package handles:
//   - Command line flags (pflag)
//   - Config files in JSON, YAML or TOML and OSMTILE_* environment variables (viper)
//   - Validation with readable messages (validator)
//   - Conversion to download.Config and http.Options for other packages
//
// # Loading
//
// Flags win over environment variables, which win over the config file,
// which wins over DefaultSettings:
//
//	fs := pflag.NewFlagSet("osm-tile-dl", pflag.ContinueOnError)
//	config.BindFlags(fs)
//	_ = fs.Parse(os.Args[1:])
//
//	settings, err := config.Load("osm-tile.yaml", fs)
//	if err != nil {
//	    // missing bounding box edge, invalid value, unreadable file
//	}
//
// # Saving Settings
//
//	settings.Rate = 8
//	err := settings.Save("/path/to/osm-tile.yaml")
//
// # Configuration Options
//
// Settings includes options for:
//   - The bounding box in degrees
//   - Concurrency and maximum zoom
//   - Output directory and URL template
//   - Request timeout, User-Agent and host checking
//   - Proxy configuration
//   - Logging
package config
