// Package config holds the settings of a shadow mask run and binds them to
// flags, environment variables, configuration files and key=value
// arguments.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeyOutput      = "output"
	KeyCompression = "compression"
	KeyDataset     = "dataset"
	KeyLogLevel    = "log_level"
	KeyQuiet       = "quiet"
)

// EnvPrefix prefixes environment variables, as in SHADOWMASK_OUTPUT.
const EnvPrefix = "SHADOWMASK"

// Options are the settings of a generate run.
type Options struct {
	Experiments string
	Output      string
	Compression string
	Dataset     string
	LogLevel    string
	Quiet       bool
}

// New returns a viper instance with the defaults and environment binding
// in place.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyOutput, "shadow.h5")
	v.SetDefault(KeyCompression, "gzip")
	v.SetDefault(KeyDataset, "shadow/dynamic_mask")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyQuiet, false)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges the YAML configuration file at path into v.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

// ApplyAssignments sets every key=value argument in v and returns the
// arguments that are not assignments. Keys must be known settings.
func ApplyAssignments(v *viper.Viper, args []string) ([]string, error) {
	var rest []string
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			rest = append(rest, arg)
			continue
		}
		key = strings.ReplaceAll(strings.TrimSpace(key), "-", "_")
		switch key {
		case KeyOutput, KeyCompression, KeyDataset, KeyLogLevel, KeyQuiet:
			v.Set(key, value)
		default:
			return nil, fmt.Errorf("unknown setting %q in %q", key, arg)
		}
	}
	return rest, nil
}

// Load reads the options out of v.
func Load(v *viper.Viper, experiments string) *Options {
	return &Options{
		Experiments: experiments,
		Output:      v.GetString(KeyOutput),
		Compression: v.GetString(KeyCompression),
		Dataset:     v.GetString(KeyDataset),
		LogLevel:    v.GetString(KeyLogLevel),
		Quiet:       v.GetBool(KeyQuiet),
	}
}
