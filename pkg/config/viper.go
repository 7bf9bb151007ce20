package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Options says where Load looks for configuration.
type Options struct {
	// Path is searched first, then "." and "./config".
	Path string
	// Name is the config file name without extension.
	Name string
	// File, when set, is read directly and must exist.
	File string
	// EnvPrefix namespaces environment overrides, e.g. "FOLLOW" makes
	// FOLLOW_SERVER_PORT override server.port.
	EnvPrefix string
}

// Load reads configuration from a yaml file and environment variables.
// A missing config file is not an error unless Options.File names it.
func Load(opts Options) (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(opts.Name)
		if opts.Path != "" {
			v.AddConfigPath(opts.Path)
		}
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File == "" && errors.As(err, &notFound) {
			return v, nil // rely on defaults and env vars
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return v, nil
}
