package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	ConfigFileName      = ".topoterm"
	ConfigFileExtension = ".yaml"
)

var validate = validator.New()

type Config struct {
	SaveDirectory string  `mapstructure:"save_directory"`
	MinZoom       float64 `mapstructure:"min_zoom" validate:"gt=0"`
	MaxZoom       float64 `mapstructure:"max_zoom" validate:"gtefield=MinZoom"`
	SnapToPoles   bool    `mapstructure:"snap_to_poles"`
	ClickAction   string  `mapstructure:"click_action" validate:"oneof=show_details toggle_control_panel"`
	LogFile       string  `mapstructure:"log_file"`
	Watch         bool    `mapstructure:"watch"`
	Confirmations bool    `mapstructure:"confirmations"`
}

func DefaultConfig() *Config {
	return &Config{
		MinZoom:       0.25,
		MaxZoom:       2.0,
		ClickAction:   "show_details",
		Watch:         true,
		Confirmations: true,
	}
}

func setConfigDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("save_directory", d.SaveDirectory)
	v.SetDefault("min_zoom", d.MinZoom)
	v.SetDefault("max_zoom", d.MaxZoom)
	v.SetDefault("snap_to_poles", d.SnapToPoles)
	v.SetDefault("click_action", d.ClickAction)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("confirmations", d.Confirmations)
}

// DefaultConfigPath is ~/.topoterm.yaml.
func DefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ConfigFileName+ConfigFileExtension), nil
}

// loadConfig reads the config file into v. A missing file leaves the
// defaults in place.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	setConfigDefaults(v)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.resolve(); err != nil {
		return nil, err
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// resolve expands ~ in paths and makes them absolute.
func (c *Config) resolve() error {
	for _, p := range []*string{&c.SaveDirectory, &c.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %s: %w", *p, err)
		}
		if !filepath.IsAbs(expanded) {
			if abs, err := filepath.Abs(expanded); err == nil {
				expanded = abs
			}
		}
		*p = expanded
	}
	c.ClickAction = strings.ToLower(c.ClickAction)
	return nil
}

func (c *Config) GetSavePath(filename string) string {
	if c.SaveDirectory == "" {
		return filename
	}
	os.MkdirAll(c.SaveDirectory, 0755)
	return filepath.Join(c.SaveDirectory, filename)
}
