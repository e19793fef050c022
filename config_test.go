package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ConfigFileName+ConfigFileExtension)
	require.NoError(t, os.WriteFile(p, []byte(text), 0644))
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)

	config, err = loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, "min_zoom: 0.5\nmax_zoom: 4\nsnap_to_poles: true\nclick_action: Toggle_Control_Panel\nsave_directory: "+dir+"\nwatch: false\n")

	config, err := loadConfig(viper.New(), p)
	require.NoError(t, err)

	assert.Equal(t, 0.5, config.MinZoom)
	assert.Equal(t, 4.0, config.MaxZoom)
	assert.True(t, config.SnapToPoles)
	assert.Equal(t, "toggle_control_panel", config.ClickAction)
	assert.Equal(t, dir, config.SaveDirectory)
	assert.False(t, config.Watch)
	assert.True(t, config.Confirmations, "unset keys keep their defaults")
}

func TestLoadConfigRelativePathsBecomeAbsolute(t *testing.T) {
	p := writeConfig(t, "log_file: logs/topoterm.log\n")

	config, err := loadConfig(viper.New(), p)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(config.LogFile))
	assert.Equal(t, "topoterm.log", filepath.Base(config.LogFile))
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unknown click action", "click_action: explode\n"},
		{"inverted zoom range", "min_zoom: 2\nmax_zoom: 1\n"},
		{"zero zoom", "min_zoom: 0\n"},
		{"broken yaml", "min_zoom: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(viper.New(), writeConfig(t, tt.text))
			assert.Error(t, err)
		})
	}
}

func TestGetSavePath(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "model.png", config.GetSavePath("model.png"))

	config.SaveDirectory = filepath.Join(t.TempDir(), "exports")
	got := config.GetSavePath("model.png")
	assert.Equal(t, filepath.Join(config.SaveDirectory, "model.png"), got)
	assert.DirExists(t, config.SaveDirectory)
}
