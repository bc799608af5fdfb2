package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "musegen"

// windows: %APPDATA%\musegen
// macOS: ~/Library/Application Support/musegen
// linux: $XDG_CONFIG_HOME/musegen or ~/.config/musegen
func GetConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(envOrHome("APPDATA", "AppData", "Roaming"), appName)
	case "darwin":
		return filepath.Join(mustHome(), "Library", "Application Support", appName)
	default:
		return filepath.Join(envOrHome("XDG_CONFIG_HOME", ".config"), appName)
	}
}

// windows: %LOCALAPPDATA%\musegen
// macOS: ~/Library/Caches/musegen
// linux: $XDG_CACHE_HOME/musegen or ~/.cache/musegen
func GetCacheDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(envOrHome("LOCALAPPDATA", "AppData", "Local"), appName)
	case "darwin":
		return filepath.Join(mustHome(), "Library", "Caches", appName)
	default:
		return filepath.Join(envOrHome("XDG_CACHE_HOME", ".cache"), appName)
	}
}

func GetDefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

func GetCheckpointCacheDir() string {
	return filepath.Join(GetCacheDir(), "checkpoints")
}

func envOrHome(env string, homeRel ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	return filepath.Join(append([]string{mustHome()}, homeRel...)...)
}

func mustHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Sprintf("failed to get user home directory: %v", err))
	}
	return home
}
