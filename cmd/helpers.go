package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jacklau/issuecache/internal/config"
	"github.com/jacklau/issuecache/internal/github"
)

// defaultStoreName is the store file created next to the executable.
const defaultStoreName = "issues.json"

// newClient builds the API client from config and the environment token.
func newClient(cfg *config.Config, token string, logger *slog.Logger) (*github.Client, error) {
	timeout, err := cfg.Defaults.RequestTimeout()
	if err != nil {
		return nil, err
	}

	userAgent := cfg.GitHub.UserAgent
	if userAgent == "" {
		userAgent = "issuecache/" + version
	}

	return github.NewClient(
		github.WithBaseURL(cfg.GitHub.APIURL),
		github.WithToken(token),
		github.WithTimeout(timeout),
		github.WithUserAgent(userAgent),
		github.WithLogger(logger),
	)
}

// resolveStorePath picks the store file: flag, then config, then the
// default next to the executable.
func resolveStorePath(flag string, cfg *config.Config) string {
	switch {
	case flag != "":
		return expandHome(flag)
	case cfg.Store.Path != "":
		return expandHome(cfg.Store.Path)
	default:
		return defaultStorePath()
	}
}

func defaultStorePath() string {
	exe, err := os.Executable()
	if err != nil {
		return defaultStoreName
	}
	return filepath.Join(filepath.Dir(exe), defaultStoreName)
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
