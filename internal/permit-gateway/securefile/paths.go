package securefile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// EnvVar selects an environment sub-folder for config paths.
const EnvVar = "PERMIT_GATEWAY_ENV"

// ConfigPathCandidates lists where app's filename may live, most preferred
// first. Snap's real home wins over $HOME, then the OS config dir.
func ConfigPathCandidates(app, filename string) ([]string, error) {
	if app == "" || filename == "" {
		return nil, errors.New("app and filename must not be empty")
	}
	folder, err := EnvFolder()
	if err != nil {
		return nil, err
	}

	var out []string
	add := func(dir string) {
		if folder != "" {
			dir = filepath.Join(dir, folder)
		}
		p := filepath.Join(dir, filename)
		for _, seen := range out {
			if seen == p {
				return
			}
		}
		out = append(out, p)
	}

	for _, key := range []string{"SNAP_REAL_HOME", "HOME"} {
		if home := os.Getenv(key); home != "" {
			add(filepath.Join(home, ".config", app))
		}
	}
	cfgDir, err := os.UserConfigDir()
	switch {
	case err == nil:
		add(filepath.Join(cfgDir, app))
	case len(out) == 0:
		return nil, errors.Wrap(err, "user config dir")
	}
	return out, nil
}

// EnvFolder maps PERMIT_GATEWAY_ENV to a sub-folder name; production uses none.
func EnvFolder() (string, error) {
	raw := strings.TrimSpace(os.Getenv(EnvVar))
	switch strings.ToLower(raw) {
	case "", "prod", "production":
		return "", nil
	case "local":
		return "local", nil
	case "dev", "develop", "development":
		return "develop", nil
	}
	return "", errors.Newf("invalid %s %q (allowed: local, develop, empty)", EnvVar, raw)
}
