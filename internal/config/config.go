package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

const (
	DriverName = "gnatfetch"

	DefaultRepository    = "alire-project/GNAT-FSF-builds"
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 2 * time.Second

	ConfigFileName = DriverName + "_conf.yaml"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Global struct {
	// Repository is the '<owner>/<name>' slug of the GitHub repository publishing the releases.
	Repository string `yaml:"repository"`
	// GitHubBaseURL points at a GitHub Enterprise instance. Empty means github.com.
	GitHubBaseURL string `yaml:"github_base_url"`
	// ReleasesBaseURL overrides the root under which '<tag>/<filename>' artifacts are downloaded.
	ReleasesBaseURL string `yaml:"releases_base_url"`

	Mirror *Mirror `yaml:"mirror"`
	Retry  Retry   `yaml:"retry"`

	Progress bool `yaml:"progress"`
}

type Retry struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

func Default() Global {
	return Global{
		Repository: DefaultRepository,
		Retry: Retry{
			Attempts: DefaultRetryAttempts,
			Delay:    DefaultRetryDelay,
		},
	}
}

func Parse(log *zap.Logger, conf *Global) error {
	if conf == nil {
		return errors.New("can not parse configuration into nil struct")
	}

	for _, p := range AllDirs() {
		path := filepath.Join(p, ConfigFileName)
		raw, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return err
		}

		log.Debug("Reading configuration file.", zap.String("path", path))
		if err = Decode(raw, conf); err != nil {
			log.Error("Failed to decode configuration file.", zap.String("path", path), zap.Error(err))
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	log.Sugar().Debugf("Parsed configuration:\n%+v", spew.Sdump(conf))
	return nil
}

// Decode merges the YAML content into conf. Keys absent from the content keep their current value.
func Decode(raw []byte, conf *Global) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return yaml.NewDecoder(bytes.NewReader(raw), yaml.Strict()).Decode(conf)
}

func (g *Global) Validate() error {
	if _, _, err := g.RepositorySlug(); err != nil {
		return err
	}
	if g.Retry.Attempts < 1 {
		return fmt.Errorf("%w: retry attempts must be at least 1, got %d", ErrInvalidConfig, g.Retry.Attempts)
	}
	if g.Retry.Delay < 0 {
		return fmt.Errorf("%w: retry delay can not be negative, got %s", ErrInvalidConfig, g.Retry.Delay)
	}
	return nil
}

func (g *Global) RepositorySlug() (owner string, repo string, err error) {
	return SplitRepository(g.Repository)
}

// SplitRepository splits an '<owner>/<name>' repository slug.
func SplitRepository(slug string) (owner string, repo string, err error) {
	rs := strings.Split(slug, "/")
	if len(rs) != 2 || rs[0] == "" || rs[1] == "" {
		return "", "", fmt.Errorf("%w: repository %q does not contain an owner and repo name", ErrInvalidConfig, slug)
	}
	return rs[0], rs[1], nil
}

// ReleasesBase returns the root URL under which release artifacts live, without trailing slash.
// A configured mirror takes precedence over an explicit base URL, which in turn takes precedence
// over the GitHub release download location.
func (g *Global) ReleasesBase() string {
	switch {
	case g.Mirror != nil:
		return g.Mirror.BaseURL()
	case g.ReleasesBaseURL != "":
		return strings.TrimSuffix(g.ReleasesBaseURL, "/")
	}

	host := "https://github.com"
	if g.GitHubBaseURL != "" {
		host = strings.TrimSuffix(g.GitHubBaseURL, "/")
	}
	return fmt.Sprintf("%s/%s/releases/download", host, g.Repository)
}

func AllDirs() []string {
	// We need the config directories in reverse-order of priority such that we can safely unmarshal
	// them in order into the same target struct and guarantee the expected semantics.
	var dirs []string
	if p := UserDir(); p != "" {
		dirs = append(dirs, p)
	}
	if p := SystemDir(); p != "" {
		dirs = append(dirs, p)
	}
	return dirs
}

func SystemDir() string {
	switch runtime.GOOS {
	case "windows":
		if pd := os.Getenv("PROGRAMDATA"); pd != "" {
			return filepath.Join(pd, DriverName)
		}
		return ""
	default:
		return filepath.Join("/etc", DriverName)
	}
}

func UserDir() string {
	switch runtime.GOOS {
	case "windows":
		if la := os.Getenv("LOCALAPPDATA"); la != "" {
			return filepath.Join(la, DriverName)
		}
		return ""
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), ".config", DriverName)
	default:
		if configPath, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && configPath != "" {
			return filepath.Join(configPath, DriverName)
		}
		return filepath.Join(os.Getenv("HOME"), ".config", DriverName)
	}
}
