// Package config builds the session configuration from flags, an optional
// pwinstall.yaml, the environment and env files found in the docroot.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/lemachinarbo/RockShell/internal/hosts"
)

const (
	EnvPrefix = "PWINSTALL"
	FileName  = "pwinstall"
)

// Keys shared by the cobra flags and the config file.
const (
	KeyHost        = "host"
	KeyProfile     = "profile"
	KeyLazy        = "lazy"
	KeyDebug       = "debug"
	KeyQuiet       = "quiet"
	KeyLog         = "log"
	KeyLogFile     = "log_file"
	KeyDocroot     = "docroot"
	KeyNoDDEVCheck = "no_ddev_check"
	KeyInsecure    = "insecure"
	KeyHTTPPort    = "http_port"
	KeyHTTPSPort   = "https_port"
	KeyTimezone    = "timezone"
	KeyRemove      = "remove"
	KeyIgnore      = "ignore"
	KeyURL         = "url"
	KeyName        = "name"
	KeyPass        = "pass"
	KeyMail        = "mail"
	KeyPWVersion   = "pw_version"
	KeyDev         = "dev"
	KeyDefaults    = "defaults"
	KeyGitHubAPI   = "github_api"
)

// overrideFields maps option keys to the installer field they override.
var overrideFields = map[string]string{
	KeyURL:       "url",
	KeyName:      "username",
	KeyPass:      "userpass",
	KeyMail:      "useremail",
	KeyTimezone:  "timezone",
	KeyProfile:   "profile",
	KeyHost:      "host",
	KeyPWVersion: "processwire_version",
}

type Config struct {
	Host      string
	Profile   string
	Docroot   string
	Lazy      bool
	Debug     bool
	Quiet     bool
	LogAlways bool
	LogFile   string
	Insecure  bool
	// GitHubAPI replaces the GitHub REST root, for mirrors.
	GitHubAPI string
	// CheckDDEV refuses to run on the host machine when the docroot is a
	// DDEV project.
	CheckDDEV bool
	InDDEV    bool
	Project   string
	Hints     hosts.Hints
	Defaults  Table
	Overrides map[string]string
	// ConfigFile is the file viper read, if any.
	ConfigFile string
}

// DefaultHost is the host suggested when none was given.
func (c Config) DefaultHost() string {
	if c.Project != "" {
		return c.Project + ".ddev.site"
	}
	return "example.com"
}

// NewViper returns a viper instance with env binding and defaults set up.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv(KeyHTTPPort, EnvPrefix+"_HTTP_PORT", "DDEV_ROUTER_HTTP_PORT")
	_ = v.BindEnv(KeyHTTPSPort, EnvPrefix+"_HTTPS_PORT", "DDEV_ROUTER_HTTPS_PORT")

	v.SetDefault(KeyHTTPPort, "80")
	v.SetDefault(KeyHTTPSPort, "443")
	v.SetDefault(KeyDocroot, ".")
	return v
}

// LoadEnvFiles loads .env and .ddev/.env from docroot without overriding
// variables that are already set. Missing files are ignored.
func LoadEnvFiles(docroot string) error {
	var errs []error
	for _, name := range []string{".env", filepath.Join(".ddev", ".env")} {
		path := filepath.Join(docroot, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// Load reads the optional config file and resolves the final Config.
// explicitFile, when set, must exist.
func Load(v *viper.Viper, explicitFile string) (Config, error) {
	docroot, err := filepath.Abs(v.GetString(KeyDocroot))
	if err != nil {
		return Config{}, fmt.Errorf("docroot: %w", err)
	}
	if err := LoadEnvFiles(docroot); err != nil {
		return Config{}, err
	}

	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(docroot)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	defaults := BuiltinTable()
	if raw := v.Get(KeyDefaults); raw != nil {
		m, err := cast.ToStringMapE(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config %q must be a map: %w", KeyDefaults, err)
		}
		defaults = defaults.Merge(m)
	}

	cfg := Config{
		Host:       strings.TrimSpace(v.GetString(KeyHost)),
		Profile:    strings.TrimSpace(v.GetString(KeyProfile)),
		Docroot:    docroot,
		Lazy:       v.GetBool(KeyLazy),
		Debug:      v.GetBool(KeyDebug),
		Quiet:      v.GetBool(KeyQuiet),
		LogAlways:  v.GetBool(KeyLog),
		LogFile:    v.GetString(KeyLogFile),
		Insecure:   v.GetBool(KeyInsecure),
		GitHubAPI:  strings.TrimSpace(v.GetString(KeyGitHubAPI)),
		CheckDDEV:  !v.GetBool(KeyNoDDEVCheck),
		InDDEV:     os.Getenv("IS_DDEV_PROJECT") != "",
		Project:    os.Getenv("DDEV_PROJECT"),
		Hints:      hosts.Hints{HTTPPort: v.GetString(KeyHTTPPort), HTTPSPort: v.GetString(KeyHTTPSPort)},
		Defaults:   defaults,
		Overrides:  Overrides(v),
		ConfigFile: v.ConfigFileUsed(),
	}
	return cfg, nil
}

// Overrides collects the per-field overrides for this run. Unset options
// are left out entirely.
func Overrides(v *viper.Viper) map[string]string {
	out := map[string]string{}
	for key, field := range overrideFields {
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			out[field] = s
		}
	}
	if _, ok := out["processwire_version"]; !ok && v.GetBool(KeyDev) {
		out["processwire_version"] = "dev"
	}
	if v.GetBool(KeyRemove) {
		out["remove"] = "true"
	}
	if v.GetBool(KeyIgnore) {
		out["ignore"] = "true"
	}
	return out
}
