// Package config provides configuration management for the manuscript length
// estimator: defaults, an optional JSON or YAML file, a .env file and
// LATEX_LENGTH_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"latex-length/internal/compiler"
	"latex-length/internal/detex"
	"latex-length/internal/estimator"
	"latex-length/internal/imagemetrics"
	"latex-length/internal/logger"
	"latex-length/internal/maintext"
	"latex-length/internal/runner"
	"latex-length/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "config.json"
	// DefaultEnvFile is loaded from the working directory when present
	DefaultEnvFile = ".env"
	// DefaultJournal is the default word-limit profile
	DefaultJournal = "PRL"
	// DefaultJobs is the default number of documents processed at once
	DefaultJobs = 1
)

// Environment variables overriding the config file.
const (
	EnvLaTeX     = "LATEX_LENGTH_LATEX"
	EnvBibTeX    = "LATEX_LENGTH_BIBTEX"
	EnvDetex     = "LATEX_LENGTH_DETEX"
	EnvMethod    = "LATEX_LENGTH_METHOD"
	EnvFigs      = "LATEX_LENGTH_FIGS"
	EnvJournal   = "LATEX_LENGTH_JOURNAL"
	EnvWordcount = "LATEX_LENGTH_WORDCOUNT"
)

// BuiltinJournals maps journal names to their word limits.
var BuiltinJournals = map[string]int{
	"PRL":       3500,
	"PRA-RC":    3500,
	"PRB-RC":    3500,
	"PRC-RC":    4500,
	"PRD-RC":    4000,
	"PRE-RC":    3500,
	"PRApplied": 3500,
	"PRST-PER":  3500,
}

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	explicit   bool
	envFile    string
	config     *types.Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory,
// and a missing file there simply means defaults.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	explicit := configPath != ""
	if !explicit {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "latex-length", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		explicit:   explicit,
		envFile:    DefaultEnvFile,
		config:     DefaultConfig(),
	}, nil
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *types.Config {
	return &types.Config{
		Method:        types.MethodWordcount,
		Figs:          imagemetrics.BackendGS,
		ScaleFigs:     estimator.DefaultFigureScale,
		Journal:       DefaultJournal,
		Env:           append([]string(nil), detex.DefaultEnvs...),
		LaTeX:         compiler.CompilerPDFLaTeX,
		BibTeX:        compiler.DefaultBibTeX,
		Detex:         detex.DefaultTool,
		WordcountEnvs: append([]string(nil), maintext.ExcludedEnvs...),
		Identify:      imagemetrics.DefaultIdentify,
		Ghostscript:   imagemetrics.DefaultGhostscript,
		Timeout:       runner.DefaultTimeout,
		Jobs:          DefaultJobs,
		Format:        types.FormatText,
		LogLevel:      "warn",
	}
}

// fileConfig mirrors types.Config with optional fields so that only keys
// present in the file override defaults.
type fileConfig struct {
	Method         *string        `json:"method" yaml:"method"`
	Figs           *string        `json:"figs" yaml:"figs"`
	ScaleFigs      *float64       `json:"scale_figs" yaml:"scale_figs"`
	Journal        *string        `json:"journal" yaml:"journal"`
	Journals       map[string]int `json:"journals" yaml:"journals"`
	Env            []string       `json:"env" yaml:"env"`
	Vars           []types.Var    `json:"vars" yaml:"vars"`
	LaTeX          *string        `json:"latex" yaml:"latex"`
	BibTeX         *string        `json:"bibtex" yaml:"bibtex"`
	Detex          *string        `json:"detex" yaml:"detex"`
	Identify       *string        `json:"identify" yaml:"identify"`
	Ghostscript    *string        `json:"ghostscript" yaml:"ghostscript"`
	WordcountMacro *string        `json:"wordcount_macro" yaml:"wordcount_macro"`
	WordcountEnvs  []string       `json:"wordcount_envs" yaml:"wordcount_envs"`
	Timeout        *string        `json:"timeout" yaml:"timeout"`
	Jobs           *int           `json:"jobs" yaml:"jobs"`
	KeepGoing      *bool          `json:"keep_going" yaml:"keep_going"`
	Format         *string        `json:"format" yaml:"format"`
	LogLevel       *string        `json:"log_level" yaml:"log_level"`
	LogFile        *string        `json:"log_file" yaml:"log_file"`
}

// Load loads configuration from the config file and the environment.
// A missing default config file means defaults; a missing file given
// explicitly is an error.
func (m *ConfigManager) Load() error {
	m.config = DefaultConfig()

	if err := m.loadEnvFile(); err != nil {
		return err
	}

	data, err := os.ReadFile(m.configPath)
	switch {
	case err == nil:
		if err := m.apply(data); err != nil {
			return err
		}
		logger.Debug("configuration loaded", logger.String("path", m.configPath))
	case os.IsNotExist(err) && !m.explicit:
		logger.Debug("config file not found, using defaults", logger.String("path", m.configPath))
	default:
		return types.NewAppErrorWithDetails(types.ErrConfig, "failed to read config file", m.configPath, err)
	}

	m.applyEnv()
	return nil
}

// SetEnvFile changes the .env file read by Load; empty disables it.
func (m *ConfigManager) SetEnvFile(path string) {
	m.envFile = path
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return DefaultConfig()
	}
	return m.config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

func (m *ConfigManager) loadEnvFile() error {
	if m.envFile == "" {
		return nil
	}
	if _, err := os.Stat(m.envFile); err != nil {
		return nil
	}
	if err := godotenv.Load(m.envFile); err != nil {
		return types.NewAppErrorWithDetails(types.ErrConfig, "failed to read env file", m.envFile, err)
	}
	logger.Debug("loaded env file", logger.String("path", m.envFile))
	return nil
}

func (m *ConfigManager) apply(data []byte) error {
	var fc fileConfig
	var err error
	switch strings.ToLower(filepath.Ext(m.configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrConfig, "invalid config file", m.configPath, err)
	}

	c := m.config
	setString(&c.Figs, fc.Figs)
	setString(&c.Journal, fc.Journal)
	setString(&c.LaTeX, fc.LaTeX)
	setString(&c.BibTeX, fc.BibTeX)
	setString(&c.Detex, fc.Detex)
	setString(&c.Identify, fc.Identify)
	setString(&c.Ghostscript, fc.Ghostscript)
	setString(&c.WordcountMacro, fc.WordcountMacro)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFile, fc.LogFile)
	if fc.Method != nil {
		c.Method = types.Method(*fc.Method)
	}
	if fc.Format != nil {
		c.Format = types.Format(*fc.Format)
	}
	if fc.ScaleFigs != nil {
		c.ScaleFigs = *fc.ScaleFigs
	}
	if fc.Jobs != nil {
		c.Jobs = *fc.Jobs
	}
	if fc.KeepGoing != nil {
		c.KeepGoing = *fc.KeepGoing
	}
	if fc.Env != nil {
		c.Env = fc.Env
	}
	if fc.WordcountEnvs != nil {
		c.WordcountEnvs = fc.WordcountEnvs
	}
	if fc.Vars != nil {
		c.Vars = fc.Vars
	}
	if fc.Journals != nil {
		c.Journals = fc.Journals
	}
	if fc.Timeout != nil {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return types.NewAppErrorWithDetails(types.ErrConfig, "invalid timeout", *fc.Timeout, err)
		}
		c.Timeout = d
	}
	return nil
}

func (m *ConfigManager) applyEnv() {
	c := m.config
	for name, dst := range map[string]*string{
		EnvLaTeX:     &c.LaTeX,
		EnvBibTeX:    &c.BibTeX,
		EnvDetex:     &c.Detex,
		EnvFigs:      &c.Figs,
		EnvJournal:   &c.Journal,
		EnvWordcount: &c.WordcountMacro,
	} {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv(EnvMethod); v != "" {
		c.Method = types.Method(v)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Journals returns the built-in profiles merged with those configured, sorted
// by name.
func Journals(cfg *types.Config) []types.Journal {
	limits := make(map[string]int, len(BuiltinJournals)+len(cfg.Journals))
	for name, limit := range BuiltinJournals {
		limits[name] = limit
	}
	for name, limit := range cfg.Journals {
		limits[name] = limit
	}

	out := make([]types.Journal, 0, len(limits))
	for name, limit := range limits {
		out = append(out, types.Journal{Name: name, Limit: limit})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Journal looks up the profile called name.
func Journal(cfg *types.Config, name string) (types.Journal, error) {
	journals := Journals(cfg)
	names := make([]string, len(journals))
	for i, j := range journals {
		if j.Name == name {
			return j, nil
		}
		names[i] = j.Name
	}
	return types.Journal{}, types.NewAppErrorWithDetails(types.ErrConfig,
		fmt.Sprintf("unknown journal %q", name), "known journals: "+strings.Join(names, ", "), nil)
}

// Resolve validates cfg before any document is read.
func Resolve(cfg *types.Config) (types.Journal, error) {
	switch cfg.Method {
	case types.MethodDetex, types.MethodWordcount:
	default:
		return types.Journal{}, types.NewAppErrorWithDetails(types.ErrConfig,
			fmt.Sprintf("unsupported method %q", cfg.Method), "choose detex or wordcount", nil)
	}

	if _, err := imagemetrics.New(cfg.Figs, imagemetrics.Tools{}, nil); err != nil {
		return types.Journal{}, err
	}

	switch cfg.Format {
	case types.FormatText, types.FormatJSON, types.FormatYAML:
	default:
		return types.Journal{}, types.NewAppErrorWithDetails(types.ErrConfig,
			fmt.Sprintf("unknown output format %q", cfg.Format), "choose text, json or yaml", nil)
	}

	if cfg.ScaleFigs <= 0 {
		return types.Journal{}, types.NewAppErrorWithDetails(types.ErrConfig,
			"figure scale must be positive", strconv.FormatFloat(cfg.ScaleFigs, 'g', -1, 64), nil)
	}
	if cfg.Jobs < 1 {
		return types.Journal{}, types.NewAppErrorWithDetails(types.ErrConfig,
			"jobs must be at least 1", strconv.Itoa(cfg.Jobs), nil)
	}
	if cfg.Timeout <= 0 {
		return types.Journal{}, types.NewAppErrorWithDetails(types.ErrConfig,
			"timeout must be positive", cfg.Timeout.String(), nil)
	}
	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return types.Journal{}, types.NewAppError(types.ErrConfig, "invalid log level", err)
	}
	for _, env := range cfg.WordcountEnvs {
		if strings.TrimSpace(env) == "" {
			return types.Journal{}, types.NewAppError(types.ErrConfig, "empty environment name in wordcount_envs", nil)
		}
	}
	for _, v := range cfg.Vars {
		if v.Key == "" {
			return types.Journal{}, types.NewAppError(types.ErrConfig, "figure variable with empty key", nil)
		}
	}

	return Journal(cfg, cfg.Journal)
}
