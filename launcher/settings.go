package launcher

import (
	"arena-runner/frame"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	envPrefix      = "ARENA"
	configName     = "arena"
	envConfigPath  = "ARENA_CONFIG"
	maxConcurrency = 64
)

// Settings are the tunables of a run. Relative paths are resolved against
// the base directory by Resolve.
type Settings struct {
	Tournament TournamentSettings `mapstructure:"tournament"`
	Frame      FrameSettings      `mapstructure:"frame"`
	Paths      PathSettings       `mapstructure:"paths"`
	Env        EnvSettings        `mapstructure:"env"`
}

type TournamentSettings struct {
	Concurrency int           `mapstructure:"concurrency"`
	WarmUp      time.Duration `mapstructure:"warm_up"`
	// StrictScores turns unparsable or unattributable results into a crash.
	StrictScores bool `mapstructure:"strict_scores"`
}

type FrameSettings struct {
	Java string `mapstructure:"java"`
	// JavaVersion pins the framework build; empty means detect it.
	JavaVersion string   `mapstructure:"java_version"`
	JarDir      string   `mapstructure:"jar_dir"`
	AddOpens    []string `mapstructure:"add_opens"`
	Hostname    string   `mapstructure:"hostname"`
	Port        int      `mapstructure:"port"`
	// LogDir is where the framework writes its own logs.
	LogDir string `mapstructure:"log_dir"`
}

type PathSettings struct {
	Results     string `mapstructure:"results"`
	Players     string `mapstructure:"players"`
	ProcessLogs string `mapstructure:"process_logs"`
	// Template is an optional JSON file whose keys override the game's
	// match configuration.
	Template string `mapstructure:"template"`
}

type EnvSettings struct {
	// Strict aborts the run when a pre-flight check fails instead of
	// logging a warning.
	Strict bool `mapstructure:"strict"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tournament.concurrency", 10)
	v.SetDefault("tournament.warm_up", 2*time.Second)
	v.SetDefault("tournament.strict_scores", false)
	v.SetDefault("frame.java", "java")
	v.SetDefault("frame.java_version", "")
	v.SetDefault("frame.jar_dir", ".")
	v.SetDefault("frame.add_opens", frame.DefaultAddOpens)
	v.SetDefault("frame.hostname", frame.DefaultHostname)
	v.SetDefault("frame.port", frame.DefaultPort)
	v.SetDefault("frame.log_dir", filepath.Join("IngeniousFrame", "Logs"))
	v.SetDefault("paths.results", "results.csv")
	v.SetDefault("paths.players", "players")
	v.SetDefault("paths.process_logs", filepath.Join("logs", "processes"))
	v.SetDefault("paths.template", "")
	v.SetDefault("env.strict", false)
}

// LoadSettings reads defaults, then the settings file, then ARENA_* env
// variables (ARENA_TOURNAMENT_CONCURRENCY=4 and so on). A missing default
// settings file is fine; a missing explicit one is not.
func LoadSettings(baseDir, configPath string) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = os.Getenv(envConfigPath)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(baseDir)
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	return s.Resolve(baseDir), nil
}

func (s Settings) Validate() error {
	if s.Tournament.Concurrency < 1 || s.Tournament.Concurrency > maxConcurrency {
		return fmt.Errorf("tournament.concurrency must be between 1 and %d, got %d",
			maxConcurrency, s.Tournament.Concurrency)
	}

	if s.Tournament.WarmUp < 0 {
		return fmt.Errorf("tournament.warm_up cannot be negative")
	}

	if s.Frame.Port < 1 || s.Frame.Port > 65535 {
		return fmt.Errorf("frame.port %d is out of range", s.Frame.Port)
	}

	if s.Frame.JavaVersion != "" && !frame.SupportedJavaVersion(s.Frame.JavaVersion) {
		return fmt.Errorf("frame.java_version %q has no framework build", s.Frame.JavaVersion)
	}

	return nil
}

// Resolve makes every relative path absolute against baseDir.
func (s Settings) Resolve(baseDir string) Settings {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	s.Frame.JarDir = abs(s.Frame.JarDir)
	s.Frame.LogDir = abs(s.Frame.LogDir)
	s.Paths.Results = abs(s.Paths.Results)
	s.Paths.Players = abs(s.Paths.Players)
	s.Paths.ProcessLogs = abs(s.Paths.ProcessLogs)
	s.Paths.Template = abs(s.Paths.Template)
	return s
}

// TemplateOverrides reads the optional match configuration override file.
// Keys are case sensitive.
func (s Settings) TemplateOverrides() (map[string]any, error) {
	if s.Paths.Template == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.Paths.Template)
	if err != nil {
		return nil, fmt.Errorf("read template overrides: %w", err)
	}

	var overrides map[string]any
	if err = json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse template overrides %s: %w", s.Paths.Template, err)
	}
	return overrides, nil
}

// Toolchain builds the match host command factory for the given working
// directory and Java major version.
func (s Settings) Toolchain(workDir, javaVersion string) frame.Toolchain {
	if s.Frame.JavaVersion != "" {
		javaVersion = s.Frame.JavaVersion
	}
	return frame.Toolchain{
		Java:        s.Frame.Java,
		JarDir:      s.Frame.JarDir,
		JavaVersion: javaVersion,
		AddOpens:    s.Frame.AddOpens,
		Hostname:    s.Frame.Hostname,
		Port:        s.Frame.Port,
		WorkDir:     workDir,
	}
}
