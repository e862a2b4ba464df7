package launcher

import (
	"arena-runner/frame"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

type Info struct {
	GameName   string
	Pickup     bool
	Debug      bool
	BaseDir    string
	ConfigPath string
	LogLevel   int
	LogPath    string
}

func NewInfoFromFlags() *Info {
	info, err := ParseInfo(flag.CommandLine, os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return info
}

func ParseInfo(fs *flag.FlagSet, args []string) (*Info, error) {
	gameName := fs.String(
		"game", "", fmt.Sprintf("The game to play, one of %v", frame.GameNames()))
	pickup := fs.Bool(
		"pickup", false, "Resume the incomplete matches of the existing results ledger")
	debug := fs.Bool(
		"debug", false, "Enable debug logging, same as -log-level -1")
	baseDir := fs.String(
		"base-dir", "", "Directory holding the *_player directories, otherwise the working directory")
	configPath := fs.String(
		"config", "", "Settings file (toml, yaml or json), otherwise arena.* in the base directory")
	logLevel := fs.Int(
		"log-level", 0, "Log level: -1 - Debug, 0 - Info, 1 - Warn, 2 - Error")
	logPath := fs.String(
		"log-path",
		"",
		"Directory to the logs, otherwise will use working directory and add 'logs' to that path")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	info := &Info{
		GameName:   *gameName,
		Pickup:     *pickup,
		Debug:      *debug,
		BaseDir:    *baseDir,
		ConfigPath: *configPath,
		LogLevel:   *logLevel,
		LogPath:    *logPath,
	}

	if info.Debug {
		info.LogLevel = -1
	}

	if info.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get working directory: %w", err)
		}
		info.BaseDir = wd
	}

	abs, err := filepath.Abs(info.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve base directory: %w", err)
	}
	info.BaseDir = abs

	return info, nil
}

func (c *Info) Validate() error {
	if c.GameName == "" {
		return fmt.Errorf("--game is required, one of %v", frame.GameNames())
	}

	if _, err := frame.LookupGame(c.GameName); err != nil {
		return fmt.Errorf("--game: %w", err)
	}

	stat, err := os.Stat(c.BaseDir)
	if err != nil {
		return fmt.Errorf("--base-dir: %w", err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("--base-dir %s is not a directory", c.BaseDir)
	}

	return nil
}

// RunName is used in log file names and log fields.
func (c *Info) RunName() string {
	if c.Pickup {
		return c.GameName + "_pickup"
	}
	return c.GameName
}
