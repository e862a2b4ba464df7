package frame

import (
	"arena-runner/process"
	"fmt"
	"path/filepath"
	"strconv"
)

const (
	DefaultJavaVersion = "21"
	DefaultPort        = 61234
	DefaultHostname    = "localhost"
)

var frameworkJars = map[string]string{
	"21": "IngeniousFrame-21.jar",
	"17": "IngeniousFrame-17.jar",
	"16": "IngeniousFrame-16.jar",
}

var DefaultAddOpens = []string{
	"--add-opens", "java.base/java.util=ALL-UNNAMED",
	"--add-opens", "java.desktop/java.awt=ALL-UNNAMED",
}

// Toolchain builds the command lines for the match host jar in its three
// modes: server, create (lobby registration) and client.
type Toolchain struct {
	Java        string
	JarDir      string
	JavaVersion string
	AddOpens    []string
	Hostname    string
	Port        int
	WorkDir     string
}

// Jar picks the framework build for the detected Java major version and
// falls back to the default build for versions without one.
func (t Toolchain) Jar() string {
	name, ok := frameworkJars[t.JavaVersion]
	if !ok {
		name = frameworkJars[DefaultJavaVersion]
	}
	return filepath.Join(t.JarDir, name)
}

func SupportedJavaVersion(version string) bool {
	_, ok := frameworkJars[version]
	return ok
}

func (t Toolchain) ServerCommand() process.Command {
	return t.command("server", "server")
}

func (t Toolchain) CreateCommand(game *Game, lobbyID string) process.Command {
	return t.command(
		fmt.Sprintf("create-%s", lobbyID),
		"create",
		"-config", game.ConfigFileName(),
		"-game", game.Referee,
		"-lobby", lobbyID,
	)
}

func (t Toolchain) ClientCommand(game *Game, lobbyID, player string) process.Command {
	username := ClientUsername(player, lobbyID)
	return t.command(
		fmt.Sprintf("client-%s", username),
		"client",
		"-username", username,
		"-engine", game.Engine,
		"-game", game.Referee,
		"-lobby", lobbyID,
		"-hostname", t.hostname(),
		"-port", strconv.Itoa(t.port()),
	)
}

// ClientUsername is what the host prints back in result lines, so the
// result pattern splits it into player name and lobby id again.
func ClientUsername(player, lobbyID string) string {
	return player + "-" + lobbyID
}

func (t Toolchain) command(name, mode string, args ...string) process.Command {
	all := make([]string, 0, len(t.AddOpens)+3+len(args))
	all = append(all, t.AddOpens...)
	all = append(all, "-jar", t.Jar(), mode)
	all = append(all, args...)

	java := t.Java
	if java == "" {
		java = "java"
	}

	return process.Command{
		Name: name,
		Path: java,
		Args: all,
		Dir:  t.WorkDir,
	}
}

func (t Toolchain) hostname() string {
	if t.Hostname == "" {
		return DefaultHostname
	}
	return t.Hostname
}

func (t Toolchain) port() int {
	if t.Port == 0 {
		return DefaultPort
	}
	return t.Port
}
