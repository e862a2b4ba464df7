package tournament

import (
	"arena-runner/util"
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"testing"
)

func fakeRunner(outputs map[string]string) CommandRunner {
	return func(_ context.Context, name string, _ ...string) ([]byte, error) {
		out, ok := outputs[name]
		if !ok {
			return nil, errors.New("executable file not found in $PATH")
		}
		return []byte(out), nil
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	port, err := util.GetFreeTcpPort()
	require.NoError(t, err)
	return port
}

func TestParseJavaVersion(t *testing.T) {
	cases := map[string]string{
		"openjdk version \"17.0.2\" 2022-01-18\nOpenJDK Runtime Environment": "17",
		"java version \"21\" 2023-09-19 LTS":                                 "21",
		"openjdk version \"1.8.0_292\"":                                      "8",
		"openjdk version \"22-ea\" 2024-03-19":                               "22",
	}
	for output, want := range cases {
		got, err := ParseJavaVersion(output)
		require.NoError(t, err, output)
		assert.Equal(t, want, got)
	}

	for _, garbage := range []string{
		"bash: java: command not found",
		"Error: could not find java.dll",
		"java version \"\"",
		"",
	} {
		_, err := ParseJavaVersion(garbage)
		assert.Error(t, err, garbage)
	}
}

func TestPreflightHealthyEnvironment(t *testing.T) {
	p := Preflight{
		Hostname: "localhost",
		Port:     freePort(t),
		Strict:   true,
		Run: fakeRunner(map[string]string{
			"mpirun": "mpirun (Open MPI) 4.1.2",
			"java":   "openjdk version \"17.0.2\" 2022-01-18",
		}),
	}

	report, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.MPIRun)
	assert.Equal(t, "17", report.JavaVersion)
	assert.False(t, report.StaleHost)
	assert.Empty(t, report.Problems)
}

func TestPreflightWarnsByDefault(t *testing.T) {
	p := Preflight{
		Hostname: "localhost",
		Port:     freePort(t),
		Run:      fakeRunner(nil),
	}

	report, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, report.MPIRun)
	assert.Equal(t, "21", report.JavaVersion)
	assert.Len(t, report.Problems, 2)
}

func TestPreflightStrictFails(t *testing.T) {
	p := Preflight{
		Hostname: "localhost",
		Port:     freePort(t),
		Strict:   true,
		Run: fakeRunner(map[string]string{
			"java": "openjdk version \"21.0.1\"",
		}),
	}

	_, err := p.Check(context.Background())
	assert.ErrorIs(t, err, ErrEnvironment)
	assert.ErrorContains(t, err, "mpirun")
}

func TestPreflightDetectsStaleHost(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	p := Preflight{
		Hostname: "127.0.0.1",
		Port:     l.Addr().(*net.TCPAddr).Port,
		Run: fakeRunner(map[string]string{
			"mpirun": "ok",
			"java":   "openjdk version \"16.0.1\"",
		}),
	}

	report, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.StaleHost)
	assert.Equal(t, "16", report.JavaVersion)
}

func TestPreflightUnparsableJavaOutput(t *testing.T) {
	p := Preflight{
		Hostname: "localhost",
		Port:     freePort(t),
		Run: fakeRunner(map[string]string{
			"mpirun": "ok",
			"java":   "bash: java: command not found",
		}),
	}

	report, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "21", report.JavaVersion)
	if assert.Len(t, report.Problems, 1) {
		assert.Contains(t, report.Problems[0], "could not detect Java version")
	}
}
