//go:build integration

package integration_test

import (
	"context"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/goccy/go-yaml"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/memory-match/internal/dbtest/postgrestest"
	"github.com/openkcm/memory-match/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	PostgresPort   nat.Port
	ValKeyPort     nat.Port
	ConfigFilePath string
	Procdir        string
	// Cfg is the raw config document written to ConfigFilePath.
	Cfg map[string]any

	closeFuncs []closeFunc
}

func initInfra(t *testing.T, exeName string) (istat infraStat) {
	t.Helper()

	// The config is read from $PWD/config.yaml, so every process runs in
	// its own subdirectory.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, exeName+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")
	istat.closeFuncs = append(istat.closeFuncs, func(context.Context) {
		_ = os.RemoveAll(istat.Procdir)
	})

	istat.Cfg = map[string]any{}
	err = yaml.Unmarshal([]byte(validConfig), &istat.Cfg)
	require.NoError(t, err, "failed to parse config")

	return istat
}

// Set replaces a nested config value addressed by a dotted path.
func (istat *infraStat) Set(path string, value any) {
	keys := strings.Split(path, ".")
	node := istat.Cfg
	for _, k := range keys[:len(keys)-1] {
		next, ok := node[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[k] = next
		}
		node = next
	}
	node[keys[len(keys)-1]] = value
}

func (istat *infraStat) PreparePostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, pgPort, pgTerminate := postgrestest.Start(t.Context())

	istat.PostgresPort = pgPort
	istat.closeFuncs = append(istat.closeFuncs, pgTerminate)

	istat.Set("storage.backend", "postgres")
	istat.Set("database.name", postgrestest.DBName)
	istat.Set("database.port", pgPort.Port())
	istat.Set("database.host", map[string]any{"source": "embedded", "value": postgrestest.DBHost})
	istat.Set("database.user", map[string]any{"source": "embedded", "value": postgrestest.DBUser})
	istat.Set("database.password", map[string]any{"source": "embedded", "value": postgrestest.DBPassword})

	return pool
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	valkeyClient, valkeyPort, valkeyTerminate := valkeytest.Start(t.Context())
	valkeyClient.Close()

	istat.ValKeyPort = valkeyPort
	istat.closeFuncs = append(istat.closeFuncs, valkeyTerminate)

	istat.Set("storage.backend", "valkey")
	istat.Set("valkey.host", map[string]any{"source": "embedded", "value": "localhost:" + valkeyPort.Port()})
}

func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	b, err := yaml.Marshal(istat.Cfg)
	require.NoError(t, err, "failed to encode config")

	err = os.WriteFile(istat.ConfigFilePath, b, fs.ModePerm)
	require.NoError(t, err, "failed to write config file")
}

// Run starts the binary in Procdir and returns its combined output.
func (istat *infraStat) Run(ctx context.Context, t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	cmd := exec.CommandContext(ctx, filepath.Join(wd, binary), args...)
	cmd.Dir = istat.Procdir
	cmd.Stdin = stdin

	out, err := cmd.CombinedOutput()
	t.Logf("%s %v output:\n%s", binary, args, out)

	return string(out), err
}

func (istat *infraStat) Close(ctx context.Context) {
	for i := len(istat.closeFuncs) - 1; i >= 0; i-- {
		istat.closeFuncs[i](ctx)
	}
}
