package devenv

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrie-ai/backend/internal/apperr"
)

func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestPortInUse(t *testing.T) {
	ln, port := listen(t)
	ctx := context.Background()

	inUse, err := PortInUse(ctx, "127.0.0.1", port)
	require.NoError(t, err)
	assert.True(t, inUse)

	require.NoError(t, ln.Close())
	inUse, err = PortInUse(ctx, "0.0.0.0", port)
	require.NoError(t, err)
	assert.False(t, inUse)
}

func TestPortOwner(t *testing.T) {
	ln, port := listen(t)
	defer ln.Close()

	pid, _, err := PortOwner(context.Background(), port)
	if err != nil {
		t.Skipf("connection table not readable here: %v", err)
	}
	assert.Equal(t, int32(os.Getpid()), pid)
}

func TestProcessAlive(t *testing.T) {
	ctx := context.Background()
	assert.True(t, ProcessAlive(ctx, int32(os.Getpid())))
	assert.False(t, ProcessAlive(ctx, 0))
	assert.False(t, ProcessAlive(ctx, -1))
}

func TestPIDFile(t *testing.T) {
	ctx := context.Background()
	f := PIDFile{Path: filepath.Join(t.TempDir(), "run", "ngrok.pid")}

	_, err := f.Read()
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	_, running := f.Running(ctx)
	assert.False(t, running)

	require.NoError(t, f.Write(os.Getpid()))
	pid, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, int32(os.Getpid()), pid)

	pid, running = f.Running(ctx)
	assert.True(t, running)
	assert.Equal(t, int32(os.Getpid()), pid)

	require.NoError(t, f.Remove())
	require.NoError(t, f.Remove())
}

func TestPIDFile_Malformed(t *testing.T) {
	f := PIDFile{Path: filepath.Join(t.TempDir(), "bad.pid")}
	require.NoError(t, os.WriteFile(f.Path, []byte("nope"), 0o644))

	_, err := f.Read()
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}
