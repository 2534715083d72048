// Package devenv holds the local development checks used by devctl.
package devenv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/ahrie-ai/backend/internal/apperr"
)

// PortInUse reports whether something accepts TCP connections on host:port.
func PortInUse(ctx context.Context, host string, port int) (bool, error) {
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	d := net.Dialer{Timeout: time.Second}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	_ = conn.Close()
	return true, nil
}

// PortOwner returns the pid and process name listening on port.
func PortOwner(ctx context.Context, port int) (int32, string, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return 0, "", fmt.Errorf("failed to list connections: %w", err)
	}
	for _, c := range conns {
		if c.Status != "LISTEN" || int(c.Laddr.Port) != port || c.Pid == 0 {
			continue
		}
		name := ""
		if p, err := process.NewProcessWithContext(ctx, c.Pid); err == nil {
			name, _ = p.NameWithContext(ctx)
		}
		return c.Pid, name, nil
	}
	return 0, "", apperr.New(apperr.CodeNotFound, fmt.Sprintf("no process listening on port %d", port))
}

// ProcessAlive reports whether pid refers to a running process.
func ProcessAlive(ctx context.Context, pid int32) bool {
	if pid <= 0 {
		return false
	}
	ok, err := process.PidExistsWithContext(ctx, pid)
	return err == nil && ok
}

// PIDFile records the pid of a background helper such as the tunnel.
type PIDFile struct {
	Path string
}

// Write stores pid, creating parent directories.
func (f PIDFile) Write(pid int) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}
	return os.WriteFile(f.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read returns the recorded pid. A missing file yields apperr.ErrNotFound.
func (f PIDFile) Read() (int32, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, apperr.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read pid file: %w", err)
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 32)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeInvalidArgument, "malformed pid file "+f.Path)
	}
	return int32(pid), nil
}

// Remove deletes the file. A missing file is not an error.
func (f PIDFile) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Running returns the recorded pid when that process is still alive.
func (f PIDFile) Running(ctx context.Context) (int32, bool) {
	pid, err := f.Read()
	if err != nil {
		return 0, false
	}
	return pid, ProcessAlive(ctx, pid)
}
