package devenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/ahrie-ai/backend/internal/apperr"
)

// LivenessPath is probed by Liveness.
const LivenessPath = "/api/v1/health/liveness"

// Liveness asks a running API whether it is alive.
func Liveness(ctx context.Context, baseURL string) (bool, error) {
	var body struct {
		Alive bool `json:"alive"`
	}
	resp, err := resty.New().
		SetTimeout(3*time.Second).
		R().
		SetContext(ctx).
		SetResult(&body).
		Get(strings.TrimRight(baseURL, "/") + LivenessPath)
	if err != nil {
		return false, apperr.Wrap(err, apperr.CodeUpstreamUnavailable, "api not reachable")
	}
	if resp.IsError() {
		return false, apperr.New(apperr.CodeUpstreamUnavailable, "liveness returned "+resp.Status())
	}
	return body.Alive, nil
}

// Tunnel describes an ngrok http tunnel to the local API.
type Tunnel struct {
	Binary    string
	Port      int
	AuthToken string
	Domain    string
	PIDFile   PIDFile
	LogPath   string
}

// Args are the ngrok command line arguments.
func (t Tunnel) Args() []string {
	args := []string{"http", strconv.Itoa(t.Port), "--log", "stdout"}
	if t.AuthToken != "" {
		args = append(args, "--authtoken", t.AuthToken)
	}
	if t.Domain != "" {
		args = append(args, "--domain", t.Domain)
	}
	return args
}

// PublicURL is the tunnel's https address when a reserved domain is configured.
func (t Tunnel) PublicURL() string {
	if t.Domain == "" {
		return ""
	}
	return "https://" + strings.TrimPrefix(t.Domain, "https://")
}

// Start launches ngrok in the background and records its pid. It refuses
// when the recorded tunnel is still alive.
func (t Tunnel) Start(ctx context.Context) (int, error) {
	if pid, running := t.PIDFile.Running(ctx); running {
		return 0, apperr.New(apperr.CodeConflict, fmt.Sprintf("tunnel already running with pid %d", pid))
	}
	bin := t.Binary
	if bin == "" {
		bin = "ngrok"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeNotFound, bin+" not found in PATH")
	}

	cmd := exec.Command(path, t.Args()...)
	if t.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(t.LogPath), 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(t.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, fmt.Errorf("failed to open tunnel log: %w", err)
		}
		defer f.Close()
		cmd.Stdout = f
		cmd.Stderr = f
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", bin, err)
	}
	pid := cmd.Process.Pid
	if err := t.PIDFile.Write(pid); err != nil {
		_ = cmd.Process.Kill()
		return 0, err
	}
	_ = cmd.Process.Release()
	return pid, nil
}

// Terminate stops pid and waits briefly for it to exit.
func Terminate(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeNotFound, fmt.Sprintf("process %d not found", pid))
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		return fmt.Errorf("failed to terminate %d: %w", pid, err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !ProcessAlive(ctx, pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return p.KillWithContext(ctx)
}
