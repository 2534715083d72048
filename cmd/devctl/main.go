// Command devctl bootstraps a local development environment: port checks,
// the ngrok tunnel, webhook registration and admin tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ahrie-ai/backend/config"
	"github.com/ahrie-ai/backend/internal/api"
	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/devenv"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/middleware"
	"github.com/ahrie-ai/backend/internal/telegram"
)

const runDir = ".run"

var tunnelPID = devenv.PIDFile{Path: filepath.Join(runDir, "ngrok.pid")}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: devctl <command> [flags]

Commands:
  check     report whether the API port is taken and whether the API is alive
  tunnel    start an ngrok tunnel to the API port
  stop      stop the recorded tunnel (and, with -port, the API port owner)
  webhook   register the Telegram webhook
  token     print an admin JWT
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{Service: "ahrie-devctl", Env: string(cfg.Env), Backend: logger.BackendStd, Level: cfg.LogLevel, Format: "text"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "check":
		err = check(ctx, cfg, args)
	case "tunnel":
		err = tunnel(ctx, cfg, args)
	case "stop":
		err = stopAll(ctx, args)
	case "webhook":
		err = webhook(ctx, cfg, args)
	case "token":
		err = token(cfg, args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "devctl %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func apiPort(cfg *config.Config) int {
	port, err := strconv.Atoi(cfg.ServerPort)
	if err != nil {
		return 8000
	}
	return port
}

func check(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	port := fs.Int("port", apiPort(cfg), "API port")
	_ = fs.Parse(args)

	inUse, err := devenv.PortInUse(ctx, cfg.ServerHost, *port)
	if err != nil {
		return err
	}
	if !inUse {
		fmt.Printf("port %d: free\n", *port)
		return nil
	}

	pid, name, err := devenv.PortOwner(ctx, *port)
	switch {
	case err == nil:
		fmt.Printf("port %d: in use by %s (pid %d)\n", *port, name, pid)
	case apperr.Is(err, apperr.CodeNotFound):
		fmt.Printf("port %d: in use (owner unknown)\n", *port)
	default:
		fmt.Printf("port %d: in use (owner lookup failed: %v)\n", *port, err)
	}

	alive, err := devenv.Liveness(ctx, fmt.Sprintf("http://127.0.0.1:%d", *port))
	switch {
	case err != nil:
		fmt.Printf("api: not responding (%v)\n", err)
	case alive:
		fmt.Println("api: alive")
	default:
		fmt.Println("api: responding but not alive")
	}

	if pid, running := tunnelPID.Running(ctx); running {
		fmt.Printf("tunnel: running (pid %d)\n", pid)
	}
	return nil
}

func tunnel(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tunnel", flag.ExitOnError)
	port := fs.Int("port", apiPort(cfg), "local port to expose")
	domain := fs.String("domain", cfg.NgrokDomain, "reserved ngrok domain")
	_ = fs.Parse(args)

	t := devenv.Tunnel{
		Port:      *port,
		AuthToken: cfg.NgrokAuthToken,
		Domain:    *domain,
		PIDFile:   tunnelPID,
		LogPath:   filepath.Join(runDir, "ngrok.log"),
	}
	pid, err := t.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("ngrok started (pid %d), logs in %s\n", pid, t.LogPath)
	if u := t.PublicURL(); u != "" {
		fmt.Printf("public url: %s\nset WEBHOOK_BASE_URL=%s and run: devctl webhook\n", u, u)
	}
	return nil
}

func stopAll(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	port := fs.Int("port", 0, "also stop the process listening on this port")
	_ = fs.Parse(args)

	if pid, running := tunnelPID.Running(ctx); running {
		if err := devenv.Terminate(ctx, pid); err != nil {
			return err
		}
		fmt.Printf("stopped tunnel (pid %d)\n", pid)
	}
	if err := tunnelPID.Remove(); err != nil {
		return err
	}

	if *port == 0 {
		return nil
	}
	pid, name, err := devenv.PortOwner(ctx, *port)
	if apperr.Is(err, apperr.CodeNotFound) {
		fmt.Printf("nothing listening on port %d\n", *port)
		return nil
	}
	if err != nil {
		return err
	}
	if err := devenv.Terminate(ctx, pid); err != nil {
		return err
	}
	fmt.Printf("stopped %s (pid %d) on port %d\n", name, pid, *port)
	return nil
}

func webhook(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("webhook", flag.ExitOnError)
	base := fs.String("url", cfg.WebhookBaseURL, "public base URL of the API")
	drop := fs.Bool("drop-pending", false, "drop pending updates")
	_ = fs.Parse(args)

	if *base == "" {
		return apperr.New(apperr.CodeInvalidArgument, "WEBHOOK_BASE_URL is not set and no -url given")
	}
	webhookCfg := *cfg
	webhookCfg.WebhookBaseURL = strings.TrimRight(*base, "/")

	client := telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramBotToken, telegram.WithTimeout(15*time.Second))
	if err := client.SetWebhook(ctx, telegram.WebhookParams{
		URL:                webhookCfg.WebhookURL(),
		SecretToken:        cfg.TelegramWebhookSecret,
		AllowedUpdates:     api.AllowedUpdates,
		DropPendingUpdates: *drop,
	}); err != nil {
		return err
	}
	info, err := client.GetWebhookInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("webhook set: %s (pending updates: %d)\n", info.URL, info.PendingUpdateCount)
	return nil
}

func token(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("sub", "devctl", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	_ = fs.Parse(args)

	if cfg.AdminJWTSecret == "" {
		return apperr.New(apperr.CodeInvalidArgument, "ADMIN_JWT_SECRET is not set")
	}
	tok, err := middleware.IssueAdminToken(cfg.AdminJWTSecret, *subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
