package cli

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/spf13/cobra"

	fiberadapter "github.com/lborres/agenda/adapters/fiber"
)

const shutdownTimeout = 5 * time.Second

func accessLogFormat() string {
	format := []string{
		// Timestamp & Request ID
		"${time}|${requestid}",

		// Response metadata
		"${status}|${latency}",

		// Request details
		"${method}|${path}|${queryParams}",

		// errors
		"${error}",
	}
	return strings.Join(format, "|") + "\n"
}

func NewServeCommand(opts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web shell",
		Long: `Serve the guarded views over HTTP.

The shell holds a single session for the whole process, like a browser tab:
once logged in, every client that can reach the listen address acts as that
user. It listens on ` + DefaultListenAddr + ` by default. Only bind a
non-loopback address on a trusted network.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = opts.config.ListenAddr
			}

			web := fiber.New(fiber.Config{AppName: "agenda"})
			web.Use(logger.New(logger.Config{
				Format:     accessLogFormat(),
				TimeFormat: "2006/01/02 15:04:05",
				TimeZone:   "Local",
				Stream:     cmd.ErrOrStderr(),
			}))

			app, err := newApp(cmd.Context(), opts.config, opts.logger,
				fiberadapter.New(web, fiberadapter.WithLogger(opts.logger)))
			if err != nil {
				return WrapExitError(ExitCommandError, "could not set up agenda", err)
			}
			opts.app = app

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !isLoopback(addr) {
				opts.logger.Warn("web shell reachable beyond loopback, every client shares the logged-in session", "addr", addr)
			}
			opts.logger.Warn("web shell listening", "addr", addr, "remote", opts.config.BaseURL)
			return serveUntilDone(ctx,
				func() error { return web.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}) },
				func() error { return web.ShutdownWithTimeout(shutdownTimeout) })
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

// serveUntilDone runs listen until it fails or ctx is done, then shuts down
func serveUntilDone(ctx context.Context, listen, shutdown func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- listen()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return shutdown()
	}
}

// isLoopback reports whether addr binds only the loopback interface.
// An empty host (":8080") binds every interface.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
