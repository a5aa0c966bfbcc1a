package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/msalah0e/canopy/internal/preview"
	"github.com/msalah0e/canopy/internal/server"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	var origin string
	var verbose bool
	var background bool
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authoring server",
		Long: "Start the authoring server: the HTTP API, the preview page and the\n" +
			"preview socket. The saved design is loaded at startup.",
		Run: func(cmd *cobra.Command, args []string) {
			c := loadConfig()
			if addr != "" {
				c.Server.Addr = addr
				c.Server.Origin = "http://" + addr
			}
			if origin != "" {
				c.Server.Origin = strings.TrimRight(origin, "/")
			}
			if err := c.Validate(); err != nil {
				fail("invalid config: %v", err)
			}

			if running, pid := server.IsRunning(); running {
				fmt.Printf("  Server already running (PID %d)\n", pid)
				return
			}

			if background {
				exe, _ := os.Executable()
				child := exec.Command(exe, "serve", "--addr", c.Server.Addr, "--origin", c.Server.Origin)
				if verbose {
					child.Args = append(child.Args, "--verbose")
				}
				setDetached(child)
				if err := child.Start(); err != nil {
					fail("Failed to start server: %v", err)
				}
				ui.Good.Printf("  %s Server started on %s (PID %d)\n", ui.StatusIcon(true), c.Server.Origin, child.Process.Pid)
				fmt.Printf("  Preview: %s/preview\n", c.Server.Origin)
				return
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ws, st, err := openWorkspace(ctx, true)
			if err != nil {
				fail("%v", err)
			}
			defer st.Close()

			var opener preview.Opener = preview.NopOpener{}
			if c.Preview.OpenBrowser {
				opener = preview.BrowserOpener{}
			}
			srv := server.New(server.Config{
				Addr:           c.Server.Addr,
				Origin:         c.Server.Origin,
				RendererOrigin: c.RendererOrigin(),
				PreviewTimeout: c.Preview.Timeout.Duration,
				Opener:         opener,
				Verbose:        verbose,
			}, ws)

			ui.Banner("authoring server")
			ui.KV("design", fmt.Sprintf("%d components", ws.Document().Len()))
			ui.KV("store", c.Store.Backend+" "+ui.Subtle.Sprint(c.StorePath()))
			fmt.Println()

			_ = server.WritePid()
			defer server.RemovePid()

			if open && ws.Document().Len() > 0 {
				go func() {
					time.Sleep(300 * time.Millisecond)
					if err := ws.OpenPreview(ctx); err != nil {
						ui.Warn.Printf("  %s preview: %v\n", ui.WarnIcon(), err)
					}
				}()
			}

			if err := srv.Start(ctx); err != nil {
				fail("Server error: %v", err)
			}
			fmt.Println()
			ui.Subtle.Println("  server stopped")
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")
	cmd.Flags().StringVar(&origin, "origin", "", "Public origin of the server")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log all requests to stdout")
	cmd.Flags().BoolVarP(&background, "bg", "b", false, "Run in background")
	cmd.Flags().BoolVar(&open, "open", false, "Open the preview once the server is up")
	return cmd
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a background server",
		Run: func(cmd *cobra.Command, args []string) {
			running, pid := server.IsRunning()
			if !running {
				fmt.Println("  Server is not running")
				return
			}

			proc, err := os.FindProcess(pid)
			if err != nil {
				fail("Failed to find process %d: %v", pid, err)
			}
			if err := stopProcess(proc); err != nil {
				fail("Failed to stop server: %v", err)
			}

			server.RemovePid()
			ui.Good.Printf("  %s Server stopped (PID %d)\n", ui.StatusIcon(true), pid)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server and preview status",
		Run: func(cmd *cobra.Command, args []string) {
			c := loadConfig()
			running, pid := server.IsRunning()
			if !running {
				fmt.Printf("  %s Server is not running\n", ui.StatusIcon(false))
				return
			}

			client := &http.Client{Timeout: 2 * time.Second}
			resp, err := client.Get(c.Server.Origin + "/api/preview/status")
			if err != nil {
				fmt.Printf("  %s Server PID %d is not answering on %s\n", ui.WarnIcon(), pid, c.Server.Origin)
				return
			}
			defer resp.Body.Close()

			var status struct {
				Session   preview.Report `json:"session"`
				Renderers int            `json:"renderers"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&status)

			ui.Banner("status")
			ui.KV("server", fmt.Sprintf("%s %s (PID %d)", ui.StatusIcon(true), c.Server.Origin, pid))
			ui.KV("preview", strings.ToUpper(status.Session.Status.String()[:1])+status.Session.Status.String()[1:])
			ui.KV("renderers", fmt.Sprintf("%d", status.Renderers))
			if !status.Session.LastSent.IsZero() {
				ui.KV("last push", status.Session.LastSent.Format("15:04:05"))
			}
			if status.Session.Err != "" {
				ui.KV("error", ui.Bad.Sprint(status.Session.Err))
			}
		},
	}
}
