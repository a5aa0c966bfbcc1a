package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/msalah0e/canopy/internal/config"
	"github.com/msalah0e/canopy/internal/editor"
	"github.com/msalah0e/canopy/internal/registry"
	"github.com/msalah0e/canopy/internal/store"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
)

var version = "0.3.0"

var (
	cfg     *config.Config
	reg     *registry.Registry
	noColor bool
)

func loadConfig() *config.Config {
	if cfg == nil {
		cfg = config.Load()
	}
	return cfg
}

func loadRegistry() *registry.Registry {
	if reg != nil {
		return reg
	}
	r, err := registry.LoadAll(loadConfig().PluginDir())
	if err != nil {
		ui.Bad.Printf("canopy: failed to load catalog: %v\n", err)
		return registry.New(nil)
	}
	reg = r
	return reg
}

func openStore() (*store.Store, error) {
	c := loadConfig()
	kv, err := store.Open(c.Store.Backend, c.StorePath())
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", c.Store.Backend, err)
	}
	return store.New(kv), nil
}

// openWorkspace builds a workspace over the configured store with saved
// custom types restored. The saved design is loaded when load is set.
func openWorkspace(ctx context.Context, load bool) (*editor.Workspace, *store.Store, error) {
	c := loadConfig()
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	ws := editor.New(loadRegistry(), st, editor.Options{
		Reparent:       c.Drop.Reparent,
		AutoPreview:    c.Preview.Auto,
		Debounce:       c.Preview.Debounce.Duration,
		PersistCatalog: c.Catalog.Persist,
		Journal:        editor.ActivityJournal,
	})
	if _, err := ws.RestoreCatalog(ctx); err != nil {
		ui.Warn.Printf("  %s could not restore custom types: %v\n", ui.WarnIcon(), err)
	}
	if load {
		if _, err := ws.Load(ctx); err != nil {
			st.Close()
			return nil, nil, err
		}
	}
	return ws, st, nil
}

// catalogRegistry returns the registry with saved custom types restored.
func catalogRegistry(ctx context.Context) *registry.Registry {
	ws, st, err := openWorkspace(ctx, false)
	if err != nil {
		return loadRegistry()
	}
	st.Close()
	return ws.Registry()
}

// editDesign loads the saved design, applies fn and saves the result.
func editDesign(ctx context.Context, fn func(ws *editor.Workspace) error) error {
	ws, st, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := fn(ws); err != nil {
		return err
	}
	_, err = ws.Save(ctx)
	return err
}

func fail(format string, args ...any) {
	ui.Bad.Printf("  "+format+"\n", args...)
	os.Exit(1)
}

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "canopy: a visual page builder",
	Long: ui.Brand.Sprint(ui.Tree+" canopy") + ": assemble pages from a palette of components\n" +
		ui.Subtle.Sprint("Design in the browser, export React source, preview live"),
	Version:       version + " " + ui.Tree,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		c := loadConfig()
		ui.SetColor(c.UI.Color && !noColor)
	},
}

func init() {
	rootCmd.SetVersionTemplate("canopy {{ .Version }}\n")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		serveCmd(),
		stopCmd(),
		statusCmd(),
		watchCmd(),
		exportCmd(),
		catalogCmd(),
		designCmd(),
		nodeCmd(),
		actlogCmd(),
		configCmd(),
		completionCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		ui.Bad.Fprintf(os.Stderr, "canopy: %v\n", err)
	}
	return err
}
