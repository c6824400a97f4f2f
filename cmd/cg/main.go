package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/casegraph/internal/datasource"
	"github.com/vanderheijden86/casegraph/pkg/config"
	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/export"
	"github.com/vanderheijden86/casegraph/pkg/gateway"
	"github.com/vanderheijden86/casegraph/pkg/layout"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/ui"
	"github.com/vanderheijden86/casegraph/pkg/version"
	"github.com/vanderheijden86/casegraph/pkg/view"
	"github.com/vanderheijden86/casegraph/pkg/watcher"
)

// options holds the parsed command line. Zero values mean "not given".
type options struct {
	configPath  string
	source      string
	dataPath    string
	project     string
	search      string
	label       string
	depth       int
	limit       int
	width       float64
	height      float64
	zoom        float64
	selectID    string
	exportPath  string
	saveDB      string
	setup       bool
	metricsAddr string
	cpuProfile  string
	version     bool
	help        bool
}

func parseFlags(args []string, stderr io.Writer) (options, *flag.FlagSet, error) {
	var o options
	fs := flag.NewFlagSet("cg", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Config file (default ~/.config/cg/config.yaml)")
	fs.StringVar(&o.source, "source", "", "Graph store: neo4j, http, sqlite or file")
	fs.StringVar(&o.dataPath, "data", "", "Case file for the sqlite and file sources")
	fs.StringVar(&o.project, "project", "", "Project id to show, or 'all'")
	fs.StringVar(&o.search, "search", "", "Start with a search for this entity name")
	fs.StringVar(&o.label, "label", "", "Start with every entity of this label, e.g. Person or Device")
	fs.IntVar(&o.depth, "depth", 0, "Search and label depth in hops (1-5)")
	fs.IntVar(&o.limit, "limit", 0, "Maximum relationships per fetch")
	fs.Float64Var(&o.width, "width", 0, "Layout canvas width")
	fs.Float64Var(&o.height, "height", 0, "Layout canvas height")
	fs.Float64Var(&o.zoom, "zoom", 0, "Initial zoom (0.2-5)")
	fs.StringVar(&o.selectID, "select", "", "Node id to select before exporting")
	fs.StringVar(&o.exportPath, "export", "", "Render the graph to an .svg, .png or .json file and exit")
	fs.StringVar(&o.saveDB, "save-db", "", "Write the fetched graph to an offline SQLite case file and exit")
	fs.BoolVar(&o.setup, "setup", false, "Run interactive setup and save the config")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	fs.StringVar(&o.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.BoolVar(&o.version, "version", false, "Show version")
	fs.BoolVar(&o.help, "help", false, "Show help")
	err := fs.Parse(args)
	return o, fs, err
}

// applyFlags layers command-line overrides on top of the loaded config.
func applyFlags(cfg *config.Config, o options) {
	if o.source != "" {
		cfg.Source.Type = o.source
	}
	if o.dataPath != "" {
		cfg.Source.DataPath = o.dataPath
	}
	if o.project != "" {
		cfg.View.Project = o.project
	}
	if o.depth != 0 {
		cfg.View.Depth = o.depth
	}
	if o.limit != 0 {
		cfg.View.Limit = o.limit
	}
	if o.width != 0 {
		cfg.Layout.Width = o.width
	}
	if o.height != 0 {
		cfg.Layout.Height = o.height
	}
	if o.zoom != 0 {
		cfg.View.Zoom = o.zoom
	}
	if o.metricsAddr != "" {
		cfg.Metrics.Addr = o.metricsAddr
	}
}

func loadConfig(o options) (config.Config, error) {
	if o.configPath == "" {
		return config.Load()
	}
	cfg, err := config.LoadFrom(o.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

func viewConfig(cfg config.Config) view.Config {
	vc := view.DefaultConfig()
	if cfg.View.Limit > 0 {
		vc.Limit = cfg.View.Limit
	}
	if cfg.View.Depth > 0 {
		vc.Depth = cfg.View.Depth
	}
	vc.Width, vc.Height = cfg.Layout.Width, cfg.Layout.Height
	vc.Layout = cfg.LayoutOptions()
	return vc
}

// newController builds the view over store and issues the initial request.
func newController(cfg config.Config, o options, store datasource.Store) (*view.Controller, *gateway.Gateway, view.Request) {
	gw := gateway.New(store, gateway.WithDefaultLimit(cfg.View.Limit))
	ctrl := view.New(gw, viewConfig(cfg))
	if cfg.View.Zoom != 0 {
		ctrl.SetZoom(cfg.View.Zoom)
	}
	req, _ := ctrl.SetProjectFilter(cfg.View.Project)
	switch {
	case o.search != "":
		req, _ = ctrl.Search(o.search)
	case o.label != "":
		req, _ = ctrl.ShowLabel(o.label)
	}
	return ctrl, gw, req
}

// runHeadless fetches once, then exports and/or saves the graph.
func runHeadless(ctx context.Context, cfg config.Config, o options, store datasource.Store, stdout io.Writer) error {
	defer debug.LogEnterExit("runHeadless")()
	ctrl, gw, req := newController(cfg, o, store)
	ctrl.Do(ctx, req)
	st := ctrl.State()
	if st.Err != nil {
		return st.Err
	}
	if !st.Interactive {
		fmt.Fprintf(os.Stderr, "Warning: %d nodes exceeds the interactive limit of %d\n", st.Snapshot.NodeCount(), layout.InteractiveNodeLimit)
	}
	if o.selectID != "" {
		if _, ok := ctrl.Select(o.selectID).ID(); !ok {
			fmt.Fprintf(os.Stderr, "Warning: node %q is not in the graph, nothing selected\n", o.selectID)
		}
	}

	if o.saveDB != "" {
		projects, err := gw.ListProjects(ctx)
		if err != nil {
			return err
		}
		if err := datasource.SaveSnapshot(ctx, o.saveDB, st.Snapshot, projects); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved %d nodes, %d relationships to %s\n", st.Snapshot.NodeCount(), st.Snapshot.EdgeCount(), o.saveDB)
	}

	if o.exportPath != "" {
		path, err := export.SaveScene(export.SceneOptions{Path: o.exportPath, Scene: ctrl.Scene()})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s (%d nodes, %d relationships)\n", path, st.Snapshot.NodeCount(), st.Snapshot.EdgeCount())
	}
	return nil
}

func main() {
	o, fs, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if o.help {
		fmt.Println("Usage: cg [options]")
		fmt.Println("\nExplore the relationship graph of a forensic case.")
		fs.PrintDefaults()
		return
	}
	if o.version {
		fmt.Printf("cg %s\n", version.String())
		return
	}

	code := run(o)
	logTimings()
	if code != 0 {
		pprof.StopCPUProfile()
		os.Exit(code)
	}
}

// logTimings prints per-stage timings when CG_DEBUG is set.
func logTimings() {
	for _, s := range metrics.Summary() {
		debug.Log("timing %s", s)
	}
}

func run(o options) int {
	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	if o.setup {
		cfg, err = config.RunSetup(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			return 1
		}
		path := o.configPath
		if path == "" {
			path = config.ConfigPath()
		}
		if err := config.SaveTo(cfg, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			return 1
		}
		fmt.Printf("Saved %s\n", path)
		return 0
	}

	applyFlags(&cfg, o)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'cg -setup' to configure a graph store.")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				fmt.Fprintf(os.Stderr, "Metrics server: %v\n", err)
			}
		}()
	}

	opts := cfg.DataSource()
	store, err := datasource.Open(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s store: %v\n", opts.Type, err)
		return 1
	}
	defer store.Close()

	if o.exportPath != "" || o.saveDB != "" {
		if err := runHeadless(ctx, cfg, o, store, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := runTUI(ctx, cfg, o, store); err != nil {
		fmt.Printf("Error running cg: %v\n", err)
		return 1
	}
	return 0
}

func runTUI(ctx context.Context, cfg config.Config, o options, store datasource.Store) error {
	// Debug output would tear the alt screen.
	if debug.Enabled() {
		if f, err := os.Create(filepath.Join(os.TempDir(), "cg-debug.log")); err == nil {
			debug.SetOutput(f)
			defer func() {
				debug.SetOutput(os.Stderr)
				f.Close()
			}()
		}
	}

	ctrl, gw, _ := newController(cfg, o, store)

	var w *watcher.Watcher
	if opts := cfg.DataSource(); opts.Type.IsFileBacked() && cfg.UI.Watch {
		fw, err := watcher.New(opts.Path, watcher.WithOnError(func(err error) {
			debug.Log("watcher: %v", err)
		}))
		if err == nil && fw.Start(ctx) == nil {
			w = fw
			defer w.Stop()
			debug.LogIf(w.IsPolling(), "watcher: polling %s every %v (%s)", w.Path(), w.PollInterval(), w.FilesystemType())
		}
	}

	m := ui.New(ctx, ui.Options{
		Controller:  ctrl,
		Projects:    gw,
		Watcher:     w,
		ShowDetails: cfg.UI.ShowDetails,
	})
	return runTUIProgram(ctx, m)
}

func runTUIProgram(ctx context.Context, m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM; kill if the program hangs.
	go func() {
		select {
		case <-runDone:
			return
		case <-ctx.Done():
		}

		p.Quit()

		select {
		case <-runDone:
		case <-time.After(5 * time.Second):
			p.Kill()
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
