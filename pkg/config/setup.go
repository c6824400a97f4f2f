package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/casegraph/internal/datasource"
)

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// RunSetup asks for the graph store settings, starting from cfg, and returns
// the edited config. Nothing is saved.
func RunSetup(cfg Config) (Config, error) {
	fmt.Println("cg setup: graph store")
	fmt.Println("─────────────────────")

	source := cfg.Source.Type
	if source == "" {
		source = string(datasource.SourceTypeNeo4j)
	}
	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where does the case graph live?").
				Options(
					huh.NewOption("Neo4j database (bolt)", string(datasource.SourceTypeNeo4j)),
					huh.NewOption("Dashboard REST API", string(datasource.SourceTypeHTTP)),
					huh.NewOption("Offline case file (SQLite)", string(datasource.SourceTypeSQLite)),
					huh.NewOption("JSON dataset file", string(datasource.SourceTypeFile)),
				).
				Value(&source),
		),
	)
	if err := form.Run(); err != nil {
		return cfg, err
	}
	cfg.Source.Type = source

	var err error
	switch datasource.SourceType(source) {
	case datasource.SourceTypeNeo4j:
		err = collectNeo4j(&cfg)
	case datasource.SourceTypeHTTP:
		err = collectAPI(&cfg)
	default:
		err = collectDataPath(&cfg)
	}
	if err != nil {
		return cfg, err
	}
	if err := collectView(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func collectNeo4j(cfg *Config) error {
	n := &cfg.Source.Neo4j
	return newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bolt URI").
				Value(&n.URI).
				Placeholder("bolt://localhost:7687").
				Validate(required("URI")),
			huh.NewInput().
				Title("User").
				Value(&n.User),
			huh.NewInput().
				Title("Password").
				Description("Leave empty to use NEO4J_PASSWORD at runtime").
				EchoMode(huh.EchoModePassword).
				Value(&n.Password),
			huh.NewInput().
				Title("Database").
				Value(&n.Database).
				Placeholder("neo4j"),
		),
	).Run()
}

func collectAPI(cfg *Config) error {
	a := &cfg.Source.API
	return newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Value(&a.URL).
				Placeholder("http://localhost:8000/api/v1").
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
						return fmt.Errorf("must start with http:// or https://")
					}
					return nil
				}),
			huh.NewInput().
				Title("Bearer token (optional)").
				Description("Leave empty to use CG_API_TOKEN at runtime").
				EchoMode(huh.EchoModePassword).
				Value(&a.Token),
		),
	).Run()
}

func collectDataPath(cfg *Config) error {
	if err := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Case file path").
				Value(&cfg.Source.DataPath).
				Validate(required("path")),
		),
	).Run(); err != nil {
		return err
	}
	cfg.Source.DataPath = expandHome(cfg.Source.DataPath)
	return nil
}

func collectView(cfg *Config) error {
	limit := strconv.Itoa(cfg.View.Limit)
	depth := strconv.Itoa(cfg.View.Depth)
	if err := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Relationships per fetch").
				Value(&limit).
				Validate(intAtLeast(1)),
			huh.NewInput().
				Title("Search depth (hops)").
				Value(&depth).
				Validate(intAtLeast(datasource.MinDepth)),
			huh.NewConfirm().
				Title("Refresh automatically when a case file changes?").
				Value(&cfg.UI.Watch),
		),
	).Run(); err != nil {
		return err
	}
	cfg.View.Limit, _ = strconv.Atoi(strings.TrimSpace(limit))
	d, _ := strconv.Atoi(strings.TrimSpace(depth))
	cfg.View.Depth = datasource.ClampDepth(d)
	return nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func intAtLeast(lo int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("enter a whole number")
		}
		if n < lo {
			return fmt.Errorf("must be at least %d", lo)
		}
		return nil
	}
}
