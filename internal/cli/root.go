// Package cli wires the formrel command line: listing built-in forms,
// evaluating and submitting payloads, the alias marshaller and interactive
// filling.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formrel/pkg/form"
	"github.com/goliatone/go-formrel/pkg/loader"
	"github.com/goliatone/go-formrel/pkg/options"
	"github.com/goliatone/go-formrel/pkg/tui"
)

// Option configures the command tree.
type Option func(*App)

// WithFS sets the filesystem used for payloads, outputs and form directories.
func WithFS(fs afero.Fs) Option {
	return func(a *App) {
		if fs != nil {
			a.fs = fs
		}
	}
}

// WithRegistry overrides the option suppliers.
func WithRegistry(registry options.Registry) Option {
	return func(a *App) {
		if registry != nil {
			a.registry = registry
		}
	}
}

// WithPromptDriver overrides the terminal driver used by fill.
func WithPromptDriver(driver tui.PromptDriver) Option {
	return func(a *App) {
		if driver != nil {
			a.driver = driver
		}
	}
}

// App holds the shared state of every command.
type App struct {
	fs       afero.Fs
	registry options.Registry
	driver   tui.PromptDriver
	logger   *slog.Logger

	verbose  bool
	formsDir string
}

// NewRoot builds the root command.
func NewRoot(opts ...Option) *cobra.Command {
	app := &App{
		fs:       afero.NewOsFs(),
		registry: options.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(app)
	}

	root := &cobra.Command{
		Use:           "formrel",
		Short:         "Evaluate declarative conditional forms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			app.logger = newLogger(cmd.ErrOrStderr(), app.verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	root.PersistentFlags().StringVar(&app.formsDir, "forms-dir", "", "Directory of extra JSON/YAML form schemas")

	root.AddCommand(
		app.newFormsCmd(),
		app.newEvalCmd(),
		app.newSubmitCmd(),
		app.newDecomposeCmd(),
		app.newComposeCmd(),
		app.newFillCmd(),
	)
	return root
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (a *App) store() (*loader.Store, error) {
	store, err := loader.Builtin()
	if err != nil {
		return nil, err
	}
	if a.formsDir == "" {
		return store, nil
	}

	ok, err := afero.DirExists(a.fs, a.formsDir)
	if err != nil {
		return nil, fmt.Errorf("forms dir: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("forms dir %q does not exist", a.formsDir)
	}
	extra, err := loader.LoadFS(afero.NewIOFS(afero.NewBasePathFs(a.fs, a.formsDir)))
	if err != nil {
		return nil, err
	}
	if err := store.Merge(extra); err != nil {
		return nil, err
	}
	return store, nil
}

type sessionFlags struct {
	mode   string
	values string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", string(form.ModeCreate), "Form mode: create or edit")
	cmd.Flags().StringVarP(&f.values, "values", "f", "", "JSON payload to load (- for stdin)")
}

func (a *App) openSession(cmd *cobra.Command, id string, flags sessionFlags) (*form.Session, error) {
	mode, err := parseMode(flags.mode)
	if err != nil {
		return nil, err
	}
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	s, ok := store.Schema(id)
	if !ok {
		return nil, fmt.Errorf("unknown form %q (available: %s)", id, strings.Join(store.IDs(), ", "))
	}

	sess, err := form.New(s, form.WithLogger(a.logger), form.WithMode(mode))
	if err != nil {
		return nil, err
	}
	if flags.values == "" {
		return sess, nil
	}

	var payload map[string]any
	if err := a.readJSON(cmd, flags.values, &payload); err != nil {
		return nil, err
	}
	if err := sess.Load(payload); err != nil {
		return nil, err
	}
	return sess, nil
}

func parseMode(raw string) (form.Mode, error) {
	switch form.Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", form.ModeCreate:
		return form.ModeCreate, nil
	case form.ModeEdit:
		return form.ModeEdit, nil
	default:
		return "", fmt.Errorf("invalid mode %q (want create or edit)", raw)
	}
}

func (a *App) readJSON(cmd *cobra.Command, path string, dest any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = afero.ReadFile(a.fs, path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (a *App) writeJSON(cmd *cobra.Command, path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := afero.WriteFile(a.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Payload written to %s\n", path)
	return nil
}
