package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formrel/pkg/alias"
	"github.com/goliatone/go-formrel/pkg/form"
	"github.com/goliatone/go-formrel/pkg/options"
	"github.com/goliatone/go-formrel/pkg/tui"
)

func (a *App) newFormsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List available forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, id := range store.IDs() {
				s, _ := store.Schema(id)
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, s.Title, s.Resource)
			}
			return w.Flush()
		},
	}
}

type fieldReport struct {
	Address string `json:"address"`
	form.FieldState
}

func (a *App) newEvalCmd() *cobra.Command {
	var (
		flags   sessionFlags
		resolve bool
	)
	cmd := &cobra.Command{
		Use:   "eval <form>",
		Short: "Load a payload and print every field's value, validity and enabled state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(cmd, args[0], flags)
			if err != nil {
				return err
			}
			if resolve {
				if err := a.applyOptions(cmd, sess); err != nil {
					return err
				}
			}

			var report []fieldReport
			for _, addr := range sess.Addresses() {
				state, _ := sess.Field(addr)
				report = append(report, fieldReport{Address: addr.String(), FieldState: state})
			}
			return a.writeJSON(cmd, "", report)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&resolve, "resolve-options", false, "Resolve select options (netmasks, prefixes, host NICs) before evaluating")
	return cmd
}

func (a *App) newSubmitCmd() *cobra.Command {
	var (
		flags  sessionFlags
		output string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "submit <form>",
		Short: "Load a payload and print the submission payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(cmd, args[0], flags)
			if err != nil {
				return err
			}
			return a.submit(cmd, sess, output, strict)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the payload to a file instead of stdout")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when enabled fields are invalid")
	return cmd
}

func (a *App) submit(cmd *cobra.Command, sess *form.Session, output string, strict bool) error {
	payload, err := sess.Submit()
	var invalid form.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		addrs := make([]string, 0, len(invalid))
		for addr := range invalid {
			addrs = append(addrs, addr)
		}
		sort.Strings(addrs)
		for _, addr := range addrs {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is invalid (%s)\n", addr, invalid[addr])
		}
		if strict {
			return invalid
		}
	case err != nil:
		return err
	}
	return a.writeJSON(cmd, output, payload)
}

func (a *App) newDecomposeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompose <address/prefix>...",
		Short: "Split canonical alias strings into per-protocol entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type decomposed struct {
				Canonical string       `json:"canonical"`
				Family    alias.Family `json:"family"`
				alias.Entry
			}
			out := make([]decomposed, 0, len(args))
			for _, raw := range args {
				parsed := alias.Parse(raw)
				out = append(out, decomposed{
					Canonical: raw,
					Family:    parsed.Family,
					Entry:     alias.EntryOf(parsed),
				})
			}
			return a.writeJSON(cmd, "", out)
		},
	}
}

func (a *App) newComposeCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Flatten per-protocol alias entries (JSON list) into canonical strings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var entries []alias.Entry
			if err := a.readJSON(cmd, input, &entries); err != nil {
				return err
			}
			return a.writeJSON(cmd, "", alias.Compose(entries))
		},
	}
	cmd.Flags().StringVarP(&input, "file", "f", "-", "JSON list of entries (- for stdin)")
	return cmd
}

func (a *App) newFillCmd() *cobra.Command {
	var (
		flags  sessionFlags
		output string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "fill <form>",
		Short: "Fill a form interactively and print the submission payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(cmd, args[0], flags)
			if err != nil {
				return err
			}
			if err := a.applyOptions(cmd, sess); err != nil {
				return err
			}

			driver := a.driver
			if driver == nil {
				driver = tui.NewSurveyDriver(cmd.OutOrStdout())
			}
			filler := tui.New(tui.WithPromptDriver(driver), tui.WithLogger(a.logger))
			if err := filler.Fill(cmd.Context(), sess); err != nil {
				return err
			}
			return a.submit(cmd, sess, output, strict)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the payload to a file instead of stdout")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when enabled fields are invalid")
	return cmd
}

func (a *App) applyOptions(cmd *cobra.Command, sess *form.Session) error {
	missing, err := options.Apply(cmd.Context(), sess, a.registry)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		a.logger.Warn("no option supplier registered", "sources", strings.Join(missing, ","))
	}
	return nil
}
