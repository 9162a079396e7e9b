package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/raaihank/textrules/internal/action"
	"github.com/raaihank/textrules/internal/apply"
	"github.com/raaihank/textrules/internal/engine"
	"github.com/raaihank/textrules/internal/host"
	"github.com/raaihank/textrules/internal/prompt"
	"github.com/spf13/cobra"
)

var (
	fileRanges []string
	fileLine   int
	fileDryRun bool

	stringifyCopy bool
)

var clipboardCmd = &cobra.Command{
	Use:   "clipboard [LIST...]",
	Short: "Apply action lists to the clipboard contents",
	Long: `Reads the clipboard, applies the given action lists and writes the
result back. Each LIST is the name of a configured action list or an
inline JSON list of rules. Without LIST an action list is chosen
interactively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h := current.host(host.Options{})
		text, err := h.ReadClipboard(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read clipboard: %w", err)
		}

		outcome, err := current.run(cmd, args, h, engine.Request{Text: text})
		if err != nil {
			return err
		}
		if err := h.WriteClipboard(cmd.Context(), outcome.Result.Text); err != nil {
			return fmt.Errorf("failed to write clipboard: %w", err)
		}
		report(cmd.ErrOrStderr(), outcome)
		return nil
	},
}

var pasteCmd = &cobra.Command{
	Use:   "paste [LIST...]",
	Short: "Print the clipboard contents with action lists applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		h := current.host(host.Options{})
		text, err := h.ReadClipboard(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read clipboard: %w", err)
		}

		outcome, err := current.run(cmd, args, h, engine.Request{Text: text})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), outcome.Result.Text)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run [LIST...]",
	Short: "Apply action lists to standard input",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("run reads standard input; name at least one action list")
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		text := string(data)
		h := current.host(host.Options{SelectedText: text})
		outcome, err := current.run(cmd, args, h, engine.Request{Text: text})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), outcome.Result.Text)
		report(cmd.ErrOrStderr(), outcome)
		return nil
	},
}

var fileCmd = &cobra.Command{
	Use:   "file PATH [LIST...]",
	Short: "Apply action lists to a file in place",
	Long: `Applies action lists to PATH. By default the whole file is edited;
--range (byte offsets start:end, repeatable) or --line restrict the edit
to selections.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := host.OpenFile(args[0])
		if err != nil {
			return err
		}

		selections := make([]apply.Range, 0, len(fileRanges)+1)
		for _, s := range fileRanges {
			r, err := parseRange(s)
			if err != nil {
				return err
			}
			selections = append(selections, r)
		}
		if fileLine > 0 {
			r, err := host.LineRange(doc.Text(), fileLine)
			if err != nil {
				return err
			}
			selections = append(selections, r)
		}

		opts := host.Options{File: doc.Path(), LineNumber: fileLine}
		if len(selections) > 0 {
			r := selections[0]
			if r.Start >= 0 && r.Start <= r.End && r.End <= len(doc.Text()) {
				opts.SelectedText = doc.Text()[r.Start:r.End]
			}
		}

		outcome, err := current.run(cmd, args[1:], current.host(opts), engine.Request{
			Document:   doc,
			Selections: selections,
		})
		if err != nil {
			return err
		}

		if fileDryRun {
			fmt.Fprint(cmd.OutOrStdout(), doc.Text())
		} else if doc.Modified() {
			if err := doc.Save(); err != nil {
				return err
			}
		}
		report(cmd.ErrOrStderr(), outcome)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured action lists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		options, err := action.Options(cmd.Context(), current.engine.Store())
		if err != nil {
			return err
		}
		if len(options) == 0 {
			return action.ErrNoActions
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, o := range options {
			fmt.Fprintf(w, "%s\t%s\n", o.Name, o.Description)
		}
		return w.Flush()
	},
}

var stringifyCmd = &cobra.Command{
	Use:   "stringify [REGEXP]",
	Short: "Escape a regular expression for use in a JSON configuration file",
	Long: `Validates REGEXP and prints it as the contents of a JSON string.
Without REGEXP the pattern is read from standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var pattern string
		if len(args) == 1 {
			pattern = args[0]
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			pattern = strings.TrimRight(string(data), "\r\n")
		}

		out, err := action.Stringify(pattern)
		if err != nil {
			return err
		}
		if stringifyCopy {
			if err := current.host(host.Options{}).WriteClipboard(cmd.Context(), out); err != nil {
				return fmt.Errorf("failed to write clipboard: %w", err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "textrules %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	fileCmd.Flags().StringArrayVar(&fileRanges, "range", nil, "byte range start:end to edit (repeatable)")
	fileCmd.Flags().IntVar(&fileLine, "line", 0, "edit a single 1-based line")
	fileCmd.Flags().BoolVar(&fileDryRun, "dry-run", false, "print the result instead of saving")

	stringifyCmd.Flags().BoolVar(&stringifyCopy, "copy", false, "also copy the result to the clipboard")
}

// host builds a placeholder host for one command
func (a *app) host(opts host.Options) *host.Host {
	opts.Config = a.engine.Config()
	opts.Logger = a.logger
	opts.Version = version
	return host.New(opts)
}

// run turns args into action lists, choosing one interactively when none
// are given, and runs them.
func (a *app) run(cmd *cobra.Command, args []string, h *host.Host, req engine.Request) (*engine.Outcome, error) {
	lists, err := parseListArgs(args)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		if !prompt.Interactive() {
			return nil, fmt.Errorf("no action list given and no terminal to choose one")
		}
		list, err := action.SelectList(cmd.Context(), a.engine.Store(), prompt.NewTerminal(os.Stdin, os.Stderr))
		if err != nil {
			return nil, err
		}
		lists = []action.List{list}
	}

	req.Lists = lists
	req.Prompter = prompt.ForPolicy(a.engine.Config().Resolution.OnError, a.logger.WithAction(strings.Join(args, ",")))
	req.Host = h
	return a.engine.Run(cmd.Context(), req)
}

// report prints missing list names and a one-line summary
func report(w io.Writer, outcome *engine.Outcome) {
	if len(outcome.Action.Missing) > 0 {
		fmt.Fprintf(w, "Warning: action list(s) cannot be found: %s\n", strings.Join(outcome.Action.Missing, ", "))
	}
	fmt.Fprintf(w, "%d replacement(s) from %d rule(s)\n", outcome.Result.Replacements(), len(outcome.Action.Rules))
}
