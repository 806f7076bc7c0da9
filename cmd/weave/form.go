package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/weave/internal/cli"
	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/internal/presentation/tui"
	"github.com/aretw0/weave/internal/workflowfile"
	"github.com/aretw0/weave/pkg/asyncprop"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/spf13/cobra"
)

var formCmd = &cobra.Command{
	Use:   "form <workflow> <node>",
	Short: "Preview the visible configuration form of a node",
	Long: `Opens the workflow in an in-memory editor, applies the --set assignments
and renders the properties and credentials that are visible for the resulting
inputs. Async properties are loaded with the loaders from weave.yaml.`,
	Example: `  weave form flow.yaml llm --set model_provider=anthropic --set options.temperature=0.2`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Previews never touch the persisted history.
		cfg.Storage = config.StorageConfig{Backend: config.BackendMemory}
		cfg.History.Settle = 0

		g, err := workflowfile.Read(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := cli.Build(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		id, nodeID := workflowID(args[0]), args[1]
		if err := rt.Editor.Open(ctx, id, g); err != nil {
			return err
		}

		form, err := rt.Editor.Form(ctx, id, nodeID)
		if err != nil {
			return err
		}
		sets, _ := cmd.Flags().GetStringArray("set")
		for _, s := range sets {
			path, raw, ok := strings.Cut(s, "=")
			if !ok {
				return fmt.Errorf("invalid --set %q, want path=value", s)
			}
			if form, err = rt.Editor.UpdateInput(ctx, id, nodeID, path, parseValue(raw)); err != nil {
				return err
			}
		}

		wait, _ := cmd.Flags().GetDuration("wait")
		deadline := time.Now().Add(wait)
		for pending(form) && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
			if form, err = rt.Editor.Form(ctx, id, nodeID); err != nil {
				return err
			}
		}

		title := nodeID
		if n, ok := g.Node(nodeID); ok {
			title = n.DisplayName()
		}
		md := tui.FormMarkdown(title, form)

		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		out, err := tui.NewRenderer()(md)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formCmd)
	formCmd.Flags().StringArray("set", nil, "Input assignment path=value (value parsed as JSON when possible)")
	formCmd.Flags().Duration("wait", 2*time.Second, "How long to wait for async properties before rendering")
	formCmd.Flags().Bool("raw", false, "Print markdown without terminal styling")
}

func pending(form domain.FormState) bool {
	for _, s := range form.Async {
		switch asyncprop.Status(s.Status) {
		case asyncprop.StatusLoading, asyncprop.StatusBackgroundLoading:
			return true
		}
	}
	return false
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
