package main

import (
	"fmt"
	"time"

	"github.com/aretw0/weave/internal/cli"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the persisted undo/redo history of every workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rt, err := cli.Build(cmd.Context(), cfg, logger, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		ids := rt.History.Workflows()
		if len(ids) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", text.FgYellow.Sprint("No history found"))
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{
			text.FgHiCyan.Sprint("WORKFLOW"),
			text.FgHiCyan.Sprint("UNDO"),
			text.FgHiCyan.Sprint("REDO"),
			text.FgHiCyan.Sprint("LAST CHANGE"),
			text.FgHiCyan.Sprint("AT"),
		})
		for _, id := range ids {
			rec, _ := rt.History.Record(id)
			last, at := "", ""
			if n := len(rec.UndoStack); n > 0 {
				top := rec.UndoStack[n-1]
				last = top.Description
				if !top.Timestamp.IsZero() {
					at = top.Timestamp.Local().Format(time.DateTime)
				}
			}
			t.AppendRow(table.Row{id, len(rec.UndoStack), len(rec.RedoStack), last, at})
		}
		t.Render()
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <workflow>...",
	Short: "Drop the persisted history of workflows",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		rt, err := cli.Build(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		for _, id := range args {
			rt.History.Forget(id)
		}
		if err := rt.History.PersistWorkflows(ctx, args...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared history of %d workflow(s)\n", len(args))
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
