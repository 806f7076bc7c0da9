package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/weave/internal/workflowfile"
	"github.com/aretw0/weave/pkg/connectivity"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow>...",
	Short: "Check workflow files for consistency",
	Long: `Reports duplicate node ids, dangling edges, self loops and cycles in each workflow file.
With --inputs, the visible inputs of every node are also checked against their property types.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		inputs, _ := cmd.Flags().GetBool("inputs")
		out := cmd.OutOrStdout()

		failed := 0
		for _, path := range args {
			if err := validateFile(path, strict, inputs); err != nil {
				failed++
				fmt.Fprintf(out, "❌ %s\n", path)
				var vErr *connectivity.ValidationError
				if errors.As(err, &vErr) {
					for _, p := range vErr.Problems {
						fmt.Fprintf(out, "   - %s\n", p)
					}
				} else {
					fmt.Fprintf(out, "   - %v\n", err)
				}
				continue
			}
			fmt.Fprintf(out, "✅ %s\n", path)
		}

		if failed > 0 {
			return fmt.Errorf("validation failed for %d of %d workflow(s)", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Reject keys the workflow model does not know")
	validateCmd.Flags().Bool("inputs", false, "Check node inputs against their property types")
}

func validateFile(path string, strict, inputs bool) error {
	var opts []workflowfile.Option
	if strict {
		opts = append(opts, workflowfile.Strict())
	}
	g, err := workflowfile.Read(path, opts...)
	if err != nil {
		return err
	}

	var problems []string
	if err := connectivity.ValidateGraph(g); err != nil {
		var vErr *connectivity.ValidationError
		if !errors.As(err, &vErr) {
			return err
		}
		problems = append(problems, vErr.Problems...)
	}
	if inputs {
		problems = append(problems, inputProblems(g)...)
	}

	if len(problems) > 0 {
		return &connectivity.ValidationError{Problems: problems}
	}
	return nil
}

func inputProblems(g domain.Graph) []string {
	var problems []string
	for i := range g.Nodes {
		n := &g.Nodes[i]
		v := n.ActiveVersion()
		if v == nil {
			continue
		}
		for _, issue := range schema.Issues(schema.ValidateInputs(v.Properties, v.Inputs, v.Version)) {
			problems = append(problems, fmt.Sprintf("Node '%s': %s", n.ID, issue))
		}
	}
	return problems
}
