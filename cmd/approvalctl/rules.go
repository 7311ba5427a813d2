package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/profile"
)

func newRulesCmd(g *globalFlags) *cobra.Command {
	var (
		rulesFile string
		input     string
	)
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the rule table, optionally tracing it against an applicant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := lookupTarget(g.service)
			if err != nil {
				return err
			}

			set, err := t.profile.RuleSet()
			if rulesFile != "" {
				set, err = approval.LoadRuleSet(rulesFile)
			}
			if err != nil {
				return codeError(3, "%s", err)
			}
			engine, err := t.profile.NewRuleEngine(set, g.logger(cmd))
			if err != nil {
				return codeError(3, "%s", err)
			}

			if input == "" {
				return printRuleTable(cmd.OutOrStdout(), set, nil)
			}

			applicant, err := readApplicant(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			rec, err := t.profile.Fields.Parse(applicant)
			if err != nil {
				return codeError(2, "%s", err)
			}
			fired := engine.Trace(rec)
			if err := printRuleTable(cmd.OutOrStdout(), set, fired); err != nil {
				return err
			}
			p := engine.Score(rec)
			decision := approval.Rejected
			if engine.Approved(p) {
				decision = approval.Approved
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "\nscore %s -> %s (%d of %d rules fired)\n",
				profile.Number(approval.Round(p, 4)), decision, len(fired), len(set.Rules))
			return err
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "YAML rule table replacing the built-in one")
	cmd.Flags().StringVar(&input, "input", "", "Applicant JSON file (or -) to trace the rules against")
	return cmd
}

// printRuleTable writes the bounds and one row per rule. When fired is non
// nil a FIRED column marks the rules that matched.
func printRuleTable(w io.Writer, set approval.RuleSet, fired []string) error {
	hit := make(map[string]bool, len(fired))
	for _, name := range fired {
		hit[name] = true
	}

	fmt.Fprintf(w, "base %s  floor %s  ceiling %s  threshold %s\n\n",
		profile.Number(set.Base), profile.Number(set.Floor), profile.Number(set.Ceiling), profile.Number(set.Threshold))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if fired != nil {
		fmt.Fprintln(tw, "FIRED\tNAME\tADJUST\tWHEN")
	} else {
		fmt.Fprintln(tw, "NAME\tADJUST\tWHEN")
	}
	for _, r := range set.Rules {
		adjust := strconv.FormatFloat(r.Adjust, 'f', -1, 64)
		if r.Adjust > 0 {
			adjust = "+" + adjust
		}
		if fired != nil {
			mark := ""
			if hit[r.Name] {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, r.Name, adjust, r.When)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, adjust, r.When)
		}
	}
	return tw.Flush()
}
