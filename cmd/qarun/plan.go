package main

import (
	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/logging"
	"github.com/ludo-technologies/qarun/service"
	"github.com/spf13/cobra"
)

type planCmdOptions struct {
	planOptions
	format string
}

func planCmd() *cobra.Command {
	o := &planCmdOptions{}
	cmd := &cobra.Command{
		Use:   "plan [path]",
		Short: "Show the execution plan without running any tool",
		Long: `Show how the configured tools would be grouped and ordered.

Tools handled by a build dimension tool are dropped, exactly as in run.

Examples:
  qarun plan
  qarun plan --mode fast
  qarun plan --plan ci-plan.yaml --format yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, o, args)
		},
	}

	addPlanFlags(cmd, &o.planOptions)
	cmd.Flags().StringVarP(&o.format, "format", "f", "text",
		"Output format: text, json, yaml")

	return cmd
}

func runPlan(cmd *cobra.Command, o *planCmdOptions, args []string) error {
	root, cfg, err := loadConfig(&o.planOptions, args)
	if err != nil {
		return err
	}

	p, err := openProject(&o.planOptions, root, cfg, &service.NoOpProgressManager{})
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(p.logger) }()

	groups, err := p.wiring.UseCase.Plan(cmd.Context(), p.plan)
	if err != nil {
		return setupError("%v", err)
	}

	if err := service.NewOutputFormatter().WritePlan(groups, domain.OutputFormat(o.format), cmd.OutOrStdout()); err != nil {
		return setupError("%v", err)
	}
	return nil
}
