// Command approvalctl scores applicants offline or against a running
// approval service, inspects model files and rule tables, and tails the
// prediction event stream.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/approval/model"
	"github.com/bibbank/approval/pkg/observability"
	"github.com/bibbank/approval/pkg/profile/card"
	"github.com/bibbank/approval/pkg/profile/loan"
	"github.com/bibbank/approval/pkg/serve"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	service  string
	logLevel string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ee *exitErr
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "approvalctl",
		Short:         "Operate the loan and credit card approval services",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.service, "service", "loan", "Service profile: loan or card")
	pf.StringVar(&g.logLevel, "log-level", "warn", "Log level written to stderr")

	root.AddCommand(
		newScoreCmd(&g),
		newModelsCmd(&g),
		newRulesCmd(&g),
		newWatchCmd(&g),
		newCertsCmd(),
	)
	return root
}

func (g *globalFlags) logger(cmd *cobra.Command) *slog.Logger {
	return observability.InitLogger(observability.LogConfig{
		Level:  g.logLevel,
		Format: "text",
		Output: cmd.ErrOrStderr(),
	})
}

// target is one of the services the CLI knows how to build.
type target struct {
	short      string
	profile    approval.Profile
	pageFile   string
	candidates func(serviceDir, workDir string) model.Candidates
	sample     func() map[string]any
}

func lookupTarget(name string) (target, error) {
	switch strings.TrimSuffix(strings.ToLower(name), "-service") {
	case "loan":
		return target{"loan", loan.Profile(), loan.PageFile, loan.Candidates, loan.Sample}, nil
	case "card":
		return target{"card", card.Profile(), card.PageFile, card.Candidates, card.Sample}, nil
	default:
		return target{}, codeError(2, "unknown service %q (want loan or card)", name)
	}
}

// offlineFlags select the files an in-process predictor is built from.
type offlineFlags struct {
	modelsDir    string
	rulesFile    string
	requireModel bool
}

func (f *offlineFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.modelsDir, "models-dir", ".", "Directory searched for model and scaler files")
	fs.StringVar(&f.rulesFile, "rules", "", "YAML rule table replacing the built-in one")
	fs.BoolVar(&f.requireModel, "require-model", false, "Fail instead of falling back to rules when no model is found")
}

func (f *offlineFlags) build(t target, logger *slog.Logger) (*serve.App, error) {
	policy := model.DegradeToRules
	if f.requireModel {
		policy = model.FailOnMissingModel
	}
	app, err := serve.Build(serve.Config{
		OnMissingModel: policy,
		RulesFile:      f.rulesFile,
	}, serve.Service{
		Profile:    t.profile,
		PageFile:   t.pageFile,
		Candidates: t.candidates(f.modelsDir, f.modelsDir),
	}, serve.Deps{Logger: logger})
	if err != nil {
		return nil, codeError(3, "%s", err)
	}
	return app, nil
}
