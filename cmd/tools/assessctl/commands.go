package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"credit-assessment/internal/analyzers/builtin"
	"credit-assessment/internal/common/config"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
	"credit-assessment/internal/pipeline"
	"credit-assessment/internal/report"
	"credit-assessment/internal/service"
	"credit-assessment/pkg/registry"
)

var errInvalidApplication = errors.New("application is invalid")

type rootOptions struct {
	configPath string
	policyPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "assessctl",
		Short:         "Run credit assessments locally with the rule-based analyzers",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (defaults to configs/config.yaml and CREDIT_* env)")
	root.PersistentFlags().StringVar(&opts.policyPath, "policy", "", "policy document overriding policy.path")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(newValidateCmd(opts), newAssessCmd(opts), newPolicyCmd(opts))
	return root
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFromFile(o.configPath)
	}
	return config.Load()
}

func (o *rootOptions) logger() logger.Logger {
	return logger.NewStructured(o.logLevel, "console")
}

// policy resolves the active policy: the --policy file, then policy.path,
// then the built-in table.
func (o *rootOptions) policy(cfg *config.Config) (*finance.Policy, error) {
	reg := registry.New()
	path := o.policyPath
	if path == "" && cfg != nil {
		path = cfg.Policy.Path
	}
	if path != "" {
		doc, err := reg.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return doc.Policy, nil
	}
	return reg.Active(), nil
}

func (o *rootOptions) service(cfg *config.Config, log logger.Logger) (*service.Service, error) {
	policy, err := o.policy(cfg)
	if err != nil {
		return nil, err
	}
	orch, err := pipeline.New(builtin.RuleSuite(policy, log), pipeline.Options{
		QuoteRate: cfg.Policy.QuoteRate,
		Synthesizer: report.New(report.Options{
			Policy:   policy,
			Currency: cfg.Policy.Currency,
		}, log),
	}, log)
	if err != nil {
		return nil, err
	}
	return service.New(orch, service.Options{
		MinCreditScore: cfg.Policy.MinCreditScore,
		MaxCreditScore: cfg.Policy.MaxCreditScore,
		View:           service.NewConfigView(cfg, report.DefaultModelVersion, policy.Version),
	}, log), nil
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <application.json|->",
		Short: "Check an application against the business rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			app, err := readApplication(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			log := opts.logger()
			svc, err := opts.service(cfg, log)
			if err != nil {
				return err
			}

			result := svc.Validate(app)
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Valid {
				return errInvalidApplication
			}
			return nil
		},
	}
}

func newAssessCmd(opts *rootOptions) *cobra.Command {
	var (
		stream   bool
		fast     bool
		noDetail bool
	)
	cmd := &cobra.Command{
		Use:   "assess <application.json|->",
		Short: "Run a full assessment and print the report envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			app, err := readApplication(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			log := opts.logger()
			svc, err := opts.service(cfg, log)
			if err != nil {
				return err
			}

			req := models.AssessmentRequest{Application: *app, FastMode: fast}
			if noDetail {
				detailed := false
				req.IncludeDetailedReport = &detailed
			}

			out := cmd.OutOrStdout()
			if stream {
				enc := json.NewEncoder(out)
				var last models.ProgressEvent
				for ev := range svc.AssessStreaming(cmd.Context(), req) {
					if err := enc.Encode(ev); err != nil {
						return err
					}
					last = ev
				}
				if last.Stage == service.StageFailed {
					return fmt.Errorf("assessment failed: %v", last.Data["error"])
				}
				return nil
			}

			resp, err := svc.Assess(cmd.Context(), req)
			if err != nil {
				var verr *service.ValidationError
				if errors.As(err, &verr) {
					_ = writeJSON(out, verr.Result)
				}
				return err
			}
			if err := writeJSON(out, resp); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("assessment failed: %s", resp.ErrorCode)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "print progress events as JSON lines")
	cmd.Flags().BoolVar(&fast, "fast", false, "request fast mode from the analyzers")
	cmd.Flags().BoolVar(&noDetail, "no-detail", false, "omit the detailed analysis section")
	return cmd
}

func newPolicyCmd(opts *rootOptions) *cobra.Command {
	policy := &cobra.Command{
		Use:   "policy",
		Short: "Inspect policy tables",
	}

	var file string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the active policy as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				opts.policyPath = file
			}
			var cfg *config.Config
			if opts.policyPath == "" {
				loaded, err := opts.loadConfig()
				if err != nil {
					return err
				}
				cfg = loaded
			}
			p, err := opts.policy(cfg)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(p)
		},
	}
	show.Flags().StringVar(&file, "file", "", "policy document to load instead of the active one")

	validate := &cobra.Command{
		Use:   "validate <policy.yaml|policy.json>...",
		Short: "Check policy documents and list the versions they register",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.New()
			out := cmd.OutOrStdout()
			for _, path := range args {
				doc, err := reg.LoadFile(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: version %s ok\n", path, doc.Policy.Version)
			}
			fmt.Fprintf(out, "active: %s\nversions: %s\n", reg.Active().Version, strings.Join(reg.Versions(), ", "))
			return nil
		},
	}

	policy.AddCommand(show, validate)
	return policy
}

func readApplication(stdin io.Reader, path string) (*models.LoanApplication, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	// Accept either a bare application or an assessment request body.
	var wrapped struct {
		Application *models.LoanApplication `json:"application"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Application != nil {
		return wrapped.Application, nil
	}
	var app models.LoanApplication
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("decode %s: %w", strings.TrimSpace(path), err)
	}
	return &app, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
