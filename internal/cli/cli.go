package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/gridflow/internal/app"
	"github.com/spf13/cobra"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const longHelp = `gridflow - a dynamic workflow interpreter.

Runs a workflow graph of service calls, conditionals, loops and
sub-workflows defined in HCL or YAML. WORKFLOW_PATH is a single .hcl,
.yaml or .yml file, or a directory containing them.`

// Parse processes command-line arguments. It returns a validated
// app.Config, true when the program should exit cleanly (help or usage was
// printed), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		raw    app.Config
		inputs []string
		ran    bool
	)
	cmd := &cobra.Command{
		Use:           "gridflow [flags] [WORKFLOW_PATH]",
		Short:         "Run a dynamic dataflow workflow",
		Long:          longHelp,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ran = true
			if raw.WorkflowPath == "" && len(args) > 0 {
				raw.WorkflowPath = args[0]
			}
			return nil
		},
	}
	cmd.SetOut(output)
	cmd.SetErr(output)
	if args == nil {
		// cobra falls back to os.Args on nil.
		args = []string{}
	}
	cmd.SetArgs(args)

	flags := cmd.Flags()
	flags.StringVarP(&raw.WorkflowPath, "file", "f", "", "Path to the workflow file or directory.")
	flags.StringVarP(&raw.Workflow, "workflow", "w", "", "Name of the workflow to run. Defaults to the only one, or \"main\".")
	flags.StringArrayVarP(&inputs, "input", "i", nil, "Bind an input node, as name=value. Repeatable.")
	flags.BoolVar(&raw.Interactive, "interactive", false, "Pause instead of stopping when work runs out or retries are exhausted, and honor breakpoints.")
	flags.IntVar(&raw.MaxRetry, "max-retry", 0, "Retries per node. 0 uses the default, a negative value disables retries.")
	flags.DurationVar(&raw.PollInterval, "poll-interval", 0, "Idle re-evaluation interval of the interpreter loop. 0 uses the default.")
	flags.StringVar(&raw.LogFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&raw.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&raw.ControlAddr, "control-addr", "", "Address of the HTTP control server, e.g. ':8080'. Empty disables it.")
	flags.BoolVar(&raw.Metrics, "metrics", false, "Serve Prometheus metrics on the control server.")
	flags.StringVar(&raw.NATSURL, "nats-url", "", "Publish run events to this NATS server.")
	flags.StringVar(&raw.NATSSubject, "nats-subject", "", "NATS subject prefix for run events.")
	flags.StringVar(&raw.RedisAddr, "redis-addr", "", "Publish run events to this Redis server.")
	flags.StringVar(&raw.RedisChannel, "redis-channel", "", "Redis channel for run events.")
	flags.StringVar(&raw.SocketIOURL, "socketio-url", "", "Emit run events to this socket.io server.")
	flags.StringVar(&raw.AWSRegion, "aws-region", "", "AWS region for resource and S3 input nodes.")
	flags.StringVar(&raw.AWSEndpoint, "aws-endpoint", "", "Custom EC2 endpoint.")
	flags.StringVar(&raw.S3Endpoint, "s3-endpoint", "", "Custom S3 endpoint, e.g. a MinIO server.")

	if err := cmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if !ran {
		// --help was handled by cobra.
		return nil, true, nil
	}
	slog.Debug("Arguments parsed successfully.")

	if raw.WorkflowPath == "" {
		slog.Debug("No workflow path provided, printing usage and exiting.")
		_ = cmd.Usage()
		return nil, true, nil
	}

	bindings, err := parseInputs(inputs)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	raw.Inputs = bindings
	raw.LogFormat = strings.ToLower(raw.LogFormat)
	raw.LogLevel = strings.ToLower(raw.LogLevel)

	cfg, err := app.NewConfig(raw)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "workflow_path", cfg.WorkflowPath)
	return cfg, false, nil
}

func parseInputs(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --input %q: want name=value", kv)
		}
		out[name] = value
	}
	return out, nil
}
