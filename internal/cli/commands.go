package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tansive/mockinterview/pkg/api"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
	timeout    time.Duration
)

var okLabel = color.New(color.FgGreen)
var warnLabel = color.New(color.FgYellow)
var errorLabel = color.New(color.FgRed)

// newClient builds the API client for a loaded configuration. Tests replace it
// to serve requests in-process.
var newClient = func(cfg *Config) (*api.Client, error) {
	return api.NewClient(api.Identity{
		ServerURL:   cfg.ServerURL,
		Owner:       cfg.Owner,
		Token:       cfg.Token,
		TokenExpiry: cfg.GetTokenExpiry(),
	}, api.WithTimeout(timeout))
}

// NewRootCmd builds the interviewctl command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "interviewctl [command] [flags]",
		Short: "Practice interviews against an interview server",
		Long: `interviewctl drives mock interview sessions on an interview server.
Start an interview, answer one question at a time, and read the final report.

Examples:
  # Point the CLI at a server
  interviewctl config --server localhost:8680 --owner dana

  # Start a short behavioral interview and introduce yourself
  interviewctl start --kind behavioral --duration short
  interviewctl answer "Hi, I'm Dana. I lead a platform team."

  # Answer the current question, then finish
  interviewctl answer "Last year our deploy pipeline..."
  interviewctl answer --last "Thanks, that's all from me."

  # Read the session, including the report
  interviewctl show`,
		PersistentPreRunE: preRunHandlePersistents,
		SilenceErrors:     true,
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Request timeout")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newAnswerCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newAbandonCmd())
	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err != nil {
		if jsonOutput {
			_ = printJSON(rootCmd, map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents resolves the config path and loads it for every
// command that talks to the server.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		var err error
		configFile, err = GetDefaultConfigPath()
		if err != nil {
			return err
		}
	}

	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" || c.Name() == "version" {
			return nil
		}
	}

	if err := LoadConfig(configFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.New(`interviewctl config file not found. Configure it with "interviewctl config --server <host:port> --owner <id>" first`)
		}
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version and, when configured, the server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := map[string]string{
				"version":     getCLIVersion(),
				"config_file": configFile,
			}
			if err := LoadConfig(configFile); err == nil {
				if client, err := newClient(GetConfig()); err == nil {
					if v, err := client.Version(commandContext(cmd)); err == nil {
						out["server_version"] = v.ServerVersion
						out["api_version"] = v.ApiVersion
					} else {
						out["server_error"] = err.Error()
					}
				}
			}

			if jsonOutput {
				return printJSON(cmd, out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "interviewctl %s\n", out["version"])
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", out["config_file"])
			if v, ok := out["server_version"]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (API %s)\n", v, out["api_version"])
			}
			if e, ok := out["server_error"]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Server: %s\n", warnLabel.Sprint(e))
			}
			return nil
		},
	}
}

// printJSON prints data as indented JSON to the command's output
func printJSON(cmd *cobra.Command, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format JSON output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func getCLIVersion() string {
	return "v0.1.0"
}
