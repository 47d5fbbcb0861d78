package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// Config holds the server connection, the caller's identity and the
// interview the CLI is currently driving.
type Config struct {
	Version   string `yaml:"version"`
	ServerURL string `yaml:"server_url"`
	// Owner is sent in the owner header when no token is configured.
	Owner       string `yaml:"owner,omitempty"`
	Token       string `yaml:"token,omitempty"`
	TokenExpiry string `yaml:"token_expiry,omitempty"`
	// CurrentInterview and CurrentQuestion let "answer" continue without flags.
	CurrentInterview string `yaml:"current_interview,omitempty"`
	CurrentQuestion  *int   `yaml:"current_question,omitempty"`
}

var config *Config

// GetDefaultConfigPath returns the default path for the config file,
// e.g. ~/.config/interviewctl/config.yaml on Linux.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "interviewctl", DefaultConfigFile), nil
}

// LoadConfig loads the configuration from the specified file.
// If no file is specified, it uses the default config location.
func LoadConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	yamlStr, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}
	if err := c.ValidateConfig(); err != nil {
		return err
	}
	c.ServerURL = MorphServer(c.ServerURL)

	config = &c
	return nil
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	return config
}

// WriteConfig writes the configuration to file, creating its directory.
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), 0o700)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	// The file may hold a bearer token.
	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// ValidateConfig checks for required fields and proper formatting.
func (cfg *Config) ValidateConfig() error {
	if cfg.ServerURL == "" {
		return errors.New("server:port is required")
	}
	if !strings.Contains(strings.TrimPrefix(strings.TrimPrefix(cfg.ServerURL, "https://"), "http://"), ":") {
		return errors.New("server:port must include port number")
	}
	if cfg.Owner == "" && cfg.Token == "" {
		return errors.New("an owner or a token is required")
	}
	if cfg.TokenExpiry != "" {
		if _, err := time.Parse(time.RFC3339, cfg.TokenExpiry); err != nil {
			return fmt.Errorf("token_expiry must be an RFC3339 time: %w", err)
		}
	}
	return nil
}

// MorphServer removes trailing slashes and adds http:// when no scheme is given.
func MorphServer(server string) string {
	if server == "" {
		return server
	}
	server = strings.TrimRight(server, "/")
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}
	return server
}

// GetTokenExpiry returns the parsed token expiry, or the zero time.
func (cfg *Config) GetTokenExpiry() time.Time {
	if cfg.TokenExpiry == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, cfg.TokenExpiry)
	if err != nil {
		return time.Time{}
	}
	return t
}

// setCurrent records the interview and question the next "answer" continues from.
func (cfg *Config) setCurrent(id string, question *int) error {
	cfg.CurrentInterview = id
	cfg.CurrentQuestion = question
	return cfg.WriteConfig(configFile)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long: `Write the server connection and identity used by every other command.

Examples:
  # Use a development server that trusts the owner header
  interviewctl config --server localhost:8680 --owner dana

  # Use a bearer token issued by the server operator
  interviewctl config --server https://interviews.example.com:443 --token eyJ... --token-expiry 2026-12-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			owner, _ := cmd.Flags().GetString("owner")
			token, _ := cmd.Flags().GetString("token")
			expiry, _ := cmd.Flags().GetString("token-expiry")
			if server == "" {
				return cmd.Help()
			}
			cfg := &Config{
				Version:     "0.1.0",
				ServerURL:   MorphServer(server),
				Owner:       owner,
				Token:       token,
				TokenExpiry: expiry,
			}
			if err := cfg.ValidateConfig(); err != nil {
				return err
			}
			if err := cfg.WriteConfig(configFile); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			if jsonOutput {
				return printJSON(cmd, map[string]string{
					"server":      cfg.ServerURL,
					"config_file": configFile,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server configured: %s\n", cfg.ServerURL)
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", configFile)
			return nil
		},
	}
	cmd.Flags().String("server", "", "Server URL and port (e.g., localhost:8680)")
	cmd.Flags().String("owner", "", "Owner id sent when no token is configured")
	cmd.Flags().String("token", "", "Bearer token")
	cmd.Flags().String("token-expiry", "", "Token expiry as an RFC3339 time")
	return cmd
}
