package cli

import (
	"os"

	"github.com/spf13/cobra"
	"lingo-quiz-service/internal/config"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	port       string
}

// load reads the config file; a --port flag wins over file and environment.
func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.port != "" {
		cfg.Server.Port = o.port
	}
	return cfg, nil
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "lingo-quiz",
		Short:        "French to Portuguese vocabulary quizzes with progress tracking",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "path to a YAML or TOML config file")
	cmd.PersistentFlags().StringVar(&opts.port, "port", "", "port to listen on (overrides config and PORT)")

	cmd.AddCommand(
		NewStartCmd(opts),
		NewMigrateCmd(opts),
		NewImportCmd(opts),
		NewUserAddCmd(opts),
	)
	return cmd
}
