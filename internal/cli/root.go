package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/logger"
)

const envPrefix = "LIVEQUIZ"

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	port       string
	logLevel   string
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "live-quiz",
		Short:         "Live multiplayer quiz: one host, many players, state synced over WebSockets",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&opts.port, "port", envPort, "port to listen on, overrides server.port (env: LIVEQUIZ_PORT, PORT)")
	fs.StringVar(&opts.configPath, "config", envConfig, "path to YAML config (env: LIVEQUIZ_CONFIG, CONFIG_PATH)")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level, overrides log.level (env: LIVEQUIZ_LOG_LEVEL)")
	bindEnv(fs)

	cmd.AddCommand(NewHostCmd(opts))
	cmd.AddCommand(NewJoinCmd(opts))
	cmd.AddCommand(NewOpenCmd(opts))
	cmd.AddCommand(NewMigrateCmd(opts))
	cmd.AddCommand(NewSeedCmd(opts))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

// bindEnv lets LIVEQUIZ_<FLAG> set any flag that was not given on the command line.
func bindEnv(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// loadConfig reads the config file, applies flag and environment overrides and sets up logging.
func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	if opts.port != "" {
		cfg.Server.Port = opts.port
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty)
	return cfg, nil
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		name = "unknown"
	}
	return fmt.Sprintf("%s:%d", name, os.Getpid())
}
