package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "regasm",
	Short: "Assemble and inspect register machine bytecode",
	Long: `regasm assembles textual listings into register machine bytecode and
disassembles serialized programs.

https://github.com/risor-io/regasm`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		processGlobalFlags()
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.regasm.yaml)")
	pf.Bool("no-color", false, "Disable colored output")
	pf.String("log-level", "warn", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(asmCmd, disCmd, versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fatal(err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".regasm")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("regasm")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fatal(fmt.Errorf("reading config: %w", err))
		}
	}
}

// newLogger returns a console logger on stderr at the configured level.
func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("log-level")))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", viper.GetString("log-level"))
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: viper.GetBool("no-color")}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errReported) {
			os.Exit(1)
		}
		fatal(err)
	}
}
