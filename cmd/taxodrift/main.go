package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crimson-sun/taxodrift/internal/config"
	"github.com/crimson-sun/taxodrift/internal/logging"
	"github.com/crimson-sun/taxodrift/internal/model"
)

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitDataError = 2 // unreadable registry or dimension mismatch
)

func main() {
	v := config.New()
	root := newRootCmd(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var loadErr *model.DataLoadError
	var dimErr *model.DimensionMismatchError
	if errors.As(err, &loadErr) || errors.As(err, &dimErr) {
		return exitDataError
	}
	return exitError
}

// app carries state shared between the root and its subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	a := &app{v: v}
	d := config.Default()

	root := &cobra.Command{
		Use:   "taxodrift",
		Short: "Measure how far a prompt-pattern corpus has drifted from its category taxonomy",
		Long: `taxodrift scores every pattern and example embedding in a corpus against
the category centroids of a taxonomy, annotates the corpus with the best
matches, and reports recategorization candidates, low-confidence matches,
multi-category patterns and pattern/example disagreements.

Configuration comes from flags, TAXODRIFT_* environment variables, a .env
file in the working directory, and an optional --config file, in that
order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is not an error.
			_ = godotenv.Load()

			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logging.Init(cfg.LogFormat, level)
			a.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	pf.String("log-format", d.LogFormat, "log format: text or json")
	pf.String("history", d.History.Path, "run history database (sqlite); empty disables")
	bindFlags(v, root, map[string]string{
		"log_level":    "log-level",
		"log_format":   "log-format",
		"history.path": "history",
	})

	root.AddCommand(newAnalyzeCmd(a), newHistoryCmd(a))
	return root
}

// bindFlags binds viper keys to flags declared on cmd, local or persistent.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			panic(err)
		}
	}
}
