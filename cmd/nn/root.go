package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/internal/config"
)

// app holds the state shared by subcommands once flags and config are
// resolved.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCmd creates the root nn command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "nn",
		Short:         "nn - exact nearest neighbour search over stored vectors",
		Long:          "nn keeps identified float vectors in a file, SQLite or Badger index and answers top-k nearest neighbour queries under cosine, euclidean or manhattan distance.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "path to config file")
	flags.StringP("metric", "m", "", "distance metric for new indexes (cosine, euclidean, manhattan)")
	flags.StringP("index", "i", "", "index location: file path, sqlite database or badger directory")
	flags.StringP("backend", "b", "", "storage backend (file, sqlite, badger)")
	flags.String("name", "", "index name inside a sqlite or badger store")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")

	root.AddCommand(
		newNewCmd(a),
		newIngestCmd(a),
		newAddCmd(a),
		newQueryCmd(a),
		newInfoCmd(a),
		newConvertCmd(a),
	)
	return root
}

// init resolves configuration with the usual precedence
// (flag > env > file > defaults) and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	v := a.v
	cfgFile, _ := cmd.Flags().GetString("config")
	if err := config.Read(v, cfgFile); err != nil {
		return err
	}

	persistent := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"metric":    "metric",
		"index":     "index",
		"backend":   "backend",
		"name":      "name",
		"log_level": "log-level",
	} {
		if err := bindFlag(v, key, persistent.Lookup(flag)); err != nil {
			return err
		}
	}
	if err := bindFlag(v, "k", cmd.Flags().Lookup("k")); err != nil {
		return err
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	out := cmd.ErrOrStderr()
	_, isFile := out.(*os.File)
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: !isFile}).
		Level(cfg.Level()).
		With().Timestamp().Logger()
	return nil
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) error {
	if flag == nil {
		return nil
	}
	if err := v.BindPFlag(key, flag); err != nil {
		return errs.Wrap(err, errs.CodeConfigInvalid, "binding "+flag.Name+" flag", errs.Field("key", key))
	}
	return nil
}
