package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lixenwraith/quicksound/config"
	"github.com/lixenwraith/quicksound/log"
)

// cli carries state shared by every subcommand
type cli struct {
	cfgFile string
	v       *viper.Viper
	cfg     config.Config
	logSink io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "sound-demo",
		Short: "Play sound effects and music through a multi-channel clip pool",
		Long: `sound-demo is a terminal front end for the quicksound clip pool.
Without a subcommand it starts the interactive demo.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: c.teardown,
		RunE:              c.runDemo,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (YAML)")
	flags.String("asset-dir", "", "directory asset locators resolve against")
	flags.Bool("headless", false, "discard audio output")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-file", "", "append logs to this file")

	_ = c.v.BindPFlag("audio.asset_dir", flags.Lookup("asset-dir"))
	_ = c.v.BindPFlag("audio.headless", flags.Lookup("headless"))
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("log.file", flags.Lookup("log-file"))

	root.AddCommand(
		newRunCmd(c),
		newSpamCmd(c),
		newConfigCmd(c),
	)
	return root
}

// setup resolves the effective config and installs the log sink
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if err := config.ReadFile(c.v, c.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Decode(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if cfg.Log.File == "" {
		return nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	c.logSink = f
	log.Setup(f, level)
	log.Info(log.CatConfig, "Logging started", "command", cmd.Name(), "level", level.String())
	return nil
}

func (c *cli) teardown(cmd *cobra.Command, args []string) {
	if c.logSink == nil {
		return
	}
	log.SetLogger(nil)
	_ = c.logSink.Close()
	c.logSink = nil
}

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the interactive demo",
		Long: `Keys: c coin, s spam coin, p play music, r repeat, x stop,
space pause/resume, f forward 10s, F forward 5min, q quit.`,
		RunE: c.runDemo,
	}
}

func newConfigCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.cfg.WriteYAML(cmd.OutOrStdout())
		},
	}
}
