package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BryanSouza91/WingNav/config"
	"github.com/BryanSouza91/WingNav/kalman"
	"github.com/BryanSouza91/WingNav/logging"
)

// app is the state shared by the subcommands once the persistent flags are
// parsed.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	closeLog func() error
}

// NewCmd builds the wingnav command tree.
func NewCmd() *cobra.Command {
	cobra.EnableCommandSorting = false
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "wingnav [command] [flags] [args]",
		Short:         "wingnav fuses accelerometer, GNSS and barometer data into a position estimate",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "`<path>` to a YAML filter configuration")
	rootCmd.PersistentFlags().String("control", "", "control convention override, `subtract|add`")
	rootCmd.PersistentFlags().String("log-level", "WARN", "DEBUG, INFO, WARN, ERROR or NONE")
	rootCmd.PersistentFlags().String("log-file", "", "`<path>` of the log file, stderr when empty")
	rootCmd.PersistentFlags().String("style", "default", "table style: default, bold, double, light, round")

	matricesCmd := &cobra.Command{
		Use:   "matrices [flags]",
		Short: "Print the initialized model matrices",
		RunE:  a.doMatrices,
	}

	simCmd := &cobra.Command{
		Use:   "sim [flags]",
		Short: "Run the filter over a simulated flight and report its errors",
		RunE:  a.doSim,
	}
	simCmd.Flags().Uint64("seed", 1, "random seed")
	simCmd.Flags().Int("steps", 600, "number of epochs")
	simCmd.Flags().Int("skip", 50, "epochs excluded from the error statistics")
	simCmd.Flags().String("csv", "", "`<path>` to write the simulated epochs to")

	replayCmd := &cobra.Command{
		Use:   "replay [flags] <file.csv>",
		Short: "Feed logged epochs through the filter",
		RunE:  a.doReplay,
	}
	replayCmd.Args = cobra.ExactArgs(1)
	replayCmd.Flags().Int("every", 10, "print every Nth estimate")
	replayCmd.Flags().Int("skip", 0, "epochs excluded from the error statistics")

	rootCmd.AddCommand(
		matricesCmd,
		simCmd,
		replayCmd,
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	file, err := cmd.Flags().GetString("log-file")
	if err != nil {
		return err
	}
	a.log, a.closeLog, err = logging.New(logging.Config{Level: level, Filename: file, MaxSize: 10, MaxBackups: 3})
	if err != nil {
		return err
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	a.cfg = config.Default()
	if path != "" {
		if a.cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	control, err := cmd.Flags().GetString("control")
	if err != nil {
		return err
	}
	if control != "" {
		a.cfg.Control = config.ControlConvention(control)
		if err := a.cfg.Validate(); err != nil {
			return err
		}
	}
	a.log.Debug("configured", "dt", a.cfg.Dt, "control", a.cfg.Control, "config", path)
	return nil
}

func (a *app) estimator() (*kalman.Estimator, error) {
	est, err := kalman.New(a.cfg, kalman.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	if err := est.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return est, nil
}
