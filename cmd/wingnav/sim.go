package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/BryanSouza91/WingNav/kalman"
	"github.com/BryanSouza91/WingNav/noise"
	"github.com/BryanSouza91/WingNav/sim"
)

func (a *app) doSim(cmd *cobra.Command, args []string) error {
	seed, err := cmd.Flags().GetUint64("seed")
	if err != nil {
		return err
	}
	steps, err := cmd.Flags().GetInt("steps")
	if err != nil {
		return err
	}
	skip, err := cmd.Flags().GetInt("skip")
	if err != nil {
		return err
	}
	csvPath, err := cmd.Flags().GetString("csv")
	if err != nil {
		return err
	}

	sc := sim.DefaultConfig()
	sc.Seed, sc.Steps, sc.Dt = seed, steps, a.cfg.Dt
	s := sim.New(sc, noise.NewModel(a.cfg))
	samples := s.Run()

	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			return err
		}
		if err := sim.WriteCSV(f, samples, true); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		a.log.Info("wrote epochs", "path", csvPath, "count", len(samples))
	}

	est, err := a.estimator()
	if err != nil {
		return err
	}
	est.SetState(s.Initial())
	rep, err := sim.Evaluate(kalman.NewLocked(est), samples, a.cfg.Control, skip)
	if err != nil {
		return err
	}
	return renderReport(cmd, fmt.Sprintf("simulated flight, seed %d", seed), rep)
}

func renderReport(cmd *cobra.Command, title string, rep sim.Report) error {
	tw, err := newTable(cmd, title)
	if err != nil {
		return err
	}
	tw.AppendHeader(table.Row{"RMS error", "x (east)", "y (north)", "z (up)"})
	row := func(name string, v [3]float64) table.Row {
		return table.Row{name, fmt.Sprintf("%.3f", v[0]), fmt.Sprintf("%.3f", v[1]), fmt.Sprintf("%.3f", v[2])}
	}
	tw.AppendRow(row("position, m", rep.PositionRMS))
	tw.AppendRow(row("velocity, m/s", rep.VelocityRMS))
	tw.AppendRow(row("raw sensors, m", rep.RawRMS))
	tw.AppendFooter(table.Row{"steps", rep.Steps, "failures", rep.Failures})
	tw.Render()
	return nil
}
