package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/BryanSouza91/WingNav/sim"
)

func (a *app) doReplay(cmd *cobra.Command, args []string) error {
	every, err := cmd.Flags().GetInt("every")
	if err != nil {
		return err
	}
	if every < 1 {
		every = 1
	}
	skip, err := cmd.Flags().GetInt("skip")
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	samples, hasTruth, err := sim.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("replay %s: %w", args[0], err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("replay %s: no epochs", args[0])
	}

	est, err := a.estimator()
	if err != nil {
		return err
	}
	if hasTruth && len(samples) > 1 {
		// start from the truth at the end of the first epoch
		first := samples[0].Truth
		est.SetState([6]float32{
			first.Position[0], first.Position[1], first.Position[2],
			first.Velocity[0], first.Velocity[1], first.Velocity[2],
		})
		rep, err := sim.Evaluate(est, samples[1:], a.cfg.Control, skip)
		if err != nil {
			return err
		}
		return renderReport(cmd, "replay "+args[0], rep)
	}

	tw, err := newTable(cmd, "replay "+args[0])
	if err != nil {
		return err
	}
	tw.AppendHeader(table.Row{"t", "x", "y", "z", "vx", "vy", "vz"})
	sign := a.cfg.Control.Sign()
	failures := 0
	for i, s := range samples {
		est.SetOrientation(s.Epoch.Orientation)
		u := s.Epoch.Control
		for k := range u {
			u[k] *= sign
		}
		x, err := est.Step(u, s.Epoch.Measurement, s.Epoch.Pressure)
		if err != nil {
			failures++
			continue
		}
		if i%every == 0 || i == len(samples)-1 {
			row := table.Row{fmt.Sprintf("%.2f", s.T)}
			for _, v := range x {
				row = append(row, fmt.Sprintf("%.3f", v))
			}
			tw.AppendRow(row)
		}
	}
	tw.AppendFooter(table.Row{"epochs", len(samples), "failures", failures})
	tw.Render()
	return nil
}
