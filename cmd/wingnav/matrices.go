package main

import (
	"github.com/spf13/cobra"
)

func (a *app) doMatrices(cmd *cobra.Command, args []string) error {
	est, err := a.estimator()
	if err != nil {
		return err
	}

	f, q, p := est.StateTransition(), est.ProcessNoise(), est.Covariance()
	b, h, r := est.ControlInput(), est.Observation(), est.MeasurementNoise()

	sets := []struct {
		title string
		rows  [][]float32
	}{
		{"F state transition", make([][]float32, len(f))},
		{"B control input", make([][]float32, len(b))},
		{"H observation", make([][]float32, len(h))},
		{"Q process noise", make([][]float32, len(q))},
		{"R measurement noise", make([][]float32, len(r))},
		{"P covariance", make([][]float32, len(p))},
	}
	for i := range f {
		sets[0].rows[i] = f[i][:]
		sets[3].rows[i] = q[i][:]
		sets[5].rows[i] = p[i][:]
	}
	for i := range b {
		sets[1].rows[i] = b[i][:]
	}
	for i := range h {
		sets[2].rows[i] = h[i][:]
	}
	for i := range r {
		sets[4].rows[i] = r[i][:]
	}

	printf(cmd.OutOrStdout(), "dt=%g control=%s\n", a.cfg.Dt, a.cfg.Control)
	for _, s := range sets {
		if err := renderMatrix(cmd, s.title, s.rows); err != nil {
			return err
		}
	}
	return nil
}
