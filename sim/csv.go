package sim

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var epochColumns = []string{
	"t", "ax", "ay", "az", "east", "north", "alt", "pressure", "qw", "qx", "qy", "qz",
}

var truthColumns = []string{
	"true_x", "true_y", "true_z", "true_vx", "true_vy", "true_vz",
}

// WriteCSV writes samples with a heading line. Truth columns are included
// when withTruth is set.
func WriteCSV(w io.Writer, samples []Sample, withTruth bool) error {
	cw := csv.NewWriter(w)
	heading := append([]string{}, epochColumns...)
	if withTruth {
		heading = append(heading, truthColumns...)
	}
	if err := cw.Write(heading); err != nil {
		return err
	}
	row := make([]string, 0, len(heading))
	for _, s := range samples {
		e := s.Epoch
		row = row[:0]
		for _, v := range []float32{
			s.T, e.Control[0], e.Control[1], e.Control[2],
			e.Measurement[0], e.Measurement[1], e.Measurement[2], e.Pressure,
			e.Orientation.W, e.Orientation.X, e.Orientation.Y, e.Orientation.Z,
		} {
			row = append(row, formatFloat(v))
		}
		if withTruth {
			for _, v := range s.Truth.Position {
				row = append(row, formatFloat(v))
			}
			for _, v := range s.Truth.Velocity {
				row = append(row, formatFloat(v))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// ReadCSV reads samples written by WriteCSV. The heading line is required;
// hasTruth reports whether the truth columns were present.
func ReadCSV(r io.Reader) (samples []Sample, hasTruth bool, err error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	heading, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, false, errors.New("sim: empty csv")
		}
		return nil, false, err
	}
	switch len(heading) {
	case len(epochColumns):
	case len(epochColumns) + len(truthColumns):
		hasTruth = true
	default:
		return nil, false, fmt.Errorf("sim: csv has %d columns, want %d or %d",
			len(heading), len(epochColumns), len(epochColumns)+len(truthColumns))
	}
	if strings.TrimSpace(heading[0]) != epochColumns[0] {
		return nil, false, fmt.Errorf("sim: csv heading starts with %q, want %q", heading[0], epochColumns[0])
	}

	line := 1
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, false, err
		}
		v := make([]float32, len(fields))
		for i, f := range fields {
			x, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
			if err != nil {
				return nil, false, fmt.Errorf("sim: line %d column %s: %w", line, heading[i], err)
			}
			v[i] = float32(x)
		}
		var s Sample
		s.T = v[0]
		copy(s.Epoch.Control[:], v[1:4])
		copy(s.Epoch.Measurement[:], v[4:7])
		s.Epoch.Pressure = v[7]
		s.Epoch.Orientation.W, s.Epoch.Orientation.X = v[8], v[9]
		s.Epoch.Orientation.Y, s.Epoch.Orientation.Z = v[10], v[11]
		if hasTruth {
			copy(s.Truth.Position[:], v[12:15])
			copy(s.Truth.Velocity[:], v[15:18])
		}
		samples = append(samples, s)
	}
	return samples, hasTruth, nil
}
