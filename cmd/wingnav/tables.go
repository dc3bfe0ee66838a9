package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTable(cmd *cobra.Command, title string) (table.Writer, error) {
	name, err := cmd.Flags().GetString("style")
	if err != nil {
		return nil, err
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetTitle(title)

	style := table.StyleDefault
	switch name {
	case "bold":
		style = table.StyleBold
	case "double":
		style = table.StyleDouble
	case "light":
		style = table.StyleLight
	case "round":
		style = table.StyleRounded
	}
	tw.SetStyle(style)
	return tw, nil
}

func renderMatrix(cmd *cobra.Command, title string, rows [][]float32) error {
	tw, err := newTable(cmd, title)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		header := table.Row{""}
		for c := range rows[0] {
			header = append(header, fmt.Sprintf("c%d", c))
		}
		tw.AppendHeader(header)
	}
	for r, row := range rows {
		tr := table.Row{fmt.Sprintf("r%d", r)}
		for _, v := range row {
			tr = append(tr, fmt.Sprintf("%.6g", v))
		}
		tw.AppendRow(tr)
	}
	tw.Render()
	return nil
}

func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
