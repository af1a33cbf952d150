package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one column of a listing.
type column struct {
	header  string
	numeric bool // right-aligned, episode numbers
	group   bool // repeated values merge into one cell, a show with several rules
	wrap    int  // wrap cells wider than this, tag and keyword lists
}

func writeTable(w io.Writer, columns []column, rows [][]string) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.header

		align := text.AlignLeft
		if c.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AutoMerge:   c.group,
			WidthMax:    c.wrap,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	fmt.Fprintln(w, tw.Render())
}
