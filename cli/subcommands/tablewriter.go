// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package subcommands

import (
	"fmt"
	"strings"
)

type TableWriter struct {
	headers []string
	rows    [][]string
}

func NewTableWriter(headers []string) *TableWriter {
	return &TableWriter{headers: headers}
}

func (t *TableWriter) AddRow(columns ...any) {
	row := make([]string, len(columns))
	for i, col := range columns {
		row[i] = fmt.Sprintf("%v", col)
	}
	t.rows = append(t.rows, row)
}

func (t *TableWriter) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		for i := range t.headers {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			if i == len(t.headers)-1 {
				fmt.Println(cell)
				return
			}
			fmt.Print(cell, strings.Repeat(" ", widths[i]-len(cell)+2))
		}
	}

	printRow(t.headers)
	for _, row := range t.rows {
		printRow(row)
	}
}
