// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"strings"

	"github.com/ttacon/chalk"
)

// palette colours terminal output when enabled.
type palette struct {
	enabled bool
}

func (p palette) style(s chalk.Style, text string) string {
	if !p.enabled {
		return text
	}
	return s.Style(text)
}

func (p palette) pass(text string) string {
	return p.style(chalk.Green.NewStyle().WithTextStyle(chalk.Bold), text)
}

func (p palette) fail(text string) string {
	return p.style(chalk.Red.NewStyle().WithTextStyle(chalk.Bold), text)
}

func (p palette) info(text string) string {
	return p.style(chalk.Cyan.NewStyle().WithTextStyle(chalk.Bold), text)
}

// report highlights the section banners of a counter-example report.
func (p palette) report(text string) string {
	if !p.enabled {
		return text
	}
	banner := chalk.Yellow.NewStyle().WithTextStyle(chalk.Bold)
	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "= ") || strings.HasSuffix(strings.TrimRight(line, "\n"), ":") {
			lines[i] = banner.Style(strings.TrimRight(line, "\n")) + "\n"
		}
	}
	return strings.Join(lines, "")
}
