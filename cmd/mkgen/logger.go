// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/mkgen/mkgen/internal/config"
)

// newLogger builds the logger every package receives. --verbose forces the
// debug level whatever the configuration says.
func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) (*log.Logger, error) {
	level, err := log.ParseLevel(string(cfg.Level))
	if err != nil {
		return nil, err
	}
	if verbose {
		level = log.DebugLevel
	}

	formatter := log.TextFormatter
	switch cfg.Format {
	case config.LogFormatJSON:
		formatter = log.JSONFormatter
	case config.LogFormatLogfmt:
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(w, log.Options{
		Level:     level,
		Formatter: formatter,
		Prefix:    "mkgen",
	}), nil
}
