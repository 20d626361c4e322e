package cliconfig

import (
	"io"

	"github.com/bft-labs/tpmsrelay/pkg/log"
)

// NewLogger builds the process logger: zerolog console output at the
// configured level.
func NewLogger(w io.Writer, level string) (*log.ZerologAdapter, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewConsoleAdapter(w, lvl), nil
}
