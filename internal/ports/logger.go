package ports

import "github.com/bft-labs/tpmsrelay/pkg/log"

// Logger is the structured logger used by the core.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported so core packages import only ports.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Hex      = log.Hex
	Hex32    = log.Hex32
	Any      = log.Any
)
