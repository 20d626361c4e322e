package relay

import "github.com/bft-labs/tpmsrelay/pkg/log"

// Version information for the relay module.
const Version = "1.0.0"

// ModuleVersions returns the version of every sub-module the relay is
// built from.
func ModuleVersions() map[string]string {
	return map[string]string{
		"relay": Version,
		"log":   log.Version,
	}
}
