package oplog

import "log"

// debugLevel gates the package's debug-emit output. OpLog has no
// config file or CLI to wire a verbosity flag through (spec.md §6: no
// environment variables), so it follows the same leveled-constant
// convention as the rest of this domain's corpus: bump this during
// development, never in committed code.
const debugLevel = 0

func debugf(format string, args ...interface{}) {
	if debugLevel > 0 {
		log.Printf("oplog: "+format, args...)
	}
}
