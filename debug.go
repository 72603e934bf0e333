package fl2

import "log"

// enable debug printing
const debug = false

// Enable extra assertions.
const debugAsserts = debug || false

func printf(format string, a ...interface{}) {
	if debug {
		log.Printf(format, a...)
	}
}
