// Package auto starts the timeit sampler from a blank import:
//
//	import _ "github.com/wesleyorama2/timeit/pkg/sampler/auto"
//
// Samples are flushed as they are taken, but the main end and process end
// markers are only written if the program calls sampler.Stop before it
// exits.
package auto

import (
	"fmt"
	"os"

	"github.com/wesleyorama2/timeit/pkg/sampler"
)

func init() {
	if err := sampler.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "timeit sampler: %v\n", err)
		return
	}
	sampler.MarkMainStart()
}
