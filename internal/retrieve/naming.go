package retrieve

import (
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02-15-04-05"

// nameAccumulator resolves filename collisions within one satellite loop.
// Several captures can share a second-precision timestamp; the first keeps
// the plain base name and every following one gets an incrementing _dupN tag.
type nameAccumulator struct {
	used map[string]bool
}

func newNameAccumulator() *nameAccumulator {
	return &nameAccumulator{used: make(map[string]bool)}
}

// Resolve reserves a base name and returns the duplicate counter to use when
// composing role filenames: 0 means no suffix.
func (a *nameAccumulator) Resolve(base string) int {
	n := 0
	name := base
	for a.used[name] {
		n++
		name = fmt.Sprintf("%s_dup%d", base, n)
	}
	a.used[name] = true
	return n
}

// imageNames composes the on-disk names of one capture's files from the
// timestamp, satellite, site and the resolved duplicate counter.
type imageNames struct {
	base string
	dup  int
}

func newImageNames(ts time.Time, satname, sitename string, acc *nameAccumulator) imageNames {
	base := fmt.Sprintf("%s_%s_%s", ts.Format(timestampLayout), satname, sitename)
	return imageNames{base: base, dup: acc.Resolve(base)}
}

// Role returns the raster filename for one band role, e.g. "..._ms.tif" or
// "..._ms_dup1.tif".
func (n imageNames) Role(role string) string {
	if n.dup == 0 {
		return fmt.Sprintf("%s_%s.tif", n.base, role)
	}
	return fmt.Sprintf("%s_%s_dup%d.tif", n.base, role, n.dup)
}

// Meta returns the sidecar metadata filename of the capture.
func (n imageNames) Meta() string {
	if n.dup == 0 {
		return n.base + ".txt"
	}
	return fmt.Sprintf("%s_dup%d.txt", n.base, n.dup)
}
