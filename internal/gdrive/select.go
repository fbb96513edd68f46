package gdrive

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Selection chooses which image files an upload run covers. Exactly one of
// All, Batch or File should be set.
type Selection struct {
	All    bool
	Batch  int    // number of files
	Random bool   // pick the batch at random instead of from Start
	Start  int    // first index of a sequential batch
	File   string // single file name
}

// Select applies sel to the sorted file names.
func Select(names []string, sel Selection) ([]string, error) {
	switch {
	case sel.File != "":
		if !slices.Contains(names, sel.File) {
			return nil, fmt.Errorf("file %q is not in the image directory", sel.File)
		}
		return []string{sel.File}, nil

	case sel.All:
		return slices.Clone(names), nil

	case sel.Batch > 0:
		n := min(sel.Batch, len(names))
		if sel.Random {
			shuffled := slices.Clone(names)
			rand.Shuffle(len(shuffled), func(i, j int) { //nolint:gosec // sampling, not security
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			return shuffled[:n], nil
		}
		if sel.Start < 0 || sel.Start >= len(names) {
			return nil, fmt.Errorf("start index %d out of range (0-%d)", sel.Start, len(names)-1)
		}
		end := min(sel.Start+sel.Batch, len(names))
		return slices.Clone(names[sel.Start:end]), nil
	}
	return nil, fmt.Errorf("nothing selected: use --all, --batch or --file")
}
