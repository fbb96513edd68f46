package drivemap

import "slices"

// sampleSize is how many entries a report lists as a sample.
const sampleSize = 5

// Report summarizes a mapping compared with the files on disk.
type Report struct {
	Total    int      // real file entries
	Sample   []string // first entries, sorted
	Examples []string // placeholder keys that were ignored
	Missing  []string // mapped, but not present on disk
	Unmapped []string // present on disk, but not mapped
	Invalid  []string // mapped to an empty or malformed id
}

// OK reports whether every file on disk is mapped to a well-formed id.
func (r Report) OK() bool {
	return r.Total > 0 && len(r.Unmapped) == 0 && len(r.Invalid) == 0
}

// Check compares m with the image file names found on disk.
// A nil present slice skips the disk comparison.
func Check(m *Mapping, present []string) Report {
	files := m.Files()
	r := Report{
		Total:    len(files),
		Examples: m.Examples(),
	}
	r.Sample = files[:min(sampleSize, len(files))]

	for _, name := range files {
		if _, ok := ExtractFileID(m.files[name]); !ok {
			r.Invalid = append(r.Invalid, name)
		}
	}

	if present == nil {
		return r
	}

	onDisk := make(map[string]bool, len(present))
	for _, name := range present {
		onDisk[name] = true
		if _, ok := m.files[name]; !ok {
			r.Unmapped = append(r.Unmapped, name)
		}
	}
	for _, name := range files {
		if !onDisk[name] {
			r.Missing = append(r.Missing, name)
		}
	}
	slices.Sort(r.Unmapped)
	return r
}
