package gdrive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var names = []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		sel     Selection
		want    []string
		wantErr bool
	}{
		{name: "all", sel: Selection{All: true}, want: names},
		{name: "single file", sel: Selection{File: "c.jpg"}, want: []string{"c.jpg"}},
		{name: "unknown file", sel: Selection{File: "z.jpg"}, wantErr: true},
		{name: "batch from start", sel: Selection{Batch: 2}, want: []string{"a.jpg", "b.jpg"}},
		{name: "batch from index", sel: Selection{Batch: 2, Start: 2}, want: []string{"c.jpg", "d.jpg"}},
		{name: "batch clipped", sel: Selection{Batch: 10, Start: 3}, want: []string{"d.jpg", "e.jpg"}},
		{name: "start out of range", sel: Selection{Batch: 1, Start: 5}, wantErr: true},
		{name: "nothing", sel: Selection{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(names, tt.sel)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectRandomBatch(t *testing.T) {
	got, err := Select(names, Selection{Batch: 3, Random: true})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, n := range got {
		assert.Contains(t, names, n)
	}
	assert.ElementsMatch(t, got, uniq(got))
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
