// internal/nodeid/label.go
package nodeid

import (
	"strconv"
	"strings"

	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

// Label returns a label for a new node built from base that is unique among
// nodes.
//
// The suffix starts at the number of existing labels containing base plus
// one. Counting is by substring, so "Table" counts "TableSink" too. If the
// candidate is still taken (possible after deletions) the suffix keeps
// growing until it is free.
func Label(nodes []pipeline.Node, base string) string {
	taken := make(map[string]bool, len(nodes))
	count := 0
	for _, n := range nodes {
		label := n.Label()
		taken[label] = true
		if strings.Contains(label, base) {
			count++
		}
	}
	if count == 0 && !taken[base] {
		return base
	}

	suffix := count + 1
	candidate := base + strconv.Itoa(suffix)
	for taken[candidate] {
		suffix++
		candidate = base + strconv.Itoa(suffix)
	}
	return candidate
}
