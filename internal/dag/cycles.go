package dag

import "github.com/specialistvlad/pipelinestudio/internal/pipeline"

// DetectCycle checks the graph's connections for a cycle and returns a
// *CycleError naming the first node found on one.
func DetectCycle(g pipeline.Graph) error {
	dependents := make(map[string][]string, len(g.Nodes))
	for _, c := range g.Connections {
		dependents[c.From] = append(dependents[c.From], c.To)
	}

	// permanent: fully visited and not part of a cycle.
	// temporary: on the current recursion stack.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(label string) error
	visit = func(label string) error {
		if permanent[label] {
			return nil
		}
		if temporary[label] {
			return &CycleError{Label: label}
		}
		temporary[label] = true
		for _, next := range dependents[label] {
			if err := visit(next); err != nil {
				return err
			}
		}
		delete(temporary, label)
		permanent[label] = true
		return nil
	}

	// Graph order keeps the reported node deterministic.
	for _, n := range g.Nodes {
		if err := visit(n.Label()); err != nil {
			return err
		}
	}
	return nil
}
