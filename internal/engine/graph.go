package engine

import (
	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

// Graph is the directed acyclic dependency graph over resource specs. It is
// built purely from declarations; construction performs no control-plane
// calls.
type Graph struct {
	nodes map[model.ResourceRef]*graphNode
	order []model.ResourceRef // topological creation order
}

type graphNode struct {
	ref        model.ResourceRef
	deps       []model.ResourceRef // resources this node depends on
	dependents []model.ResourceRef // resources that depend on this node
}

// BuildGraph constructs the dependency graph and computes a deterministic
// topological order. Ties between ready nodes break by declaration order, so
// the same manifest always provisions in the same sequence. Duplicate refs,
// references to undeclared resources and dependency cycles are
// configuration errors.
func BuildGraph(specs []*model.ResourceSpec) (*Graph, error) {
	g := &Graph{nodes: make(map[model.ResourceRef]*graphNode, len(specs))}

	declared := make([]model.ResourceRef, 0, len(specs))
	for _, spec := range specs {
		ref := spec.Ref()
		if _, dup := g.nodes[ref]; dup {
			return nil, cloud.ConfigErrorf("duplicate resource %s", ref)
		}
		g.nodes[ref] = &graphNode{ref: ref}
		declared = append(declared, ref)
	}

	for _, spec := range specs {
		node := g.nodes[spec.Ref()]
		for _, dep := range spec.DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, cloud.ConfigErrorf("resource %s depends on undeclared resource %s", spec.Ref(), dep)
			}
			node.deps = append(node.deps, dep)
			g.nodes[dep].dependents = append(g.nodes[dep].dependents, spec.Ref())
		}
	}

	order, err := topoSort(declared, g.nodes)
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

// topoSort runs Kahn's algorithm. The ready set is scanned in declaration
// order rather than kept as a queue, which gives the stable tie-break.
func topoSort(declared []model.ResourceRef, nodes map[model.ResourceRef]*graphNode) ([]model.ResourceRef, error) {
	inDegree := make(map[model.ResourceRef]int, len(nodes))
	for ref, node := range nodes {
		inDegree[ref] = len(node.deps)
	}

	emitted := make(map[model.ResourceRef]bool, len(nodes))
	sorted := make([]model.ResourceRef, 0, len(nodes))
	for len(sorted) < len(nodes) {
		progressed := false
		for _, ref := range declared {
			if emitted[ref] || inDegree[ref] != 0 {
				continue
			}
			emitted[ref] = true
			sorted = append(sorted, ref)
			for _, dependent := range nodes[ref].dependents {
				inDegree[dependent]--
			}
			progressed = true
			break
		}
		if !progressed {
			// Every unemitted node still has unmet dependencies.
			for _, ref := range declared {
				if !emitted[ref] {
					return nil, cloud.ConfigErrorf("dependency cycle detected involving %s", ref)
				}
			}
		}
	}
	return sorted, nil
}

// Order returns refs in dependency-respecting creation order.
func (g *Graph) Order() []model.ResourceRef {
	return g.order
}

// Dependencies returns the direct dependencies of ref.
func (g *Graph) Dependencies(ref model.ResourceRef) []model.ResourceRef {
	if node, ok := g.nodes[ref]; ok {
		return node.deps
	}
	return nil
}

// Dependents returns the resources that directly depend on ref.
func (g *Graph) Dependents(ref model.ResourceRef) []model.ResourceRef {
	if node, ok := g.nodes[ref]; ok {
		return node.dependents
	}
	return nil
}
