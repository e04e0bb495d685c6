package engine

import (
	"github.com/pkg/errors"
)

// Graph is an immutable arena of scenes. Edges are stored as node indices so
// cycles never turn into ownership cycles.
type Graph struct {
	start int
	nodes []SceneNode
	edges [][]int
	index map[string]int
}

// NewGraph copies nodes into a validated graph. Every choice target and the
// start id must resolve; otherwise a *ConfigError is returned.
func NewGraph(start string, nodes []SceneNode) (*Graph, error) {
	if len(nodes) == 0 {
		return nil, &ConfigError{Choice: -1, Reason: "graph has no scenes"}
	}
	g := &Graph{
		nodes: make([]SceneNode, len(nodes)),
		edges: make([][]int, len(nodes)),
		index: make(map[string]int, len(nodes)),
	}
	for i, n := range nodes {
		if n.ID == "" {
			return nil, &ConfigError{Choice: -1, Reason: "scene with empty id"}
		}
		if _, dup := g.index[n.ID]; dup {
			return nil, &ConfigError{SceneID: n.ID, Choice: -1, Reason: "duplicate scene id"}
		}
		if !n.Background.valid() {
			return nil, &ConfigError{SceneID: n.ID, Choice: -1, Reason: "background needs exactly one of gradient or image"}
		}
		n.Choices = append([]Choice(nil), n.Choices...)
		g.nodes[i] = n
		g.index[n.ID] = i
	}
	s, ok := g.index[start]
	if !ok {
		return nil, &ConfigError{SceneID: start, Choice: -1, Reason: "start scene does not exist"}
	}
	g.start = s
	for i, n := range g.nodes {
		edges := make([]int, len(n.Choices))
		for j, c := range n.Choices {
			target, ok := g.index[c.Next]
			if !ok {
				return nil, &ConfigError{SceneID: n.ID, Choice: j, Target: c.Next, Reason: "target does not exist"}
			}
			edges[j] = target
		}
		g.edges[i] = edges
	}
	return g, nil
}

// Node returns the scene for id or ErrSceneNotFound.
func (g *Graph) Node(id string) (SceneNode, error) {
	i, ok := g.index[id]
	if !ok {
		return SceneNode{}, errors.Wrapf(ErrSceneNotFound, "id %q", id)
	}
	return g.node(i), nil
}

// node hands out a copy so callers cannot mutate the arena through Choices.
func (g *Graph) node(i int) SceneNode {
	n := g.nodes[i]
	n.Choices = append([]Choice(nil), n.Choices...)
	return n
}

// follow resolves choice j of node i to a node index.
func (g *Graph) follow(i, j int) (int, bool) {
	if i < 0 || i >= len(g.edges) || j < 0 || j >= len(g.edges[i]) {
		return 0, false
	}
	return g.edges[i][j], true
}

func (g *Graph) Start() string { return g.nodes[g.start].ID }

func (g *Graph) Len() int { return len(g.nodes) }

// IDs lists scene ids in declaration order.
func (g *Graph) IDs() []string {
	ids := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.ID
	}
	return ids
}

// Nodes returns copies of every scene in declaration order.
func (g *Graph) Nodes() []SceneNode {
	out := make([]SceneNode, len(g.nodes))
	for i := range g.nodes {
		out[i] = g.node(i)
	}
	return out
}

// Unreachable lists scenes that no path from the start scene visits.
func (g *Graph) Unreachable() []string {
	seen := make([]bool, len(g.nodes))
	stack := []int{g.start}
	seen[g.start] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.edges[cur] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	var out []string
	for i, ok := range seen {
		if !ok {
			out = append(out, g.nodes[i].ID)
		}
	}
	return out
}
