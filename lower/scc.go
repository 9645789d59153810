package lower

import (
	"sort"

	"clamc/mcore"
)

// GroupKind classifies an emitted binding group.
type GroupKind int

const (
	// NonRec marks a singleton group whose function never references
	// itself.
	NonRec GroupKind = iota

	// Rec marks a group whose members reference themselves or each other.
	Rec
)

// BindingGroup is a set of simultaneously-scoped bindings that must be
// lowered together.
type BindingGroup struct {
	Kind     GroupKind
	Bindings []mcore.LetRecBinding
}

// GroupBindings partitions a flat letrec bundle into strongly connected
// groups emitted in dependency order: every group references only itself and
// groups emitted before it.
func GroupBindings(bindings []mcore.LetRecBinding) []*BindingGroup {
	n := len(bindings)

	indexOf := make(map[*mcore.Ident]int, n)
	for i, b := range bindings {
		indexOf[b.Name] = i
	}

	// succs[i] lists the sibling bindings free in binding i's body.
	succs := make([][]int, n)
	selfRef := make([]bool, n)

	for i, b := range bindings {
		for _, fv := range FreeVars(b.Fn, nil).Slice() {
			j, isSibling := indexOf[fv]
			if !isSibling {
				continue
			}

			if j == i {
				selfRef[i] = true
				continue
			}

			succs[i] = append(succs[i], j)
		}
	}

	t := &tarjan{
		succs:   succs,
		index:   make([]int, n),
		lowlink: make([]int, n),
		onStack: make([]bool, n),
	}

	for i := range t.index {
		t.index[i] = -1
	}

	for i := 0; i < n; i++ {
		if t.index[i] == -1 {
			t.connect(i)
		}
	}

	groups := make([]*BindingGroup, 0, len(t.sccs))
	for _, scc := range t.sccs {
		kind := Rec
		if len(scc) == 1 && !selfRef[scc[0]] {
			kind = NonRec
		}

		members := make([]mcore.LetRecBinding, len(scc))
		for i, idx := range scc {
			members[i] = bindings[idx]
		}

		groups = append(groups, &BindingGroup{Kind: kind, Bindings: members})
	}

	return groups
}

// tarjan emits strongly connected components callee-first, which is exactly
// the dependency order the lowering needs.
type tarjan struct {
	succs   [][]int
	index   []int
	lowlink []int
	onStack []bool
	stack   []int
	counter int
	sccs    [][]int
}

func (t *tarjan) connect(v int) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.succs[v] {
		if t.index[w] == -1 {
			t.connect(w)

			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] && t.index[w] < t.lowlink[v] {
			t.lowlink[v] = t.index[w]
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}

	var scc []int
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)

		if w == v {
			break
		}
	}

	// Members are collected in pop order; restore binding order so output
	// is independent of DFS traversal details.
	sort.Ints(scc)

	t.sccs = append(t.sccs, scc)
}
