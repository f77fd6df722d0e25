package hlog

import (
	"slices"
	"sort"
	"strings"
)

// Separator splits logger names into path segments ("app.db.pool").
const Separator = "."

// node is one logger of the resolution tree. Every configured name and every
// prefix implied by a configured name has a node; anything deeper resolves to
// its longest matching prefix.
type node struct {
	level     Level
	appenders []int // indices into State.appenders, in dispatch order
	children  map[string]*node
}

func splitName(name string) (head, rest string) {
	head, rest, _ = strings.Cut(name, Separator)
	return head, rest
}

// insert applies one logger rule below n. Intermediate nodes created on the
// way copy n's level and appenders, so an unconfigured prefix behaves like
// its nearest configured ancestor.
func (n *node) insert(name string, appenders []int, additive bool, level Level) {
	head, rest := splitName(name)
	child, ok := n.children[head]
	switch {
	case !ok && rest == "":
		n.setChild(head, &node{level: level, appenders: n.inherit(appenders, additive)})
	case !ok:
		child = &node{level: n.level, appenders: slices.Clone(n.appenders)}
		n.setChild(head, child)
		child.insert(rest, appenders, additive, level)
	case rest == "":
		// Reached an existing node. NewState inserts parents first and
		// rejects repeated names, so this only happens when insert is
		// driven directly; the node's children keep what they inherited.
		child.level = level
		child.appenders = n.inherit(appenders, additive)
	default:
		child.insert(rest, appenders, additive, level)
	}
}

// inherit returns own followed by n's appenders when additive, without repeats.
func (n *node) inherit(own []int, additive bool) []int {
	out := make([]int, 0, len(own)+len(n.appenders))
	out = appendUnique(out, own)
	if additive {
		out = appendUnique(out, n.appenders)
	}
	return out
}

func appendUnique(dst, src []int) []int {
	for _, idx := range src {
		if !slices.Contains(dst, idx) {
			dst = append(dst, idx)
		}
	}
	return dst
}

func (n *node) setChild(segment string, child *node) {
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	n.children[segment] = child
}

// minLevel returns the least restrictive threshold in the subtree.
func (n *node) minLevel() Level {
	lowest := n.level
	for _, child := range n.children {
		lowest = min(lowest, child.minLevel())
	}
	return lowest
}

// resolve walks name segment by segment and stops at the first segment
// without a matching child.
func (n *node) resolve(name string) *node {
	cur := n
	for name != "" {
		head, rest := splitName(name)
		child, ok := cur.children[head]
		if !ok {
			break
		}
		cur = child
		name = rest
	}
	return cur
}

// walk visits the subtree depth first with children in name order.
func (n *node) walk(name string, fn func(name string, n *node)) {
	fn(name, n)
	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		childName := k
		if name != "" {
			childName = name + Separator + k
		}
		n.children[k].walk(childName, fn)
	}
}
