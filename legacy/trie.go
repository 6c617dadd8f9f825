// Package legacy holds the in-memory fallback index used when the durable
// store cannot be opened. Same query surface, nothing survives a restart.
package legacy

import "strings"

// trieNode indexes lowered entry names by prefix. Each node carries the
// set of entry paths whose name passes through it.
type trieNode struct {
	children map[rune]*trieNode
	paths    map[string]struct{}
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

func (n *trieNode) insert(name, path string) {
	node := n
	for _, r := range strings.ToLower(name) {
		child, ok := node.children[r]
		if !ok {
			child = newTrieNode()
			node.children[r] = child
		}
		node = child
		if node.paths == nil {
			node.paths = make(map[string]struct{})
		}
		node.paths[path] = struct{}{}
	}
}

func (n *trieNode) remove(name, path string) {
	node := n
	for _, r := range strings.ToLower(name) {
		child, ok := node.children[r]
		if !ok {
			return
		}
		delete(child.paths, path)
		node = child
	}
}

// withPrefix returns the paths of every entry whose name starts with the
// lowered prefix.
func (n *trieNode) withPrefix(prefix string) map[string]struct{} {
	node := n
	for _, r := range strings.ToLower(prefix) {
		child, ok := node.children[r]
		if !ok {
			return nil
		}
		node = child
	}
	return node.paths
}
