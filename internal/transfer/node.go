package transfer

import "strings"

// NodeKind classifies a remote-tree entry
type NodeKind int

// Node kinds
const (
	// KindFile is a leaf entry carrying content
	KindFile NodeKind = iota
	// KindFolder is an entry that can have children
	KindFolder
)

// Node is the in-memory representation of one remote or local file-system
// entry, built fresh for each adapter invocation and never persisted.
type Node struct {
	// RemoteID is the adapter-specific key, used for de-duplication
	RemoteID string
	Name     string
	Kind     NodeKind

	// RelPath is the sanitized path relative to the project root, stable
	// across import and export
	RelPath string

	Children []*Node
}

// Tree holds the remote tree rooted at one folder together with the
// remote_id index that guarantees each id maps to exactly one node.
type Tree struct {
	Root *Node
	byID map[string]*Node
}

// NewTree creates a tree with a folder root for the given remote id
func NewTree(rootID string) *Tree {
	root := &Node{RemoteID: rootID, Kind: KindFolder}
	return &Tree{
		Root: root,
		byID: map[string]*Node{rootID: root},
	}
}

// Lookup returns the node registered for a remote id, or nil
func (t *Tree) Lookup(remoteID string) *Node {
	return t.byID[remoteID]
}

// register creates the node for a newly discovered entry and attaches it to
// its parent. If the id is already registered (e.g. a folder reachable again
// via a pagination continuation) the existing node is returned and nothing
// is attached, so children appear exactly once.
func (t *Tree) register(parent *Node, entry Entry) (node *Node, seen bool) {
	if existing, ok := t.byID[entry.ID]; ok {
		return existing, true
	}
	node = &Node{
		RemoteID: entry.ID,
		Name:     entry.Name,
		Kind:     entry.Kind,
		RelPath:  joinRelPath(parent.RelPath, entry.Name),
	}
	t.byID[entry.ID] = node
	parent.Children = append(parent.Children, node)
	return node, false
}

// FileCount returns the number of file nodes in the tree
func (t *Tree) FileCount() int64 {
	var count int64
	t.Walk(func(n *Node) {
		if n.Kind == KindFile {
			count++
		}
	})
	return count
}

// Walk visits every node, parents before children
func (t *Tree) Walk(visit func(*Node)) {
	var walk func(*Node)
	walk = func(n *Node) {
		visit(n)
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(t.Root)
}

func joinRelPath(parent, name string) string {
	name = SanitizeName(name)
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// SanitizeName makes a remote-provided entry name safe to join to a local
// base path: separators are replaced and relative path components are
// neutralized, so an adapter can never write outside the job's working
// directory through a crafted name.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
