package browse

import (
	"fmt"
	"strings"

	"github.com/sadopc/monetdialect/internal/schema"
)

// NodeKind represents the type of tree node.
type NodeKind int

const (
	NodeTableGroup NodeKind = iota
	NodeTable
	NodeColumn
	NodeViewGroup
	NodeView
	NodeSequenceGroup
	NodeSequence
)

// TreeNode is one line of the schema tree.
type TreeNode struct {
	Label    string
	Kind     NodeKind
	Children []*TreeNode
	Expanded bool
	Depth    int

	// Index into the snapshot's Tables, Views or Sequences.
	Ref    int
	Column string
	IsPK   bool
}

func buildTree(snap *schema.Snapshot) []*TreeNode {
	if snap == nil {
		return nil
	}
	var nodes []*TreeNode

	tables := &TreeNode{
		Label:    fmt.Sprintf("Tables (%d)", len(snap.Tables)),
		Kind:     NodeTableGroup,
		Expanded: true,
	}
	for i, t := range snap.Tables {
		pk := make(map[string]bool, len(t.PrimaryKey.ConstrainedColumns))
		for _, c := range t.PrimaryKey.ConstrainedColumns {
			pk[c] = true
		}
		tn := &TreeNode{Label: t.Name, Kind: NodeTable, Depth: 1, Ref: i}
		for _, c := range t.Columns {
			tn.Children = append(tn.Children, &TreeNode{
				Label:  c.Name + " " + strings.ToLower(c.Type.String()),
				Kind:   NodeColumn,
				Depth:  2,
				Ref:    i,
				Column: c.Name,
				IsPK:   pk[c.Name],
			})
		}
		tables.Children = append(tables.Children, tn)
	}
	nodes = append(nodes, tables)

	if len(snap.Views) > 0 {
		views := &TreeNode{Label: fmt.Sprintf("Views (%d)", len(snap.Views)), Kind: NodeViewGroup}
		for i, v := range snap.Views {
			views.Children = append(views.Children, &TreeNode{Label: v.Name, Kind: NodeView, Depth: 1, Ref: i})
		}
		nodes = append(nodes, views)
	}

	if len(snap.Sequences) > 0 {
		seqs := &TreeNode{Label: fmt.Sprintf("Sequences (%d)", len(snap.Sequences)), Kind: NodeSequenceGroup}
		for i, s := range snap.Sequences {
			seqs.Children = append(seqs.Children, &TreeNode{Label: s.Name, Kind: NodeSequence, Depth: 1, Ref: i})
		}
		nodes = append(nodes, seqs)
	}
	return nodes
}

func flatten(nodes []*TreeNode) []*TreeNode {
	var flat []*TreeNode
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		flat = append(flat, n)
		if n.Expanded {
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return flat
}
