package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/petal-go/petal/pkg/expr"
	"github.com/petal-go/petal/pkg/petal"
)

// Structural directives replace their element with a comment anchor and
// rebuild the region in place whenever the controlling expression
// changes. Rebuilding disposes the previous content's owner first, so
// every binding inside the region is severed before its node leaves the
// tree.

// bindIf mounts the element while its condition is truthy and removes
// it otherwise.
func (d *Document) bindIf(n *html.Node, src string, scope *expr.Scope) {
	parent := n.Parent
	if parent == nil {
		d.logger.Error("p-if on detached element", "src", src)
		return
	}
	parentPID := d.ensurePID(parent)

	tpl := cloneNode(n)
	removeAttr(tpl, attrIf)

	anchor := &html.Node{Type: html.CommentNode, Data: "p-if"}
	parent.InsertBefore(anchor, n)
	detach(n)

	regionOwner := petal.NewOwner(petal.CurrentOwner())

	var (
		mounted      *html.Node
		mountedOwner *petal.Owner
		mountedPID   string
	)

	unmount := func() {
		if mounted == nil {
			return
		}
		mountedOwner.Dispose()
		detach(mounted)
		d.emit(Patch{Op: PatchRemoveNode, Target: mountedPID})
		mounted = nil
		mountedOwner = nil
	}

	petal.CreateEffect(func() petal.Cleanup {
		v, err := d.env.Eval(src, scope)
		if err != nil {
			d.logger.Error("p-if evaluation failed", "src", src, "error", err)
			return nil
		}

		if !expr.Truthy(v) {
			unmount()
			return nil
		}
		if mounted != nil {
			return nil
		}

		node := cloneNode(tpl)
		owner := petal.NewOwner(regionOwner)
		mountedPID = d.ensurePID(node)

		wasLive := d.live
		d.live = false
		petal.WithOwner(owner, func() {
			d.bindNode(node, scope)
		})
		d.live = wasLive

		parent.InsertBefore(node, anchor)
		mounted = node
		mountedOwner = owner

		d.emit(Patch{
			Op:       PatchInsertNode,
			Target:   mountedPID,
			ParentID: parentPID,
			Index:    nodeIndex(node),
			Value:    renderNode(node),
		})
		return nil
	}, petal.EffectName(attrIf+":"+parentPID))

	regionOwner.OnCleanup(func() {
		if mountedOwner != nil {
			mountedOwner.Dispose()
		}
	})
}

// bindFor repeats the element once per item of a collection. The whole
// region is rebuilt on change; rows have no identity across rebuilds.
func (d *Document) bindFor(n *html.Node, src string, scope *expr.Scope) {
	itemName, indexName, itemsSrc, err := parseForExpression(src)
	if err != nil {
		d.logger.Error("p-for parse failed", "src", src, "error", err)
		return
	}

	parent := n.Parent
	if parent == nil {
		d.logger.Error("p-for on detached element", "src", src)
		return
	}
	parentPID := d.ensurePID(parent)

	tpl := cloneNode(n)
	removeAttr(tpl, attrFor)

	anchor := &html.Node{Type: html.CommentNode, Data: "p-for"}
	parent.InsertBefore(anchor, n)
	detach(n)

	regionOwner := petal.NewOwner(petal.CurrentOwner())

	type row struct {
		node  *html.Node
		owner *petal.Owner
		pid   string
	}
	var rows []row

	clearRows := func() {
		for i := len(rows) - 1; i >= 0; i-- {
			rows[i].owner.Dispose()
			detach(rows[i].node)
			d.emit(Patch{Op: PatchRemoveNode, Target: rows[i].pid})
		}
		rows = nil
	}

	petal.CreateEffect(func() petal.Cleanup {
		v, err := d.env.Eval(itemsSrc, scope)
		if err != nil {
			d.logger.Error("p-for evaluation failed", "src", itemsSrc, "error", err)
			return nil
		}
		items := expr.Items(v)

		clearRows()

		for i, item := range items {
			node := cloneNode(tpl)
			owner := petal.NewOwner(regionOwner)
			pid := d.ensurePID(node)

			rowScope := scope.Child()
			rowScope.Define(itemName, expr.Constant(item))
			if indexName != "" {
				rowScope.Define(indexName, expr.Constant(int64(i)))
			}

			wasLive := d.live
			d.live = false
			petal.WithOwner(owner, func() {
				d.bindNode(node, rowScope)
			})
			d.live = wasLive

			parent.InsertBefore(node, anchor)
			rows = append(rows, row{node: node, owner: owner, pid: pid})

			d.emit(Patch{
				Op:       PatchInsertNode,
				Target:   pid,
				ParentID: parentPID,
				Index:    nodeIndex(node),
				Value:    renderNode(node),
			})
		}
		return nil
	}, petal.EffectName(attrFor+":"+parentPID))

	regionOwner.OnCleanup(func() {
		for _, r := range rows {
			r.owner.Dispose()
		}
	})
}

// parseForExpression splits "item in items", "item, i in items" or
// "(item, i) in items" into its names and collection expression.
func parseForExpression(src string) (item, index, items string, err error) {
	left, right, ok := strings.Cut(src, " in ")
	if !ok {
		return "", "", "", fmt.Errorf("missing \"in\": %q", src)
	}

	left = strings.TrimSpace(left)
	left = strings.TrimPrefix(left, "(")
	left = strings.TrimSuffix(left, ")")

	items = strings.TrimSpace(right)
	if items == "" {
		return "", "", "", fmt.Errorf("missing collection: %q", src)
	}

	parts := strings.Split(left, ",")
	item = strings.TrimSpace(parts[0])
	if item == "" || !isIdentifier(item) {
		return "", "", "", fmt.Errorf("invalid item name %q", item)
	}
	if len(parts) > 1 {
		index = strings.TrimSpace(parts[1])
		if !isIdentifier(index) {
			return "", "", "", fmt.Errorf("invalid index name %q", index)
		}
	}
	if len(parts) > 2 {
		return "", "", "", fmt.Errorf("too many names: %q", src)
	}
	return item, index, items, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
