package dom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/petal-go/petal/pkg/expr"
	"github.com/petal-go/petal/pkg/petal"
)

// Directive attribute names.
const (
	attrData   = "p-data"
	attrText   = "p-text"
	attrHTML   = "p-html"
	attrShow   = "p-show"
	attrIf     = "p-if"
	attrFor    = "p-for"
	attrModel  = "p-model"
	attrIgnore = "p-ignore"

	prefixBind      = "p-bind:"
	prefixBindShort = ":"
	prefixOn        = "p-on:"
	prefixOnShort   = "@"
)

// bindNode walks the subtree rooted at n, creating bindings for every
// directive it finds. Structural directives (p-if, p-for) take over
// their subtree; the walk does not descend past them.
func (d *Document) bindNode(n *html.Node, scope *expr.Scope) {
	if n.Type == html.ElementNode {
		if _, ok := getAttr(n, attrIgnore); ok {
			return
		}

		if src, ok := getAttr(n, attrData); ok {
			scope = d.bindData(n, src, scope)
		}

		if src, ok := getAttr(n, attrFor); ok {
			d.bindFor(n, src, scope)
			return
		}
		if src, ok := getAttr(n, attrIf); ok {
			d.bindIf(n, src, scope)
			return
		}

		d.bindElement(n, scope)
	}

	// Snapshot children first: bindings may mutate text content while
	// walking.
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	for _, c := range children {
		d.bindNode(c, scope)
	}
}

// bindElement creates the non-structural bindings of a single element.
func (d *Document) bindElement(n *html.Node, scope *expr.Scope) {
	// Attributes are snapshotted because p-model rewrites them.
	attrs := make([]html.Attribute, len(n.Attr))
	copy(attrs, n.Attr)

	for _, a := range attrs {
		switch {
		case a.Key == attrText:
			d.bindText(n, a.Val, scope)
		case a.Key == attrHTML:
			d.bindHTML(n, a.Val, scope)
		case a.Key == attrShow:
			d.bindShow(n, a.Val, scope)
		case a.Key == attrModel:
			d.bindModel(n, a.Val, scope)
		case strings.HasPrefix(a.Key, prefixBind):
			d.bindAttr(n, strings.TrimPrefix(a.Key, prefixBind), a.Val, scope)
		case strings.HasPrefix(a.Key, prefixBindShort):
			d.bindAttr(n, strings.TrimPrefix(a.Key, prefixBindShort), a.Val, scope)
		case strings.HasPrefix(a.Key, prefixOn):
			d.bindOn(n, strings.TrimPrefix(a.Key, prefixOn), a.Val, scope)
		case strings.HasPrefix(a.Key, prefixOnShort):
			d.bindOn(n, strings.TrimPrefix(a.Key, prefixOnShort), a.Val, scope)
		}
	}
}

// bindData evaluates a p-data object once and returns a child scope
// whose entries are signal-backed, so reads track and writes propagate.
func (d *Document) bindData(n *html.Node, src string, scope *expr.Scope) *expr.Scope {
	v, err := d.env.Eval(src, scope)
	if err != nil {
		d.logger.Error("p-data evaluation failed", "src", src, "error", err)
		return scope
	}

	obj, ok := v.(map[string]any)
	if !ok {
		d.logger.Error("p-data did not evaluate to an object", "src", src)
		return scope
	}

	child := scope.Child()
	for name, initial := range obj {
		sig := petal.NewSignal[any](initial)
		child.Define(name, &expr.Var{
			Get: func() any { return sig.Get() },
			Set: func(v any) { sig.Set(v) },
		})
	}
	return child
}

// eval runs a directive expression inside an effect. Errors are logged
// and the binding keeps its previous output.
func (d *Document) eval(kind, pid, src string, scope *expr.Scope) (any, bool) {
	v, err := d.env.Eval(src, scope)
	if err != nil {
		d.logger.Error("directive evaluation failed",
			"directive", kind, "target", pid, "src", src, "error", err)
		return nil, false
	}
	return v, true
}

func (d *Document) bindText(n *html.Node, src string, scope *expr.Scope) {
	pid := d.ensurePID(n)
	petal.CreateEffect(func() petal.Cleanup {
		v, ok := d.eval(attrText, pid, src, scope)
		if !ok {
			return nil
		}
		text := expr.Stringify(v)
		setTextContent(n, text)
		d.emit(Patch{Op: PatchSetText, Target: pid, Value: text})
		return nil
	}, petal.EffectName(attrText+":"+pid))
}

func (d *Document) bindHTML(n *html.Node, src string, scope *expr.Scope) {
	pid := d.ensurePID(n)
	petal.CreateEffect(func() petal.Cleanup {
		v, ok := d.eval(attrHTML, pid, src, scope)
		if !ok {
			return nil
		}
		markup := expr.Stringify(v)
		if err := setInnerHTML(n, markup); err != nil {
			d.logger.Error("p-html produced unparsable markup",
				"target", pid, "error", err)
			return nil
		}
		d.emit(Patch{Op: PatchSetHTML, Target: pid, Value: markup})
		return nil
	}, petal.EffectName(attrHTML+":"+pid))
}

func (d *Document) bindShow(n *html.Node, src string, scope *expr.Scope) {
	pid := d.ensurePID(n)
	petal.CreateEffect(func() petal.Cleanup {
		v, ok := d.eval(attrShow, pid, src, scope)
		if !ok {
			return nil
		}
		if expr.Truthy(v) {
			removeStyleDisplayNone(n)
			d.emit(Patch{Op: PatchShowNode, Target: pid})
		} else {
			addStyleDisplayNone(n)
			d.emit(Patch{Op: PatchHideNode, Target: pid})
		}
		return nil
	}, petal.EffectName(attrShow+":"+pid))
}

func (d *Document) bindAttr(n *html.Node, attr, src string, scope *expr.Scope) {
	pid := d.ensurePID(n)
	petal.CreateEffect(func() petal.Cleanup {
		v, ok := d.eval(prefixBind+attr, pid, src, scope)
		if !ok {
			return nil
		}
		switch {
		case v == nil || v == false:
			removeAttr(n, attr)
			d.emit(Patch{Op: PatchRemoveAttr, Target: pid, Key: attr})
		case v == true:
			setAttr(n, attr, "")
			d.emit(Patch{Op: PatchSetAttr, Target: pid, Key: attr})
		default:
			s := expr.Stringify(v)
			setAttr(n, attr, s)
			d.emit(Patch{Op: PatchSetAttr, Target: pid, Key: attr, Value: s})
		}
		return nil
	}, petal.EffectName(prefixBind+attr+":"+pid))
}

func (d *Document) bindOn(n *html.Node, event, src string, scope *expr.Scope) {
	d.registerHandler(n, event, src, scope, petal.CurrentOwner())
}

// bindModel wires two-way binding: an effect pushes the named variable
// into the element's value (or checked state), and an input handler
// writes the client value back.
func (d *Document) bindModel(n *html.Node, name string, scope *expr.Scope) {
	pid := d.ensurePID(n)

	checkbox := false
	if n.Data == "input" {
		if t, ok := getAttr(n, "type"); ok && t == "checkbox" {
			checkbox = true
		}
	}

	if checkbox {
		petal.CreateEffect(func() petal.Cleanup {
			v, ok := d.eval(attrModel, pid, name, scope)
			if !ok {
				return nil
			}
			checked := expr.Truthy(v)
			if checked {
				setAttr(n, "checked", "")
			} else {
				removeAttr(n, "checked")
			}
			d.emit(Patch{Op: PatchSetChecked, Target: pid, Bool: checked})
			return nil
		}, petal.EffectName(attrModel+":"+pid))
		d.registerHandler(n, "change", name+" = $event.checked", scope, petal.CurrentOwner())
		return
	}

	petal.CreateEffect(func() petal.Cleanup {
		v, ok := d.eval(attrModel, pid, name, scope)
		if !ok {
			return nil
		}
		s := expr.Stringify(v)
		setAttr(n, "value", s)
		d.emit(Patch{Op: PatchSetValue, Target: pid, Value: s})
		return nil
	}, petal.EffectName(attrModel+":"+pid))
	d.registerHandler(n, "input", name+" = $event.value", scope, petal.CurrentOwner())
}

// display:none toggling for p-show. The inline style attribute is
// rewritten wholesale; authored display values inside it are preserved
// by appending and stripping only our marker declaration.

const displayNone = "display:none"

func addStyleDisplayNone(n *html.Node) {
	style, _ := getAttr(n, "style")
	if strings.Contains(style, displayNone) {
		return
	}
	if style != "" && !strings.HasSuffix(strings.TrimSpace(style), ";") {
		style += ";"
	}
	setAttr(n, "style", style+displayNone)
}

func removeStyleDisplayNone(n *html.Node) {
	style, ok := getAttr(n, "style")
	if !ok {
		return
	}
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" || decl == displayNone {
			continue
		}
		kept = append(kept, decl)
	}
	if len(kept) == 0 {
		removeAttr(n, "style")
		return
	}
	setAttr(n, "style", strings.Join(kept, ";"))
}
