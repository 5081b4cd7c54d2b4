package dom

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/petal-go/petal/pkg/expr"
	"github.com/petal-go/petal/pkg/petal"
)

// PIDAttr is the attribute carrying an element's binding ID. It is
// assigned during binding and addresses the element in patches and
// events.
const PIDAttr = "data-pid"

// Document errors.
var (
	ErrAlreadyBound  = errors.New("dom: document already bound")
	ErrNotBound      = errors.New("dom: document not bound")
	ErrUnknownTarget = errors.New("dom: no binding for target")
	ErrNoHandler     = errors.New("dom: no handler for event")
)

// handlerBinding is one p-on (or p-model) event handler.
type handlerBinding struct {
	src   string
	scope *expr.Scope
	el    *html.Node
}

// Document is a live server-side HTML document with directive bindings.
//
// Parse builds the tree, Bind scans directives and creates one reactive
// effect per binding, and from then on every signal write mutates the
// tree and reports the mutation to the patch sink. HandleEvent
// dispatches client events into bound handler statements.
//
// A Document confines itself to one goroutine; the session serializes
// access.
type Document struct {
	root   *html.Node
	env    *expr.Env
	scope  *expr.Scope
	owner  *petal.Owner
	sink   PatchSink
	logger *slog.Logger

	// handlers maps binding ID -> event name -> handler.
	handlers map[string]map[string]*handlerBinding

	nextPID int
	bound   bool

	// live is false during the initial bind pass, whose mutations are
	// already reflected in the first render and must not emit patches.
	live bool
}

// Option configures a Document.
type Option func(*Document)

// WithSink sets the patch sink receiving binding mutations.
func WithSink(sink PatchSink) Option {
	return func(d *Document) {
		d.sink = sink
	}
}

// WithLogger sets the logger for binding and evaluation errors.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) {
		d.logger = logger
	}
}

// WithEnv sets the expression environment. One Env can be shared by
// documents of the same session.
func WithEnv(env *expr.Env) Option {
	return func(d *Document) {
		d.env = env
	}
}

// Parse reads an HTML document and prepares it for binding.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}

	d := &Document{
		root:     root,
		scope:    expr.NewScope(),
		owner:    petal.NewOwner(nil),
		handlers: make(map[string]map[string]*handlerBinding),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.env == nil {
		d.env = expr.New()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d, nil
}

// ParseString is Parse over a string.
func ParseString(src string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(src), opts...)
}

// Scope returns the document's root scope. Entries defined before Bind
// are visible to every directive.
func (d *Document) Scope() *expr.Scope {
	return d.scope
}

// DefineSignal binds a signal into the document's root scope, making it
// readable and assignable from directive expressions.
func (d *Document) DefineSignal(name string, sig *petal.Signal[any]) {
	d.scope.Define(name, &expr.Var{
		Get: func() any { return sig.Get() },
		Set: func(v any) { sig.Set(v) },
	})
}

// Bind scans the tree for directives and creates their bindings.
// Effects run once during the scan; the mutations of that first pass do
// not reach the sink because the subsequent Render already reflects
// them.
func (d *Document) Bind() error {
	if d.bound {
		return ErrAlreadyBound
	}
	d.bound = true

	petal.WithOwner(d.owner, func() {
		d.bindNode(d.root, d.scope)
	})

	d.live = true
	return nil
}

// HandleEvent dispatches a client event to the handler bound for the
// target element. Signal writes performed by the handler propagate
// synchronously; any resulting patches reach the sink before
// HandleEvent returns.
func (d *Document) HandleEvent(target string, ev Event) error {
	if !d.bound {
		return ErrNotBound
	}

	byEvent, ok := d.handlers[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	h, ok := byEvent[ev.Type]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrNoHandler, ev.Type, target)
	}

	hscope := h.scope.Child()
	hscope.Define("$event", expr.Constant(map[string]any{
		"type":    ev.Type,
		"value":   ev.Value,
		"checked": ev.Checked,
		"key":     ev.Key,
	}))
	hscope.Define("$el", expr.Constant(map[string]any{
		"id":  target,
		"tag": h.el.Data,
	}))

	return d.env.Exec(h.src, hscope)
}

// Render serializes the live document to HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// RenderString is Render into a string.
func (d *Document) RenderString() (string, error) {
	var sb strings.Builder
	if err := d.Render(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Close disposes every binding the document owns. The contract mirrors
// the effect API: a closed document's signals may still be written, but
// nothing observes them anymore.
func (d *Document) Close() {
	d.owner.Dispose()
}

// emit forwards a patch to the sink once the document is live.
func (d *Document) emit(p Patch) {
	if !d.live || d.sink == nil {
		return
	}
	d.sink(p)
}

// ensurePID returns the element's binding ID, assigning one if needed.
func (d *Document) ensurePID(n *html.Node) string {
	if pid, ok := getAttr(n, PIDAttr); ok {
		return pid
	}
	d.nextPID++
	pid := "p" + strconv.Itoa(d.nextPID)
	setAttr(n, PIDAttr, pid)
	return pid
}

// registerHandler records an event handler for an element.
func (d *Document) registerHandler(n *html.Node, event, src string, scope *expr.Scope, owner *petal.Owner) {
	pid := d.ensurePID(n)

	byEvent, ok := d.handlers[pid]
	if !ok {
		byEvent = make(map[string]*handlerBinding)
		d.handlers[pid] = byEvent
	}
	byEvent[event] = &handlerBinding{src: src, scope: scope, el: n}

	if owner == nil {
		return
	}

	// Region teardown removes the handler with the region.
	owner.OnCleanup(func() {
		if byEvent, ok := d.handlers[pid]; ok {
			delete(byEvent, event)
			if len(byEvent) == 0 {
				delete(d.handlers, pid)
			}
		}
	})
}
