package dom

import (
	"strings"
	"testing"
)

func TestIfMountsAndUnmounts(t *testing.T) {
	doc, patches := bindDoc(t, `<div><p p-if="open" p-text="'hi'"></p></div>`)
	sig := defineSignal(doc, "open", true)
	if err := doc.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	out, _ := doc.RenderString()
	if !strings.Contains(out, ">hi</p>") {
		t.Fatalf("initial mount missing: %s", out)
	}
	if len(*patches) != 0 {
		t.Fatalf("bind emitted %d patches", len(*patches))
	}

	sig.Set(false)
	if len(*patches) != 1 || (*patches)[0].Op != PatchRemoveNode {
		t.Fatalf("unmount patches %+v", *patches)
	}
	out, _ = doc.RenderString()
	if strings.Contains(out, "hi") {
		t.Errorf("unmounted content still rendered: %s", out)
	}

	sig.Set(true)
	if len(*patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(*patches))
	}
	ins := (*patches)[1]
	if ins.Op != PatchInsertNode || ins.ParentID != "p1" {
		t.Errorf("unexpected insert patch %+v", ins)
	}
	if !strings.Contains(ins.Value, "hi") {
		t.Errorf("insert markup missing content: %s", ins.Value)
	}
}

func TestIfSeversInnerBindingsOnUnmount(t *testing.T) {
	doc, patches := bindDoc(t, `<div><p p-if="open" p-text="msg"></p></div>`)
	open := defineSignal(doc, "open", true)
	msg := defineSignal(doc, "msg", "a")
	if err := doc.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	open.Set(false)
	*patches = nil

	// The inner text binding was disposed with the branch.
	msg.Set("b")
	if len(*patches) != 0 {
		t.Errorf("disposed binding emitted patches %+v", *patches)
	}

	// Remounting picks up the current value.
	open.Set(true)
	out, _ := doc.RenderString()
	if !strings.Contains(out, ">b</p>") {
		t.Errorf("remount missing current value: %s", out)
	}
}

func TestForRendersRows(t *testing.T) {
	doc, _ := bindDoc(t, `<ul><li p-for="item in items" p-text="item"></li></ul>`)
	defineSignal(doc, "items", []any{"a", "b"})
	if err := doc.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	out, _ := doc.RenderString()
	if !strings.Contains(out, ">a</li>") || !strings.Contains(out, ">b</li>") {
		t.Errorf("rows missing: %s", out)
	}
}

func TestForRebuildsOnChange(t *testing.T) {
	doc, patches := bindDoc(t, `<ul><li p-for="item in items" p-text="item"></li></ul>`)
	sig := defineSignal(doc, "items", []any{"a", "b"})
	if err := doc.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	sig.Set([]any{"x", "y", "z"})

	var removes, inserts int
	for _, p := range *patches {
		switch p.Op {
		case PatchRemoveNode:
			removes++
		case PatchInsertNode:
			inserts++
		}
	}
	if removes != 2 || inserts != 3 {
		t.Errorf("got %d removes and %d inserts, want 2 and 3", removes, inserts)
	}

	out, _ := doc.RenderString()
	for _, want := range []string{">x</li>", ">y</li>", ">z</li>"} {
		if !strings.Contains(out, want) {
			t.Errorf("row %s missing: %s", want, out)
		}
	}
	if strings.Contains(out, ">a</li>") {
		t.Errorf("stale row still rendered: %s", out)
	}
}

func TestForIndexVariable(t *testing.T) {
	doc, _ := bindDoc(t, `<ul><li p-for="item, i in items" p-text="i + ': ' + item"></li></ul>`)
	defineSignal(doc, "items", []any{"a", "b"})
	if err := doc.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	out, _ := doc.RenderString()
	if !strings.Contains(out, ">0: a</li>") || !strings.Contains(out, ">1: b</li>") {
		t.Errorf("index rows missing: %s", out)
	}
}

func TestForRangeShorthand(t *testing.T) {
	doc, _ := bindDoc(t, `<ul><li p-for="n in 3" p-text="n"></li></ul>`)
	if err := doc.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	out, _ := doc.RenderString()
	for _, want := range []string{">1</li>", ">2</li>", ">3</li>"} {
		if !strings.Contains(out, want) {
			t.Errorf("range row %s missing: %s", want, out)
		}
	}
}

func TestForRowHandlersRemovedOnRebuild(t *testing.T) {
	doc, _ := bindDoc(t,
		`<ul><li p-for="item in items"><button @click="picked = item" p-text="item"></button></li></ul>`)
	items := defineSignal(doc, "items", []any{"a"})
	picked := defineSignal(doc, "picked", "")
	if err := doc.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	// ul is p1, the row li is p2, its button is p3. Clicking the button
	// writes the row's item.
	if err := doc.HandleEvent("p3", Event{Type: "click"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if got := picked.Get(); got != "a" {
		t.Fatalf("picked = %v, want a", got)
	}

	items.Set([]any{"b"})

	// The old row's handler is gone with the row.
	if err := doc.HandleEvent("p3", Event{Type: "click"}); err == nil {
		t.Errorf("stale row handler still dispatchable")
	}
}

func TestParseForExpression(t *testing.T) {
	cases := []struct {
		src         string
		item, index string
		items       string
		wantErr     bool
	}{
		{src: "item in items", item: "item", items: "items"},
		{src: "item, i in items", item: "item", index: "i", items: "items"},
		{src: "(item, i) in items", item: "item", index: "i", items: "items"},
		{src: "n in 10", item: "n", items: "10"},
		{src: "item in list.filter(x => x)", item: "item", items: "list.filter(x => x)"},
		{src: "items", wantErr: true},
		{src: " in items", wantErr: true},
		{src: "a, b, c in items", wantErr: true},
		{src: "1bad in items", wantErr: true},
	}

	for _, tc := range cases {
		item, index, items, err := parseForExpression(tc.src)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.src)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.src, err)
			continue
		}
		if item != tc.item || index != tc.index || items != tc.items {
			t.Errorf("%q: got (%q, %q, %q)", tc.src, item, index, items)
		}
	}
}
