// Package dom binds directive attributes in server-side HTML to the
// reactive core.
//
// A Document is parsed from HTML, bound once, and then kept in sync
// with its signals: every directive (p-text, p-show, p-bind:attr,
// p-if, p-for and friends) becomes one effect, and each effect pushes
// its output both into the live tree and, as a Patch, into the
// document's sink. Client events arrive through HandleEvent and run
// their bound handler statements; any signal writes they perform
// propagate before HandleEvent returns, so the caller can flush the
// collected patches as one unit.
//
// Documents are not safe for concurrent use. The server package gives
// each session a single goroutine that owns its document.
package dom
