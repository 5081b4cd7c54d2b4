// Package expr evaluates directive expressions.
//
// Expressions ("count + 1", "open ? 'Close' : 'Open'", "count++") are
// ECMAScript, run by an embedded interpreter against a Scope: a chain of
// name bindings whose entries are getter/setter pairs. The directive
// layer backs entries with signal accessors, which is what makes a bound
// expression reactive: evaluating it inside an effect subscribes the
// effect to every signal the expression reads.
//
// Evaluation is bounded by an interrupt deadline but deliberately not
// sandboxed; see Env.
package expr
