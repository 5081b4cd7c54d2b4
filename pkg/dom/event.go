package dom

// Event is a client DOM event dispatched to a bound handler.
type Event struct {
	Type    string // DOM event name ("click", "input", "change", ...)
	Value   string // Input value at dispatch time, if any
	Checked bool   // Checkbox/radio state at dispatch time
	Key     string // Key name for keyboard events, if any
}
