package protocol

import "fmt"

// Event is a DOM event reported by the client. Target addresses the
// bound element by its binding ID; Value carries the current input value
// for two-way bindings, Checked the checkbox state.
type Event struct {
	Seq     uint64 // Client-assigned sequence number
	Target  string // Binding ID of the element the handler is bound to
	Type    string // DOM event name ("click", "input", "change", ...)
	Value   string // Input value at dispatch time, if any
	Checked bool   // Checkbox/radio state at dispatch time
	Key     string // Key name for keyboard events, if any
}

// EncodeEvent encodes an event payload.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	e.WriteUvarint(ev.Seq)
	e.WriteString(ev.Target)
	e.WriteString(ev.Type)
	e.WriteString(ev.Value)
	e.WriteBool(ev.Checked)
	e.WriteString(ev.Key)
	return e.Bytes()
}

// DecodeEvent decodes an event payload.
func DecodeEvent(payload []byte) (*Event, error) {
	d := NewDecoder(payload)
	ev := &Event{}
	var err error

	if ev.Seq, err = d.ReadUvarint(); err != nil {
		return nil, fmt.Errorf("event seq: %w", err)
	}
	if ev.Target, err = d.ReadString(); err != nil {
		return nil, fmt.Errorf("event target: %w", err)
	}
	if ev.Type, err = d.ReadString(); err != nil {
		return nil, fmt.Errorf("event type: %w", err)
	}
	if ev.Value, err = d.ReadString(); err != nil {
		return nil, fmt.Errorf("event value: %w", err)
	}
	if ev.Checked, err = d.ReadBool(); err != nil {
		return nil, fmt.Errorf("event checked: %w", err)
	}
	if ev.Key, err = d.ReadString(); err != nil {
		return nil, fmt.Errorf("event key: %w", err)
	}

	return ev, nil
}
