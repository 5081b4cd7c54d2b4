package protocol

import "fmt"

// PatchOp is the type of DOM patch operation.
type PatchOp uint8

const (
	PatchSetText     PatchOp = 0x01 // Replace text content
	PatchSetHTML     PatchOp = 0x02 // Replace inner HTML
	PatchSetAttr     PatchOp = 0x03 // Set attribute
	PatchRemoveAttr  PatchOp = 0x04 // Remove attribute
	PatchShowNode    PatchOp = 0x05 // Clear display:none
	PatchHideNode    PatchOp = 0x06 // Set display:none
	PatchInsertNode  PatchOp = 0x07 // Insert rendered HTML fragment
	PatchRemoveNode  PatchOp = 0x08 // Remove node
	PatchReplaceNode PatchOp = 0x09 // Replace node with rendered HTML
	PatchSetValue    PatchOp = 0x0A // Set input value
	PatchSetChecked  PatchOp = 0x0B // Set checkbox/radio checked
)

// String returns the string representation of the patch operation.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchSetHTML:
		return "SetHTML"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchShowNode:
		return "ShowNode"
	case PatchHideNode:
		return "HideNode"
	case PatchInsertNode:
		return "InsertNode"
	case PatchRemoveNode:
		return "RemoveNode"
	case PatchReplaceNode:
		return "ReplaceNode"
	case PatchSetValue:
		return "SetValue"
	case PatchSetChecked:
		return "SetChecked"
	default:
		return "Unknown"
	}
}

// Patch is a single DOM operation addressed by binding ID.
type Patch struct {
	Op       PatchOp
	Target   string // Binding ID of the target element
	Key      string // Attribute key (SetAttr/RemoveAttr)
	Value    string // Text, attribute value, input value, or HTML
	ParentID string // Parent binding ID (InsertNode)
	Index    int    // Insert position within the parent (InsertNode)
	Bool     bool   // SetChecked
}

// PatchesFrame is an ordered batch of patches with a sequence number.
// One frame is flushed per processed client event.
type PatchesFrame struct {
	Seq     uint64
	Patches []Patch
}

// EncodePatches encodes a patches frame payload.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))

	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
	return e.Bytes()
}

func encodePatch(e *Encoder, p *Patch) {
	e.WriteByte(byte(p.Op))
	e.WriteString(p.Target)

	switch p.Op {
	case PatchSetText, PatchSetHTML, PatchSetValue:
		e.WriteString(p.Value)

	case PatchSetAttr:
		e.WriteString(p.Key)
		e.WriteString(p.Value)

	case PatchRemoveAttr:
		e.WriteString(p.Key)

	case PatchShowNode, PatchHideNode, PatchRemoveNode:
		// Target only.

	case PatchInsertNode:
		e.WriteString(p.ParentID)
		e.WriteUvarint(uint64(p.Index))
		e.WriteString(p.Value)

	case PatchReplaceNode:
		e.WriteString(p.Value)

	case PatchSetChecked:
		e.WriteBool(p.Bool)
	}
}

// DecodePatches decodes a patches frame payload.
func DecodePatches(payload []byte) (*PatchesFrame, error) {
	d := NewDecoder(payload)

	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("patches seq: %w", err)
	}

	count, err := d.ReadCount()
	if err != nil {
		return nil, fmt.Errorf("patches count: %w", err)
	}

	pf := &PatchesFrame{
		Seq:     seq,
		Patches: make([]Patch, 0, count),
	}

	for i := 0; i < count; i++ {
		p, err := decodePatch(d)
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
		pf.Patches = append(pf.Patches, p)
	}

	return pf, nil
}

func decodePatch(d *Decoder) (Patch, error) {
	var p Patch

	op, err := d.ReadByte()
	if err != nil {
		return p, err
	}
	p.Op = PatchOp(op)

	if p.Target, err = d.ReadString(); err != nil {
		return p, err
	}

	switch p.Op {
	case PatchSetText, PatchSetHTML, PatchSetValue, PatchReplaceNode:
		p.Value, err = d.ReadString()

	case PatchSetAttr:
		if p.Key, err = d.ReadString(); err != nil {
			return p, err
		}
		p.Value, err = d.ReadString()

	case PatchRemoveAttr:
		p.Key, err = d.ReadString()

	case PatchShowNode, PatchHideNode, PatchRemoveNode:
		// Target only.

	case PatchInsertNode:
		if p.ParentID, err = d.ReadString(); err != nil {
			return p, err
		}
		var idx uint64
		if idx, err = d.ReadUvarint(); err != nil {
			return p, err
		}
		p.Index = int(idx)
		p.Value, err = d.ReadString()

	case PatchSetChecked:
		p.Bool, err = d.ReadBool()

	default:
		return p, fmt.Errorf("protocol: unknown patch op 0x%02x", op)
	}

	return p, err
}
