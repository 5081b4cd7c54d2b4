package dom

// PatchOp is the type of DOM mutation a binding produced.
type PatchOp uint8

const (
	PatchSetText     PatchOp = iota + 1 // Replace text content
	PatchSetHTML                        // Replace inner HTML
	PatchSetAttr                        // Set attribute
	PatchRemoveAttr                     // Remove attribute
	PatchShowNode                       // Clear display:none
	PatchHideNode                       // Set display:none
	PatchInsertNode                     // Insert rendered HTML fragment
	PatchRemoveNode                     // Remove node
	PatchReplaceNode                    // Replace node with rendered HTML
	PatchSetValue                       // Set input value
	PatchSetChecked                     // Set checkbox/radio checked
)

// String returns the string representation of the PatchOp.
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

// Patch is a single DOM mutation, addressed by binding ID. The server
// forwards patches to the client over the wire protocol; the live
// server-side document has already been mutated identically.
type Patch struct {
	Op       PatchOp
	Target   string // Binding ID of the target element
	Key      string // Attribute key (SetAttr/RemoveAttr)
	Value    string // Text, attribute value, input value, or HTML
	ParentID string // Parent binding ID (InsertNode)
	Index    int    // Position among the parent's children (InsertNode)
	Bool     bool   // SetChecked
}

// PatchSink receives every patch produced by binding effects.
// Patches arrive in the order the mutations happened.
type PatchSink func(Patch)
