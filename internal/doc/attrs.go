package doc

// Node attribute keys for block-level (structural) suggestions. A node
// carrying AttrNodeSuggestionID is under review; absence of the
// attribute means the node is canonical.
const (
	AttrNodeSuggestionID        = "nodeSuggestionId"
	AttrNodeSuggestionUserID    = "nodeSuggestionUserId"
	AttrNodeSuggestionThreadID  = "nodeSuggestionCommentThreadId"
	AttrNodeSuggestionTimestamp = "nodeSuggestionTimestamp"
	AttrNodeSuggestionOldData   = "nodeSuggestionOldData"
	AttrNodeSuggestionAction    = "nodeSuggestionAction"
)

// Values for AttrNodeSuggestionAction.
const (
	NodeActionInsert = "insert"
	NodeActionDelete = "delete"
)

var nodeSuggestionAttrs = []string{
	AttrNodeSuggestionID,
	AttrNodeSuggestionUserID,
	AttrNodeSuggestionThreadID,
	AttrNodeSuggestionTimestamp,
	AttrNodeSuggestionOldData,
	AttrNodeSuggestionAction,
}

// Only these block types may carry suggestion bookkeeping attributes.
var suggestionCapableTypes = map[string]struct{}{
	TypeParagraph:   {},
	TypeHeading:     {},
	TypeBulletList:  {},
	TypeOrderedList: {},
	TypeListItem:    {},
	TypeBlockquote:  {},
	TypeCodeBlock:   {},
	TypeTable:       {},
}

// SupportsNodeSuggestion reports whether the block type is on the
// allow-list for node suggestion attributes.
func SupportsNodeSuggestion(typ string) bool {
	_, ok := suggestionCapableTypes[typ]
	return ok
}

// HasNodeSuggestion reports whether the node carries a pending
// block-level suggestion.
func (n *Node) HasNodeSuggestion() bool {
	if n.Attrs == nil {
		return false
	}
	id, ok := n.Attrs[AttrNodeSuggestionID]
	if !ok {
		return false
	}
	s, _ := id.(string)
	return s != ""
}

// NodeSuggestionID returns the node's pending suggestion id, if any.
func (n *Node) NodeSuggestionID() string {
	if n.Attrs == nil {
		return ""
	}
	s, _ := n.Attrs[AttrNodeSuggestionID].(string)
	return s
}

// StripSuggestionAttrs returns attrs with all suggestion bookkeeping
// keys removed. Returns nil when nothing remains.
func StripSuggestionAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := CloneAttrs(attrs)
	for _, key := range nodeSuggestionAttrs {
		delete(out, key)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
