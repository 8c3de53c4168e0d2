package track

import (
	"fmt"
	"sort"
	"strings"

	"chronicle/suggest/internal/doc"
)

// describeMarkChange renders a human-readable label for an inline
// formatting change, e.g. "Bold", "Remove Italic" or
// "Font: Arial, Size: 14pt". Multiple attribute changes carried by one
// mark fold into a single description.
func describeMarkChange(m doc.Mark, removed bool) string {
	label := describeMark(m)
	if removed {
		return "Remove " + label
	}
	return label
}

func describeMark(m doc.Mark) string {
	switch m.Type {
	case "bold":
		return "Bold"
	case "italic":
		return "Italic"
	case "underline":
		return "Underline"
	case "strike":
		return "Strikethrough"
	case "code":
		return "Code"
	case "link":
		return "Link"
	case "highlight":
		if color, ok := m.Attrs["color"].(string); ok && color != "" {
			return fmt.Sprintf("Highlight (%s)", color)
		}
		return "Highlight"
	case "textStyle":
		if parts := describeTextStyle(m.Attrs); len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
		return "Text style"
	default:
		return genericLabel(m.Type)
	}
}

func describeTextStyle(attrs map[string]any) []string {
	var parts []string
	if family, ok := attrs["fontFamily"].(string); ok && family != "" {
		parts = append(parts, "Font: "+family)
	}
	if size, ok := attrs["fontSize"].(string); ok && size != "" {
		parts = append(parts, "Size: "+size)
	}
	if color, ok := attrs["color"].(string); ok && color != "" {
		parts = append(parts, "Color: "+color)
	}
	// Unknown styling attrs still deserve a stable mention.
	var rest []string
	for key := range attrs {
		switch key {
		case "fontFamily", "fontSize", "color":
		default:
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		parts = append(parts, fmt.Sprintf("%s: %v", genericLabel(key), attrs[key]))
	}
	return parts
}

// describeNode renders the label for a block node's new state, e.g.
// "Heading 1", "Bulleted list" or "Normal text" for a plain paragraph.
func describeNode(n *doc.Node) string {
	var parts []string
	switch n.Type {
	case doc.TypeHeading:
		level := 1
		if lvl, ok := numberAttr(n.Attrs, "level"); ok {
			level = lvl
		}
		parts = append(parts, fmt.Sprintf("Heading %d", level))
	case doc.TypeParagraph:
		parts = append(parts, "Normal text")
	case doc.TypeBulletList:
		parts = append(parts, "Bulleted list")
	case doc.TypeOrderedList:
		parts = append(parts, "Numbered list")
	case doc.TypeListItem:
		parts = append(parts, "List item")
	case doc.TypeBlockquote:
		parts = append(parts, "Block quote")
	case doc.TypeCodeBlock:
		parts = append(parts, "Code block")
	case doc.TypeTable:
		parts = append(parts, "Table")
	default:
		parts = append(parts, genericLabel(n.Type))
	}
	if align, ok := n.Attrs["textAlign"].(string); ok && align != "" {
		parts = append(parts, "Align "+align)
	}
	if height, ok := n.Attrs["lineHeight"]; ok && height != nil {
		parts = append(parts, fmt.Sprintf("Line height: %v", height))
	}
	return strings.Join(parts, ", ")
}

func numberAttr(attrs map[string]any, key string) (int, bool) {
	switch v := attrs[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// genericLabel turns a camelCase type name into a capitalized label,
// the fallback for mark and node types the engine does not know.
func genericLabel(name string) string {
	if name == "" {
		return "Formatting"
	}
	var b strings.Builder
	for i, r := range name {
		if i == 0 {
			b.WriteRune(toUpper(r))
			continue
		}
		if r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
			b.WriteRune(toLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r - 'A' + 'a'
	}
	return r
}
