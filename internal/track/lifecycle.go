package track

import (
	"encoding/json"
	"sort"

	"chronicle/suggest/internal/doc"
	"chronicle/suggest/internal/edit"
)

// suggestionSpans is everything in the live document carrying one
// suggestion id: inserted-text runs, restored-deleted-text runs, and
// stamped block nodes. Collected by scanning at decision time.
type suggestionSpans struct {
	inserts []doc.TextRun
	deletes []doc.TextRun
	nodes   []blockRef
}

func (s suggestionSpans) empty() bool {
	return len(s.inserts) == 0 && len(s.deletes) == 0 && len(s.nodes) == 0
}

func collectSuggestion(d *doc.Node, suggestionID string) suggestionSpans {
	var spans suggestionSpans
	for _, run := range doc.RunsBetween(d, 0, d.ContentSize()) {
		for _, mark := range run.Marks {
			if id, _ := mark.Attrs[doc.MarkAttrSuggestionID].(string); id != suggestionID {
				continue
			}
			switch mark.Type {
			case doc.MarkSuggestionInsert:
				spans.inserts = append(spans.inserts, run)
			case doc.MarkSuggestionDelete:
				spans.deletes = append(spans.deletes, run)
			}
		}
	}
	doc.WalkBlocks(d, func(pos int, n *doc.Node) bool {
		if n.NodeSuggestionID() == suggestionID {
			spans.nodes = append(spans.nodes, blockRef{pos: pos, node: n})
			return false
		}
		return true
	})
	return spans
}

// acceptSteps collapses a suggestion into its proposed content: new
// text keeps its place and loses the mark, restored deleted text
// goes away, stamped nodes keep their current shape.
func acceptSteps(spans suggestionSpans) []edit.Step {
	var ops []positionedStep
	for _, run := range spans.inserts {
		ops = append(ops, positionedStep{run.From, edit.RemoveMarkStep{
			From: run.From, To: run.To, Mark: doc.Mark{Type: doc.MarkSuggestionInsert},
		}})
	}
	for _, run := range spans.deletes {
		ops = append(ops, positionedStep{run.From, edit.ReplaceRangeStep{From: run.From, To: run.To}})
	}
	for _, ref := range spans.nodes {
		ops = append(ops, positionedStep{ref.pos, edit.SetBlockStep{
			Pos:       ref.pos,
			BlockType: ref.node.Type,
			Attrs:     doc.StripSuggestionAttrs(ref.node.Attrs),
		}})
	}
	return orderBottomUp(ops)
}

// rejectSteps restores the pre-edit content: new text goes away,
// restored deleted text keeps its place with its original marks, and
// stamped nodes revert to the recorded {type, attrs} snapshot.
func rejectSteps(spans suggestionSpans) []edit.Step {
	var ops []positionedStep
	for _, run := range spans.inserts {
		ops = append(ops, positionedStep{run.From, edit.ReplaceRangeStep{From: run.From, To: run.To}})
	}
	for _, run := range spans.deletes {
		ops = append(ops, positionedStep{run.From, edit.RemoveMarkStep{
			From: run.From, To: run.To, Mark: doc.Mark{Type: doc.MarkSuggestionDelete},
		}})
	}
	for _, ref := range spans.nodes {
		ops = append(ops, positionedStep{ref.pos, restoreNodeStep(ref)})
	}
	return orderBottomUp(ops)
}

// restoreNodeStep reverts a stamped node from its recorded snapshot.
// Missing or corrupt snapshot data degrades to stripping the
// bookkeeping attributes, never to a failure.
func restoreNodeStep(ref blockRef) edit.Step {
	raw, _ := ref.node.Attrs[doc.AttrNodeSuggestionOldData].(string)
	var snapshot struct {
		Type  string         `json:"type"`
		Attrs map[string]any `json:"attrs"`
	}
	if raw == "" || json.Unmarshal([]byte(raw), &snapshot) != nil || snapshot.Type == "" {
		return edit.SetBlockStep{
			Pos:       ref.pos,
			BlockType: ref.node.Type,
			Attrs:     doc.StripSuggestionAttrs(ref.node.Attrs),
		}
	}
	return edit.SetBlockStep{Pos: ref.pos, BlockType: snapshot.Type, Attrs: snapshot.Attrs}
}

// orderBottomUp sorts mutations in reverse document order so earlier
// deletions cannot invalidate later positions.
func orderBottomUp(ops []positionedStep) []edit.Step {
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].pos > ops[j].pos })
	steps := make([]edit.Step, len(ops))
	for i, op := range ops {
		steps[i] = op.step
	}
	return steps
}
