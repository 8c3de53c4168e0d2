package track

import (
	"reflect"

	"chronicle/suggest/internal/doc"
	"chronicle/suggest/internal/edit"
)

// DefaultExcludedMarks lists mark types unrelated to review, such as a
// plain comment highlight. Batches touching only these marks advance
// the baseline without producing records.
func DefaultExcludedMarks() map[string]struct{} {
	return map[string]struct{}{
		"comment": {},
	}
}

// Extractor turns an edit batch into semantic change records.
type Extractor struct {
	// ExcludedMarks are mark types whose add/remove steps pass
	// through without producing a Format record.
	ExcludedMarks map[string]struct{}
}

// Extract derives the batch's change records, expressed in the
// coordinates of the batch's final document state and already merged
// with each other. Fragments the engine does not understand are
// skipped; the rest of the batch still extracts.
func (e *Extractor) Extract(b *edit.Batch) []Record {
	var records []Record
	for i, step := range b.Steps {
		var stepRecords []Record
		switch s := step.(type) {
		case edit.ReplaceRangeStep:
			stepRecords = e.extractReplace(b, i, s)
		case edit.AddMarkStep:
			stepRecords = e.extractMark(b, i, s.From, s.To, s.Mark, false)
		case edit.RemoveMarkStep:
			stepRecords = e.extractMark(b, i, s.From, s.To, s.Mark, true)
		default:
			// Unknown step kinds advance the document without records.
			continue
		}
		rest := b.MappingAfter(i)
		for _, rec := range stepRecords {
			records = AppendRecord(records, Remap(rec, rest))
		}
	}
	return records
}

func (e *Extractor) extractReplace(b *edit.Batch, i int, s edit.ReplaceRangeStep) []Record {
	pre := b.DocBefore(i)
	post := b.DocAfter(i)
	deleted := doc.TextBetween(pre, s.From, s.To)
	insertEnd := s.From + len(s.Insert)
	inserted := doc.TextBetween(post, s.From, insertEnd)

	switch {
	case deleted != "" && inserted != "" && deleted != inserted:
		return []Record{Replace{
			From:       insertEnd,
			InsertFrom: s.From,
			InsertTo:   insertEnd,
			OldText:    deleted,
			NewText:    inserted,
		}}
	case deleted != "" && inserted == "":
		return []Record{Delete{From: s.From, To: s.From, Text: deleted}}
	case inserted != "" && deleted == "":
		return []Record{Insert{From: s.From, To: insertEnd, Text: inserted}}
	}

	// No text-level record. If the document still changed this was a
	// pure restructuring, visible only at the block level.
	if reflect.DeepEqual(pre, post) {
		return nil
	}
	return extractNodeFormats(pre, post, s)
}

func (e *Extractor) extractMark(b *edit.Batch, i, from, to int, m doc.Mark, removed bool) []Record {
	if doc.IsSuggestionMark(m.Type) {
		return nil
	}
	if _, excluded := e.ExcludedMarks[m.Type]; excluded {
		return nil
	}
	pre := b.DocBefore(i)
	text := doc.TextBetween(pre, from, to)
	if text == "" {
		return nil
	}
	runs := doc.RunsBetween(pre, from, to)
	for idx := range runs {
		runs[idx].Marks = doc.WithoutSuggestionMarks(runs[idx].Marks)
	}
	return []Record{Format{
		From:        from,
		To:          to,
		Text:        text,
		Description: describeMarkChange(m, removed),
		OldRuns:     runs,
	}}
}

type blockRef struct {
	pos  int
	node *doc.Node
}

// extractNodeFormats compares the allow-listed block nodes spanned by
// the step before and after it ran, pairing them in document order. A
// changed {type, attrs} pair, with suggestion bookkeeping stripped on
// both sides, yields one NodeFormat for the whole block; descendants
// of a changed block never produce their own record.
func extractNodeFormats(pre, post *doc.Node, s edit.ReplaceRangeStep) []Record {
	preRefs := blocksInRange(pre, s.From, s.To)
	postRefs := blocksInRange(post, s.From, s.From+len(s.Insert))

	type change struct {
		rec  NodeFormat
		pos  int
		size int
	}
	var changes []change
	for idx, ref := range postRefs {
		if idx >= len(preRefs) {
			break
		}
		old := preRefs[idx]
		oldType := old.node.Type
		oldAttrs := doc.StripSuggestionAttrs(old.node.Attrs)
		newAttrs := doc.StripSuggestionAttrs(ref.node.Attrs)
		if oldType == ref.node.Type && reflect.DeepEqual(oldAttrs, newAttrs) {
			continue
		}
		changes = append(changes, change{
			rec: NodeFormat{
				Pos:         ref.pos,
				Description: describeNode(ref.node),
				OldType:     oldType,
				OldAttrs:    oldAttrs,
			},
			pos:  ref.pos,
			size: ref.node.Size(),
		})
	}

	// One record per block: drop changes nested inside another change.
	var records []Record
	for i, c := range changes {
		nested := false
		for j, outer := range changes {
			if i == j {
				continue
			}
			if outer.pos < c.pos && c.pos < outer.pos+outer.size {
				nested = true
				break
			}
		}
		if !nested {
			records = append(records, c.rec)
		}
	}
	return records
}

func blocksInRange(d *doc.Node, from, to int) []blockRef {
	var refs []blockRef
	doc.WalkBlocks(d, func(pos int, n *doc.Node) bool {
		end := pos + n.Size()
		if end < from || pos > to {
			return pos <= to
		}
		if doc.SupportsNodeSuggestion(n.Type) {
			refs = append(refs, blockRef{pos: pos, node: n})
		}
		return true
	})
	return refs
}
