// Package edit models atomic document edits: steps, the batches that
// group them, and the position mapping a batch induces. It is the
// interface boundary between the editing core and the tracking engine.
package edit

import "chronicle/suggest/internal/doc"

// Step is one atomic mutation of the document tree.
type Step interface {
	// Apply produces the next document version and the position map
	// for this step. The input document is never modified.
	Apply(d *doc.Node) (*doc.Node, StepMap, error)
}

// ReplaceRangeStep replaces the token range [From, To) with Insert.
// Both plain typing and structural changes (wrapping, unwrapping,
// changing a block's type) arrive as this step.
type ReplaceRangeStep struct {
	From   int
	To     int
	Insert []doc.Token
}

func (s ReplaceRangeStep) Apply(d *doc.Node) (*doc.Node, StepMap, error) {
	next, err := doc.ReplaceRange(d, s.From, s.To, s.Insert)
	if err != nil {
		return nil, StepMap{}, err
	}
	return next, StepMap{Start: s.From, OldSize: s.To - s.From, NewSize: len(s.Insert)}, nil
}

// AddMarkStep applies a mark over [From, To).
type AddMarkStep struct {
	From int
	To   int
	Mark doc.Mark
}

func (s AddMarkStep) Apply(d *doc.Node) (*doc.Node, StepMap, error) {
	next, err := doc.AddMark(d, s.From, s.To, s.Mark)
	if err != nil {
		return nil, StepMap{}, err
	}
	return next, StepMap{}, nil
}

// RemoveMarkStep strips marks matching Mark.Type over [From, To).
type RemoveMarkStep struct {
	From int
	To   int
	Mark doc.Mark
}

func (s RemoveMarkStep) Apply(d *doc.Node) (*doc.Node, StepMap, error) {
	next, err := doc.RemoveMark(d, s.From, s.To, s.Mark.Type)
	if err != nil {
		return nil, StepMap{}, err
	}
	return next, StepMap{}, nil
}

// SetBlockStep rewrites the type and attrs of the block opening at
// Pos, keeping its content. Only system transactions (suggestion
// stamping, accept/reject) dispatch this step.
type SetBlockStep struct {
	Pos       int
	BlockType string
	Attrs     map[string]any
}

func (s SetBlockStep) Apply(d *doc.Node) (*doc.Node, StepMap, error) {
	next, err := doc.SetBlockHeader(d, s.Pos, s.BlockType, s.Attrs)
	if err != nil {
		return nil, StepMap{}, err
	}
	return next, StepMap{}, nil
}
