package edit

import (
	"fmt"

	"chronicle/suggest/internal/doc"
)

// Origin tags a batch with where it came from. The tracking engine
// only extracts changes from local batches; remote and system batches
// pass through untracked.
type Origin string

const (
	OriginLocal        Origin = "local"
	OriginRemote       Origin = "remote"
	OriginMaterialize  Origin = "system:materialize"
	OriginThreadLink   Origin = "system:threadLinkUpdate"
	OriginAcceptReject Origin = "system:accept-reject"
)

// IsSystem reports whether the batch was produced by the engine
// itself rather than by a user or the sync layer.
func (o Origin) IsSystem() bool {
	switch o {
	case OriginMaterialize, OriginThreadLink, OriginAcceptReject:
		return true
	}
	return false
}

// Batch is an applied, ordered list of steps together with every
// intermediate document state and the per-step position maps.
type Batch struct {
	Origin   Origin
	AuthorID string
	Steps    []Step

	docs []*doc.Node // len(Steps)+1; docs[i] is the state before step i
	maps Mapping     // len(Steps); maps[i] belongs to step i
}

// Apply runs the steps against d in order and returns the batch. If
// any step fails to replay, no batch is produced and d stays the
// current document.
func Apply(d *doc.Node, origin Origin, authorID string, steps []Step) (*Batch, error) {
	b := &Batch{
		Origin:   origin,
		AuthorID: authorID,
		Steps:    steps,
		docs:     make([]*doc.Node, 0, len(steps)+1),
		maps:     make(Mapping, 0, len(steps)),
	}
	b.docs = append(b.docs, d)
	cur := d
	for i, step := range steps {
		next, sm, err := step.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("apply step %d: %w", i, err)
		}
		b.docs = append(b.docs, next)
		b.maps = append(b.maps, sm)
		cur = next
	}
	return b, nil
}

// Before is the document state the batch started from.
func (b *Batch) Before() *doc.Node { return b.docs[0] }

// After is the final document state.
func (b *Batch) After() *doc.Node { return b.docs[len(b.docs)-1] }

// DocBefore is the document state before step i.
func (b *Batch) DocBefore(i int) *doc.Node { return b.docs[i] }

// DocAfter is the document state after step i.
func (b *Batch) DocAfter(i int) *doc.Node { return b.docs[i+1] }

// StepMap is the position map of step i alone.
func (b *Batch) StepMap(i int) StepMap { return b.maps[i] }

// Mapping is the cumulative pre-batch to post-batch position mapping.
func (b *Batch) Mapping() Mapping { return b.maps }

// MappingAfter is the cumulative mapping of the steps following step
// i, used to express a step's coordinates in the batch's final state.
func (b *Batch) MappingAfter(i int) Mapping { return b.maps[i+1:] }

// Changed reports whether the batch produced a different document.
func (b *Batch) Changed() bool { return len(b.Steps) > 0 }
