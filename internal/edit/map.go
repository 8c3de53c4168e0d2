package edit

// StepMap describes how one step moved document positions: the token
// range [Start, Start+OldSize) was replaced by NewSize tokens. Steps
// that do not move positions use the zero StepMap.
type StepMap struct {
	Start   int
	OldSize int
	NewSize int
}

// Map remaps a position through the step. assoc picks a side when the
// position sits exactly on an insertion point: negative stays before
// the inserted content, positive moves after it.
func (sm StepMap) Map(pos, assoc int) int {
	end := sm.Start + sm.OldSize
	if pos < sm.Start {
		return pos
	}
	if pos > end {
		return pos + sm.NewSize - sm.OldSize
	}
	side := assoc
	if sm.OldSize != 0 {
		switch pos {
		case sm.Start:
			side = -1
		case end:
			side = 1
		}
	}
	if side < 0 {
		return sm.Start
	}
	return sm.Start + sm.NewSize
}

// Mapping is the cumulative position mapping of an ordered step
// sequence, from the coordinates before the first step to the
// coordinates after the last.
type Mapping []StepMap

// Map remaps a position through every step in order.
func (m Mapping) Map(pos, assoc int) int {
	for _, sm := range m {
		pos = sm.Map(pos, assoc)
	}
	return pos
}
