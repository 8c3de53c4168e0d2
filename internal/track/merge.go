package track

// AppendRecord adds next to an ordered record list, coalescing it into
// the immediately preceding record when the two describe one logical
// change. Append position is chronological.
func AppendRecord(records []Record, next Record) []Record {
	if len(records) > 0 {
		if merged, ok := mergePair(records[len(records)-1], next); ok {
			records[len(records)-1] = merged
			return records
		}
	}
	return append(records, next)
}

// AppendRecords folds a batch's records into the accumulated list.
func AppendRecords(records []Record, batch []Record) []Record {
	for _, r := range batch {
		records = AppendRecord(records, r)
	}
	return records
}

func mergePair(prev, next Record) (Record, bool) {
	switch p := prev.(type) {
	case Insert:
		// Typing continuing right after earlier typing.
		if n, ok := next.(Insert); ok && p.To == n.From {
			p.To = n.To
			p.Text += n.Text
			return p, true
		}
	case Replace:
		// Typing continuing right after a replacement grows its new
		// text rather than opening a second record.
		if n, ok := next.(Insert); ok && p.InsertTo == n.From {
			p.InsertTo = n.To
			p.NewText += n.Text
			if p.From == n.From {
				p.From = n.To
			}
			return p, true
		}
	case Delete:
		// Successive backspaces converge at one anchor; the newer
		// deletion is logically to the left of the earlier one.
		if n, ok := next.(Delete); ok && p.From == n.From {
			p.Text = n.Text + p.Text
			return p, true
		}
	case Format:
		if n, ok := next.(Format); ok && p.From == n.From && p.To == n.To {
			p.Description = p.Description + ", " + n.Description
			// First-captured runs stay: they reflect the true
			// pre-change formatting.
			return p, true
		}
	case NodeFormat:
		if n, ok := next.(NodeFormat); ok && p.Pos == n.Pos {
			p.Description = p.Description + ", " + n.Description
			return p, true
		}
	}
	return nil, false
}
