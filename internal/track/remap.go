package track

import "chronicle/suggest/internal/edit"

// Remap expresses a record recorded before a batch in that batch's
// post-state coordinates. Boundaries map with a bias toward staying
// before content inserted exactly at them, so a zero-width insertion
// at a record's start joins the record (the merger then extends it)
// instead of orphaning it. Delete records carry only their anchor.
func Remap(r Record, m edit.Mapping) Record {
	switch rec := r.(type) {
	case Insert:
		rec.From = m.Map(rec.From, -1)
		rec.To = m.Map(rec.To, -1)
		return rec
	case Delete:
		anchor := m.Map(rec.From, -1)
		rec.From = anchor
		rec.To = anchor
		return rec
	case Replace:
		rec.InsertFrom = m.Map(rec.InsertFrom, -1)
		rec.InsertTo = m.Map(rec.InsertTo, -1)
		rec.From = m.Map(rec.From, -1)
		return rec
	case Format:
		rec.From = m.Map(rec.From, -1)
		rec.To = m.Map(rec.To, -1)
		return rec
	case NodeFormat:
		rec.Pos = m.Map(rec.Pos, -1)
		return rec
	default:
		return r
	}
}

// RemapAll remaps every record in order.
func RemapAll(records []Record, m edit.Mapping) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Remap(r, m)
	}
	return out
}
