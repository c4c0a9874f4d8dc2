package reconcile

// Salvage describes a damaged column-store page's repair plan: how many leading records are
// unrecoverable (Missing, filled with zero/deleted placeholders), how many leading records to
// drop (Skip), how many of the remainder to keep (Take), and whether this is the last salvaged
// chunk for the page (Done).
type Salvage struct {
	Missing int64
	Skip    int64
	Take    int64
	Done    bool
}

// Apply trims page.Records to the salvage plan and, for COL_FIX and COL_VAR, prepends Missing
// deleted placeholder records ahead of RecnoStart. COL_FIX writes them as zero-valued records;
// walkColVar's RLE machinery collapses them into a single deleted-run cell of count Missing.
func (s *Salvage) Apply(page *Page) {
	if s.Skip > 0 || s.Take > 0 {
		start := 0
		end := len(page.Records)
		if s.Skip > 0 && int64(len(page.Records)) > s.Skip {
			start = int(s.Skip)
		}
		if s.Take > 0 && int64(start)+s.Take < int64(len(page.Records)) {
			end = start + int(s.Take)
		}
		page.Records = page.Records[start:end]
	}

	if s.Missing <= 0 {
		return
	}

	switch page.Type {
	case ColFix, ColVar:
		placeholders := make([]ColumnRecord, s.Missing)
		recno := page.RecnoStart - s.Missing
		for i := range placeholders {
			placeholders[i] = ColumnRecord{Recno: recno + int64(i), Deleted: true}
		}
		page.Records = append(placeholders, page.Records...)
		page.RecnoStart -= s.Missing
	}
}
