package record

// BlockReport summarizes one named block for `check`.
type BlockReport struct {
	Name       string
	Span       Span
	Records    []Record
	Duplicates []int // ids that appear more than once
	Gaps       []int // ids missing from 1..max
	Dense      bool  // ids are exactly 1..n in block order
	Err        error // locate or parse failure; other fields are empty
	Skipped    bool  // exported array that does not hold records
}

// Inspect parses every named block in doc. A block that fails to parse is
// reported with Err set; the other blocks are still inspected. Exported
// arrays that do not hold records are reported with Skipped set.
func (p *Patcher) Inspect(doc string) []BlockReport {
	var reports []BlockReport
	for _, a := range namedArrays(doc) {
		name := a.name
		rep := BlockReport{Name: name}
		if !a.records {
			rep.Skipped = true
			reports = append(reports, rep)
			continue
		}
		span, err := LocateBlock(doc, name)
		if err != nil {
			rep.Err = err
			reports = append(reports, rep)
			continue
		}
		rep.Span = span
		records, err := ParseRecords(span.Inner(doc), p.Schema)
		if err != nil {
			rep.Err = annotate(err, name, 0, "", span.InnerStart)
			reports = append(reports, rep)
			continue
		}
		rep.Records = records
		rep.Duplicates = duplicateIDs(records)
		rep.Gaps = idGaps(records)
		rep.Dense = isDense(records)
		reports = append(reports, rep)
	}
	return reports
}

// OK reports whether the block holds records that parsed with dense, unique
// ids. Skipped arrays are not OK.
func (r BlockReport) OK() bool {
	return r.Err == nil && r.Dense
}

func idGaps(records []Record) []int {
	if len(records) == 0 {
		return nil
	}
	present := make(map[int]bool, len(records))
	maxID := 0
	for _, r := range records {
		present[r.ID] = true
		maxID = max(maxID, r.ID)
	}
	var gaps []int
	for id := 1; id <= maxID; id++ {
		if !present[id] {
			gaps = append(gaps, id)
		}
	}
	return gaps
}

func isDense(records []Record) bool {
	for i, r := range records {
		if r.ID != i+1 {
			return false
		}
	}
	return true
}
