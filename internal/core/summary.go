package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Summary is the aggregate view of a ledger.
type Summary struct {
	Count      int
	Total      Money
	ByCategory []CategoryAmount
}

// Summarize totals records by category in a single pass. Categories keep
// the order in which they first appear.
func Summarize(records []Record) Summary {
	var s Summary
	index := make(map[string]int)
	for _, r := range records {
		s.Count++
		s.Total = s.Total.Add(r.Amount)
		i, ok := index[r.Category]
		if !ok {
			i = len(s.ByCategory)
			index[r.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{Name: r.Category})
		}
		s.ByCategory[i].Amount = s.ByCategory[i].Amount.Add(r.Amount)
	}
	return s
}
