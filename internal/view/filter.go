package view

import "expenses/internal/core"

// AllCategories is the filter that selects every record. It exists only in
// the view and is never a valid record category.
const AllCategories = "All Categories"

// FilterOptions lists AllCategories followed by every record category.
func FilterOptions() []string {
	cats := core.Categories()
	out := make([]string, 0, len(cats)+1)
	out = append(out, AllCategories)
	for _, c := range cats {
		out = append(out, string(c))
	}
	return out
}

// CycleFilter returns the option step places after current, wrapping
// around. Unknown values start from AllCategories.
func CycleFilter(current string, step int) string {
	opts := FilterOptions()
	i := 0
	for j, o := range opts {
		if o == current {
			i = j
			break
		}
	}
	n := len(opts)
	return opts[((i+step)%n+n)%n]
}
