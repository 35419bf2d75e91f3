package analyzer

import "strings"

// Occurrences counts how many times name appears in the raw source text.
// Substrings of longer identifiers, string literals and comments all count;
// nothing here is scope-aware.
func Occurrences(source, name string) int {
	if name == "" {
		return 0
	}
	return strings.Count(source, name)
}

// OccursOnce reports whether name appears exactly once in source, i.e.
// only at its own declaration.
func OccursOnce(source, name string) bool {
	return Occurrences(source, name) == 1
}

func isExported(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

func isDunder(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}
