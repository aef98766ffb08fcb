package sqlite

import "strings"

// ftsMatch turns free text into an FTS5 query: every whitespace-separated
// term must appear, and each term is quoted so punctuation in user input is
// never parsed as FTS syntax. A trailing '*' on a term keeps prefix search.
func ftsMatch(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		prefix := strings.HasSuffix(term, "*")
		term = strings.TrimRight(term, "*")
		if term == "" {
			continue
		}
		q := `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
		if prefix {
			q += "*"
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " ")
}
