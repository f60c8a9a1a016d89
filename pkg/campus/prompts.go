package campus

import (
	"fmt"
	"strings"
)

// Prompts for the free-text paths spell out the delimiter scheme the extractor
// expects. Keep them public-safe: no secrets, no student data beyond the
// caller-supplied names.

func programsPrompt(university string) string {
	return strings.TrimSpace(fmt.Sprintf(`
List the degree programs currently offered by %s.

Rules:
- Return ONLY the program names, separated by |||.
- No numbering, no commentary, no extra text.
- Example: Computer Science|||Economics|||Law
`, university))
}

func newsPrompt(university string) string {
	return strings.TrimSpace(fmt.Sprintf(`
Find %d recent news items about %s.

Return each item as exactly 4 fields separated by | in this order:
headline | date (YYYY-MM-DD) | one-sentence snippet | link

Separate items with |||. Return nothing else.
`, maxNews, university))
}

func subjectsPrompt(program, level, university string) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are an academic advisor. List the %d most important curriculum subjects for
a %s student at %s level at %s.

For each subject provide:
- code: the course code as used by the institution (or a plausible one)
- title: the course title
- description: one sentence on what the course covers
`, maxSubjects, program, level, university))
}

func booksPrompt(program, level string) string {
	return strings.TrimSpace(fmt.Sprintf(`
Recommend 6 books for a %s student at %s level.

Return each book as exactly 4 fields separated by $$ in this order:
title $$ author $$ one-sentence description $$ link

Separate books with |||. Return nothing else.
`, program, level))
}

func searchBooksPrompt(query string) string {
	return strings.TrimSpace(fmt.Sprintf(`
Find books matching this search: %q

Return each book as exactly 4 fields separated by $$ in this order:
title $$ author $$ one-sentence description $$ link

Separate books with |||. Return nothing else.
`, query))
}
