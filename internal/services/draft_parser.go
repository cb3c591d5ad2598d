package services

import (
	"strings"
)

const subjectPrefix = "subject:"

// ParseDraft splits completion output into a subject and a body. Text
// before the first "Subject:" line is dropped. Without one, the whole
// output is the body and the subject is empty.
func ParseDraft(text string) (subject, body string) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < len(subjectPrefix) || !strings.EqualFold(trimmed[:len(subjectPrefix)], subjectPrefix) {
			continue
		}
		subject = strings.TrimSpace(trimmed[len(subjectPrefix):])

		rest := lines[i+1:]
		for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
			rest = rest[1:]
		}
		return subject, strings.TrimSpace(strings.Join(rest, "\n"))
	}
	return "", strings.TrimSpace(text)
}
