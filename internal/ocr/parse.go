package ocr

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	namePattern  = regexp.MustCompile(`(?i)^\s*(?:nome|name|aluno|aluna|student)\s*[:\-]\s*(.+?)\s*$`)
	idPattern    = regexp.MustCompile(`(?i)^\s*(?:matr[ií]cula|ra|id|student\s*id)\s*[:\-#]\s*([A-Za-z0-9.\-/]+)`)
)

// ParseHeader extracts labelled fields from recognised header text. Labels
// may be Portuguese or English ("Nome:", "Name:", "Matrícula:", "ID:").
// Unlabelled text is ignored; an email is recognised anywhere.
func ParseHeader(text string) StudentInfo {
	var info StudentInfo
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if info.Email == "" {
			if m := emailPattern.FindString(line); m != "" {
				info.Email = strings.ToLower(m)
				line = strings.TrimSpace(strings.Replace(line, m, "", 1))
			}
		}
		if info.Name == "" {
			if m := namePattern.FindStringSubmatch(line); m != nil {
				info.Name = cleanName(m[1])
				continue
			}
		}
		if info.StudentID == "" {
			if m := idPattern.FindStringSubmatch(line); m != nil {
				info.StudentID = m[1]
			}
		}
	}
	return info
}

// cleanName drops trailing labels that OCR merged into the name line and
// collapses whitespace.
func cleanName(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		lower := strings.ToLower(strings.TrimRight(f, ":"))
		if lower == "matrícula" || lower == "matricula" || lower == "ra" || lower == "id" || lower == "email" || lower == "e-mail" {
			fields = fields[:i]
			break
		}
	}
	return strings.Join(fields, " ")
}
