package services

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"
)

const DraftSystemPrompt = `You write follow-up emails after business meetings.
Write in the first person as the meeting organiser. Be concise and specific:
thank attendees, summarise decisions, list action items with owners and dates
when the transcript states them. Never invent facts that are not in the transcript.
Reply with the email only, starting with a line "Subject: <subject>" followed by
a blank line and the body.`

// maxTranscriptChars bounds the transcript passed to the completion service.
const maxTranscriptChars = 120_000

// maxInstructionChars bounds the rendered caller template.
const maxInstructionChars = 8_000

var voices = map[string]string{
	"formal":   "Use a formal, professional tone.",
	"friendly": "Use a warm, friendly tone.",
	"brief":    "Keep it very short: at most five sentences plus action items.",
}

var draftPrompt = template.Must(template.New("draft").Funcs(template.FuncMap{"join": strings.Join}).Parse(`Meeting topic: {{if .Topic}}{{.Topic}}{{else}}(untitled meeting){{end}}
{{- if .Attendees}}
Attendees: {{join .Attendees ", "}}
{{- end}}
{{- if .Voice}}

Tone: {{.Voice}}
{{- end}}
{{- if .Instructions}}

Additional instructions from the sender:
{{.Instructions}}
{{- end}}

Transcript:
"""
{{.Transcript}}
"""
{{- if .Truncated}}
(The transcript was truncated.)
{{- end}}

Write the follow-up email now.`))

type promptData struct {
	Topic        string
	Attendees    []string
	Voice        string
	Instructions string
	Transcript   string
	Truncated    bool
}

// BuildDraftPrompt renders the user prompt. A caller supplied template may
// reference {{.Topic}} and {{.Attendees}}; nothing else is evaluated.
func BuildDraftPrompt(in DraftContext) (string, error) {
	data := promptData{
		Topic:      strings.TrimSpace(in.Topic),
		Attendees:  in.Attendees,
		Transcript: strings.TrimSpace(in.Transcript),
	}
	if len(data.Transcript) > maxTranscriptChars {
		cut := maxTranscriptChars
		for cut > 0 && !utf8.RuneStart(data.Transcript[cut]) {
			cut--
		}
		data.Transcript = data.Transcript[:cut]
		data.Truncated = true
	}

	if in.Voice != "" {
		v, ok := voices[strings.ToLower(in.Voice)]
		if !ok {
			return "", fmt.Errorf("unknown voice %q", in.Voice)
		}
		data.Voice = v
	}

	if in.Template != "" {
		instructions, err := expandTemplate(in.Template, map[string]string{
			"Topic":     data.Topic,
			"Attendees": strings.Join(data.Attendees, ", "),
		})
		if err != nil {
			return "", err
		}
		data.Instructions = strings.TrimSpace(instructions)
	}

	var out bytes.Buffer
	if err := draftPrompt.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out.String(), nil
}

// expandTemplate substitutes {{.Name}} placeholders from fields. Any other
// action is rejected, so the output is linear in the input.
func expandTemplate(tmpl string, fields map[string]string) (string, error) {
	var b strings.Builder
	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return "", fmt.Errorf("parse template: unterminated placeholder at %q", rest[start:])
		}
		action := strings.TrimSpace(rest[start+2 : start+end])
		value, ok := fields[strings.TrimPrefix(action, ".")]
		if !ok || !strings.HasPrefix(action, ".") {
			return "", fmt.Errorf("parse template: unknown placeholder {{%s}}", action)
		}
		b.WriteString(value)
		if b.Len() > maxInstructionChars {
			return "", fmt.Errorf("render template: exceeds %d bytes", maxInstructionChars)
		}
		rest = rest[start+end+2:]
	}
	if b.Len() > maxInstructionChars {
		return "", fmt.Errorf("render template: exceeds %d bytes", maxInstructionChars)
	}
	return b.String(), nil
}
