package model

import "strings"

type CommandEntry struct {
	ID            int64
	Trigger       string
	Description   string
	Response      string
	ImageURL      string
	InlineLinks   []InlineLink
	MarkupButtons []string
	IsCommand     bool
	AdminOnly     bool
}

type InlineLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// NormalizeCommandTrigger is applied to slash-style triggers both when they are
// stored and when they are looked up. Words after the command are part of the
// trigger: "/promo now" and "/promo@bot now" both become "promo_now".
func NormalizeCommandTrigger(raw string) string {
	t := strings.TrimSpace(raw)
	t = strings.TrimPrefix(t, "/")
	if i := strings.IndexByte(t, '@'); i > 0 && !strings.ContainsAny(t[:i], " \t") {
		end := strings.IndexAny(t[i:], " \t")
		if end < 0 {
			t = t[:i]
		} else {
			t = t[:i] + t[i+end:]
		}
	}
	t = strings.ToLower(t)
	return strings.Join(strings.Fields(t), "_")
}

// NormalizeTextTrigger keeps inner spaces; free-text triggers are only
// lowercased and trimmed.
func NormalizeTextTrigger(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func NormalizeTrigger(raw string, isCommand bool) string {
	if isCommand {
		return NormalizeCommandTrigger(raw)
	}
	return NormalizeTextTrigger(raw)
}
