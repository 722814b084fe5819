// Package content turns raw post text into HTML-safe titles and bodies
package content

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// LineBreak is inserted in front of every newline of a body
const LineBreak = "<br>\n"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeHTML replaces the five reserved HTML characters with named entities.
// strings.Replacer works in a single pass, so entities are never escaped twice.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// DefaultDivider matches a line made of five or more hyphens or em-dashes
var DefaultDivider = regexp.MustCompile(`(?m)^[-—]{5,}$`)

// DefaultNotice is the bilingual marker some pages put in front of their primary text
const DefaultNotice = "(請注意：中文內容設於下方)\n"

// DefaultDualLocaleSubjects are pages that append a second-language copy below a divider
var DefaultDualLocaleSubjects = []string{
	"108610093912972", // maimai DX International
	"100784445056884", // CHUNITHM International
}

// LocaleSplit keeps only the primary-language segment of posts from allowlisted subjects
type LocaleSplit struct {
	Subjects map[string]struct{}
	Divider  *regexp.Regexp
	Notice   string
}

// NewLocaleSplit builds a policy for the given subject ids with the default divider and notice
func NewLocaleSplit(subjects []string) LocaleSplit {
	return LocaleSplit{
		Subjects: lo.SliceToMap(subjects, func(s string) (string, struct{}) {
			return s, struct{}{}
		}),
		Divider: DefaultDivider,
		Notice:  DefaultNotice,
	}
}

// Applies reports whether posts of subjectID are split
func (l LocaleSplit) Applies(subjectID string) bool {
	_, ok := l.Subjects[subjectID]
	return ok
}

func (l LocaleSplit) apply(text string) string {
	if l.Divider != nil {
		if loc := l.Divider.FindStringIndex(text); loc != nil {
			text = text[:loc[0]]
		}
	}
	if l.Notice != "" {
		text = strings.Replace(text, l.Notice, "", 1)
	}
	return strings.TrimSpace(text)
}

// Normalized is an escaped title and a body ready for attachment markup
type Normalized struct {
	Title string
	Body  string
}

type Normalizer struct {
	split LocaleSplit
}

func NewNormalizer(split LocaleSplit) *Normalizer {
	return &Normalizer{split: split}
}

// Normalize escapes text, applies the locale split for allowlisted subjects and
// derives the title from the first paragraph.
func (n *Normalizer) Normalize(subjectID, text string) Normalized {
	text = strings.TrimSpace(EscapeHTML(text))

	if n.split.Applies(subjectID) {
		text = n.split.apply(text)
	}

	title, _, _ := strings.Cut(text, "\n\n")

	return Normalized{
		Title: title,
		Body:  strings.ReplaceAll(text, "\n", LineBreak),
	}
}

// NormalizeTweet escapes text and takes the first line as the title
func NormalizeTweet(text string) Normalized {
	text = strings.TrimSpace(EscapeHTML(text))
	title, _, _ := strings.Cut(text, "\n")

	return Normalized{
		Title: title,
		Body:  strings.ReplaceAll(text, "\n", LineBreak),
	}
}
