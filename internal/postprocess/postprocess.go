// Package postprocess strips what polishing models wrap around the Khmer
// text they were asked to return: reasoning blocks, a leading "here is the
// edited text" line in English or Khmer, a markdown fence and outer quotes.
package postprocess

import (
	"regexp"
	"strings"
)

// steps run in order; each one sees the trimmed output of the previous.
var steps = []func(string) string{
	dropReasoning,
	dropPreamble,
	dropFence,
	dropOuterQuotes,
}

// Clean returns the reply with model artifacts removed and surrounding
// whitespace trimmed. Paragraph breaks inside the reply are kept.
func Clean(reply string) string {
	reply = strings.TrimSpace(reply)
	for _, step := range steps {
		reply = strings.TrimSpace(step(reply))
	}
	return reply
}

// RE2 has no backreferences, so every tag pair is spelled out.
var (
	reasoningRe = regexp.MustCompile(
		`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
	)
	// An opening tag without its closer means the reply was cut off mid-thought.
	openReasoningRe = regexp.MustCompile(`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`)
)

func dropReasoning(s string) string {
	s = reasoningRe.ReplaceAllString(s, "")
	return openReasoningRe.ReplaceAllString(s, "")
}

// fenceRe matches a reply that is entirely one fenced block, with an
// optional info string such as "text" or "km".
var fenceRe = regexp.MustCompile("(?s)^```[A-Za-z-]*[ \\t]*\\n(.*?)\\n?```$")

func dropFence(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// A colon, Khmer ៖ included, is required so real content starting with
// "Here is" survives.
const (
	edited = `(?:(?:refined|polished|translated|improved|edited|corrected|revised) )?`
	noun   = `(?:khmer )?(?:translation|translated text|text|version)`
	colon  = `\s*[:៖]`
)

var preambleRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]? here(?:'s| is)(?: the| your)? ` + edited + noun + colon),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| your)? ` + edited + noun + colon),
	regexp.MustCompile(`(?i)^(?:the )?` + edited + noun + colon),
	// "នេះ(គឺ)ជាអត្ថបទ(ខ្មែរ)ដែលបានកែសម្រួល៖" and its variants.
	regexp.MustCompile(`^(?:នេះ(?:គឺ)?ជា)?\s*អត្ថបទ(?:ខ្មែរ)?\s*(?:ដែល)?បាន(?:កែសម្រួល|កែលម្អ|បកប្រែ|កែតម្រូវ)` + colon),
}

func dropPreamble(s string) string {
	for _, re := range preambleRes {
		if loc := re.FindStringIndex(s); loc != nil {
			return s[loc[1]:]
		}
	}
	return s
}

var quotePairs = [][2]rune{{'"', '"'}, {'\'', '\''}, {'«', '»'}, {'“', '”'}, {'‘', '’'}}

// dropOuterQuotes removes one matching pair of quotes enclosing the whole
// reply.
func dropOuterQuotes(s string) string {
	runes := []rune(s)
	if len(runes) < 2 {
		return s
	}
	first, last := runes[0], runes[len(runes)-1]
	for _, q := range quotePairs {
		if first == q[0] && last == q[1] {
			return string(runes[1 : len(runes)-1])
		}
	}
	return s
}
