package postprocess

import "testing"

const (
	para1 = "កថាខណ្ឌទីមួយ។"
	para2 = "កថាខណ្ឌទីពីរ។"
	batch = para1 + "\n\n" + para2
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "empty", reply: "", want: ""},
		{name: "plain batch", reply: batch, want: batch},
		{name: "surrounding whitespace", reply: "\n  " + batch + "  \n", want: batch},
		{name: "think block", reply: "<think>keep both paragraphs</think>\n" + batch, want: batch},
		{name: "reasoning between paragraphs", reply: para1 + "\n\n<reasoning>second one</reasoning>" + para2, want: para1 + "\n\n" + para2},
		{name: "cut off mid-thought", reply: para1 + "<thinking>now the next", want: para1},
		{name: "only a thought", reply: "<reflection>unfinished", want: ""},
		{name: "english preamble", reply: "Here is the polished Khmer text:\n\n" + batch, want: batch},
		{name: "preamble with khmer colon", reply: "Here's your edited version៖ " + para1, want: para1},
		{name: "sure preamble", reply: "Sure! Here is the revised Khmer text: " + para1, want: para1},
		{name: "bare label", reply: "Corrected text:\n" + batch, want: batch},
		{name: "khmer preamble", reply: "នេះជាអត្ថបទដែលបានកែសម្រួល៖\n" + batch, want: batch},
		{name: "khmer preamble with gum", reply: "នេះគឺជាអត្ថបទខ្មែរដែលបានកែលម្អ៖ " + para1, want: para1},
		{name: "fenced batch", reply: "```\n" + batch + "\n```", want: batch},
		{name: "fenced with info string", reply: "```text\n" + para1 + "\n```", want: para1},
		{name: "guillemets", reply: "«" + para1 + "»", want: para1},
		{name: "curly quotes", reply: "“" + batch + "”", want: batch},
		{name: "every artifact", reply: "<think>ok</think>Here's the polished translation:\n```\n\"" + batch + "\"\n```", want: batch},
		{name: "preamble then quotes", reply: "The refined translation: \"" + para1 + "\"", want: para1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.reply); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}

func TestClean_KeepsContent(t *testing.T) {
	tests := []string{
		"Here is the plan for next year.",
		"Before Here's the translation: After",
		"Here's the translation text",
		"\"" + para1 + "'",
		"\"" + para1,
		"```\nunterminated fence",
		"អត្ថបទនេះមានពីរកថាខណ្ឌ។",
		"Visit https://example.org: it has the " + para1,
	}

	for _, reply := range tests {
		if got := Clean(reply); got != reply {
			t.Errorf("Clean(%q) = %q, want it unchanged", reply, got)
		}
	}
}

func TestDropOuterQuotes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"\"", "\""},
		{"''", ""},
		{"'" + para1 + "'", para1},
		{"‘" + para1 + "’", para1},
		{"\"" + para1 + "»", "\"" + para1 + "»"},
		{"\"He said \"hi\"\"", "He said \"hi\""},
	}

	for _, tt := range tests {
		if got := dropOuterQuotes(tt.in); got != tt.want {
			t.Errorf("dropOuterQuotes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
