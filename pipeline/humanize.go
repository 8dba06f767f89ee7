package pipeline

import (
	"math/rand"
	"strings"
)

// Humanizer applies light, deterministic edits to model-drafted reply bodies
// so they read less like template output. Seeded: the same seed and input
// always produce the same text. Fallback-template patterns are left untouched;
// their wording is already fixed and disclosed as such.
type Humanizer struct {
	seed int64
}

// NewHumanizer creates a humanizer with the given seed.
func NewHumanizer(seed int64) *Humanizer {
	return &Humanizer{seed: seed}
}

// stiffPhrases maps overly formal model tics to plainer alternatives. Each
// replacement fires with 50% probability per occurrence so edits stay light.
var stiffPhrases = [][2]string{
	{"Furthermore, ", "Also, "},
	{"Additionally, ", "On top of that, "},
	{"I am writing to ", "I wanted to "},
	{"Please do not hesitate to ", "Feel free to "},
	{"at your earliest convenience", "when you get a chance"},
	{"We would like to express our gratitude", "Thank you"},
}

// Apply rewrites the LLM-generated patterns in place. Patterns tagged as
// fallback are returned unchanged.
func (h *Humanizer) Apply(patterns []ReplyPattern) []ReplyPattern {
	if h == nil {
		return patterns
	}

	out := make([]ReplyPattern, len(patterns))
	for i, p := range patterns {
		out[i] = p
		if p.GeneratedBy != GeneratedByLLM {
			continue
		}
		out[i].BodyText = h.rewrite(p.BodyText)
	}
	return out
}

// rewrite applies the phrase substitutions and whitespace cleanup. The RNG is
// re-seeded per body so edits depend only on the seed and the text itself, not
// on pattern ordering.
func (h *Humanizer) rewrite(body string) string {
	rng := rand.New(rand.NewSource(h.seed ^ int64(len(body))))

	for _, pair := range stiffPhrases {
		for strings.Contains(body, pair[0]) {
			if rng.Intn(2) == 0 {
				body = strings.Replace(body, pair[0], pair[1], 1)
			} else {
				// Mask the occurrence so the loop advances, then restore.
				body = strings.Replace(body, pair[0], "\x00"+pair[0][1:], 1)
			}
		}
		body = strings.ReplaceAll(body, "\x00"+pair[0][1:], pair[0])
	}

	// Collapse runs of blank lines; models occasionally emit two or more.
	for strings.Contains(body, "\n\n\n") {
		body = strings.ReplaceAll(body, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(body)
}
