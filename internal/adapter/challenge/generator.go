// Package challenge implements the challenge-text generator collaborator
// (spec.md §6): a pure function from model.TextOptions to the bytes a
// tournament's participants race to type.
package challenge

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/webitel/typing-tournament/internal/domain/model"
)

// WordListGenerator draws Options.Words words from a fixed per-language
// corpus, joined by single spaces. It is deterministic given options: the
// same Seed always produces the same text for the same Language and Words,
// independent of everything else in the process (spec.md §6: "must not
// depend on manager state").
type WordListGenerator struct {
	corpora map[string][]string
}

func NewWordListGenerator() *WordListGenerator {
	return &WordListGenerator{corpora: defaultCorpora}
}

const fallbackLanguage = "en"

func (g *WordListGenerator) GenerateText(opts model.TextOptions) ([]byte, error) {
	words, ok := g.corpora[opts.Language]
	if !ok {
		words, ok = g.corpora[fallbackLanguage]
		if !ok {
			return nil, fmt.Errorf("challenge: no corpus for language %q", opts.Language)
		}
	}

	n := opts.Words
	if n <= 0 {
		n = 25
	}

	rng := rand.New(rand.NewPCG(seedHash(opts.Seed), uint64(n)))
	chosen := make([]string, n)
	for i := range chosen {
		chosen[i] = words[rng.IntN(len(words))]
	}
	return []byte(strings.Join(chosen, " ")), nil
}

// seedHash turns an arbitrary seed string into a uint64 via FNV-1a, so an
// empty seed still yields a stable (if unvaried) sequence rather than an
// error, and distinct seeds reliably land in different PCG streams.
func seedHash(seed string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(seed); i++ {
		h ^= uint64(seed[i])
		h *= prime64
	}
	return h
}

var defaultCorpora = map[string][]string{
	"en": {
		"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog", "pack",
		"my", "box", "with", "five", "dozen", "liquor", "jugs", "how", "vexingly",
		"quartz", "judges", "vow", "waltz", "bad", "nymph", "for", "gypsy", "cwm",
		"glyph", "junk", "sphinx", "of", "black", "quartz", "zebra", "crisp",
		"apple", "pine", "grove", "river", "stone", "cloud", "ember", "frost",
		"timber", "valley", "meadow", "harbor", "signal", "rapid", "quiet", "swift",
	},
}
