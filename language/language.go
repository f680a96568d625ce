// Package language resolves the table and annotation labels used when
// prompting about a target language.
package language

import "strings"

// DefaultScriptLabel is used for languages without a dedicated script name.
const DefaultScriptLabel = "Text"

// Labels names the "original text" and "pronunciation aid" columns for a language.
// Phonetic is empty when the language has no phonetic annotation system.
type Labels struct {
	Script   string
	Phonetic string
}

// HasPhonetic reports whether a phonetic column should be requested.
func (l Labels) HasPhonetic() bool {
	return l.Phonetic != ""
}

type entry struct {
	names  []string
	labels Labels
}

// allowList holds lowercase name fragments; fragments never overlap across entries.
var allowList = []entry{
	{
		names:  []string{"chinois", "chinese", "mandarin", "中文"},
		labels: Labels{Script: "Hanzi", Phonetic: "Pinyin"},
	},
	{
		names:  []string{"japonais", "japanese", "日本語"},
		labels: Labels{Script: "Kanji/Kana", Phonetic: "Furigana/Romaji"},
	},
	{
		names:  []string{"coréen", "coreen", "korean", "한국어"},
		labels: Labels{Script: "Hangeul", Phonetic: "Romanization"},
	},
}

// Resolve maps a target-language name to its labels by case-insensitive
// substring match. Unknown languages get DefaultScriptLabel and no phonetic label.
func Resolve(name string) Labels {
	lower := strings.ToLower(name)
	for _, e := range allowList {
		for _, n := range e.names {
			if strings.Contains(lower, n) {
				return e.labels
			}
		}
	}
	return Labels{Script: DefaultScriptLabel}
}
