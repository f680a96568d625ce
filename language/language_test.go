package language

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		lang     string
		script   string
		phonetic string
	}{
		{"french name chinese", "Chinois", "Hanzi", "Pinyin"},
		{"english name chinese", "Mandarin Chinese", "Hanzi", "Pinyin"},
		{"japanese upper", "JAPONAIS", "Kanji/Kana", "Furigana/Romaji"},
		{"japanese english", "Japanese", "Kanji/Kana", "Furigana/Romaji"},
		{"korean accented", "Coréen", "Hangeul", "Romanization"},
		{"korean native", "한국어", "Hangeul", "Romanization"},
		{"spanish", "Espagnol", DefaultScriptLabel, ""},
		{"empty", "", DefaultScriptLabel, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.lang)
			if got.Script != tt.script {
				t.Errorf("Script = %q, want %q", got.Script, tt.script)
			}
			if got.Phonetic != tt.phonetic {
				t.Errorf("Phonetic = %q, want %q", got.Phonetic, tt.phonetic)
			}
			if got.HasPhonetic() != (tt.phonetic != "") {
				t.Errorf("HasPhonetic() = %v", got.HasPhonetic())
			}
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	for _, lang := range []string{"Chinois", "Anglais", "Japonais", "Chinois"} {
		if Resolve(lang) != Resolve(lang) {
			t.Errorf("Resolve(%q) not stable", lang)
		}
	}
}
