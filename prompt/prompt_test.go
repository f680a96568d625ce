package prompt

import (
	"strings"
	"testing"

	"github.com/sweetpotato0/tandem/language"
	"github.com/sweetpotato0/tandem/message"
)

func newInputs(target string, topic string) *Inputs {
	return &Inputs{
		TargetLanguage: target,
		SourceLanguage: "Français",
		Labels:         language.Resolve(target),
		History:        message.RenderHistory(nil),
		TargetMessage:  "我想要一个咖啡",
		TopicContext:   TopicContext(topic),
	}
}

func TestManagerRegister(t *testing.T) {
	m := NewManager()
	if err := m.RegisterString("greet", "Hello {{.Name}}"); err != nil {
		t.Fatalf("RegisterString failed: %v", err)
	}
	if err := m.RegisterString("greet", "again"); err == nil {
		t.Error("Expected error when registering duplicate template")
	}
	if err := m.RegisterString("", "x"); err == nil {
		t.Error("Expected error for empty name")
	}
	if err := m.RegisterString("broken", "{{.Name"); err == nil {
		t.Error("Expected parse error")
	}

	got, err := m.Render("greet", map[string]any{"Name": "Lin"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got != "Hello Lin" {
		t.Errorf("Render = %q", got)
	}

	if _, err := m.Render("greet", map[string]any{}); err == nil {
		t.Error("Expected error for missing key")
	}
	if _, err := m.Render("missing", nil); err == nil {
		t.Error("Expected error for unknown template")
	}
}

func TestTopicContext(t *testing.T) {
	if got := TopicContext(""); got != FreeTopic {
		t.Errorf("TopicContext(\"\") = %q", got)
	}
	got := TopicContext("ordering food at a restaurant")
	if got != `The context is: "ordering food at a restaurant".` {
		t.Errorf("TopicContext = %q", got)
	}
}

func TestEngineChat(t *testing.T) {
	e := NewEngine()
	in := newInputs("Chinois", "ordering food at a restaurant")

	got, err := e.Chat(in)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	for _, want := range []string{
		TopicContext("ordering food at a restaurant"),
		message.HistorySentinel,
		"You speak Chinois.",
		"(Hanzi)",
		`Last message received: "我想要一个咖啡"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("chat prompt missing %q:\n%s", want, got)
		}
	}
}

func TestEnginePhoneticColumns(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name      string
		target    string
		render    func(*Inputs) (string, error)
		withPhon  string
		withoutOK string
	}{
		{
			name:      "correction table",
			render:    func(in *Inputs) (string, error) { return e.CorrectionTable(in, "analysis text") },
			withPhon:  "Kanji/Kana | Furigana/Romaji | Français translation | Why this wording",
			withoutOK: "Text | Français translation | Why this wording",
		},
		{
			name:      "explanation translation",
			render:    e.ExplanationTranslation,
			withPhon:  "- Furigana/Romaji: [phonetic]",
			withoutOK: "Format:\n- Translation: [translation]",
		},
		{
			name:      "explanation vocabulary",
			render:    e.ExplanationVocabulary,
			withPhon:  "Kanji/Kana | Furigana/Romaji | Meaning (Français)",
			withoutOK: "Text | Meaning (Français)",
		},
		{
			name:      "examples",
			render:    e.Examples,
			withPhon:  "Kanji/Kana, Furigana/Romaji and Français translation",
			withoutOK: "Text and Français translation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ja, err := tt.render(newInputs("Japonais", ""))
			if err != nil {
				t.Fatalf("render failed: %v", err)
			}
			if !strings.Contains(ja, tt.withPhon) {
				t.Errorf("expected %q in:\n%s", tt.withPhon, ja)
			}

			es, err := tt.render(newInputs("Espagnol", ""))
			if err != nil {
				t.Fatalf("render failed: %v", err)
			}
			if !strings.Contains(es, tt.withoutOK) {
				t.Errorf("expected %q in:\n%s", tt.withoutOK, es)
			}
			if strings.Contains(es, "Furigana") {
				t.Errorf("unexpected phonetic label in:\n%s", es)
			}
		})
	}
}

func TestEngineCorrectionTableEmbedsAnalysis(t *testing.T) {
	e := NewEngine()
	got, err := e.CorrectionTable(newInputs("Chinois", ""), "Tu as oublié le classificateur 杯.")
	if err != nil {
		t.Fatalf("CorrectionTable failed: %v", err)
	}
	if !strings.Contains(got, "Analysis done: Tu as oublié le classificateur 杯..") {
		t.Errorf("analysis not embedded:\n%s", got)
	}
}

func TestEngineIsDeterministic(t *testing.T) {
	e := NewEngine()
	in := newInputs("Coréen", "at the bakery")

	for _, name := range e.Templates().List() {
		var data any = in
		if name == TemplateCorrectionTable {
			data = tableData{Inputs: in, Analysis: "x"}
		}
		first, err := e.Templates().Render(name, data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		second, _ := e.Templates().Render(name, data)
		if first != second {
			t.Errorf("%s rendered differently on second call", name)
		}
	}
}
