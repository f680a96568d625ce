package prompt

import (
	"fmt"

	"github.com/sweetpotato0/tandem/language"
)

// Inputs carries everything a tutor prompt may reference. History is the
// already rendered conversation text.
type Inputs struct {
	TargetLanguage string
	SourceLanguage string
	Labels         language.Labels
	History        string
	TargetMessage  string
	TopicContext   string
}

// TopicContext frames the scenario topic, or returns FreeTopic when topic is empty.
func TopicContext(topic string) string {
	if topic == "" {
		return FreeTopic
	}
	return fmt.Sprintf(topicFraming, topic)
}

type tableData struct {
	*Inputs
	Analysis string
}

// Engine renders the tutor's per-stage prompts.
type Engine struct {
	templates *Manager
}

// NewEngine creates an engine with the built-in tutor templates.
func NewEngine() *Engine {
	m := NewManager()
	m.MustRegisterString(TemplateChat, chatTemplate)
	m.MustRegisterString(TemplateCorrectionAnalysis, correctionAnalysisTemplate)
	m.MustRegisterString(TemplateCorrectionTable, correctionTableTemplate)
	m.MustRegisterString(TemplateExplanationTranslation, explanationTranslationTemplate)
	m.MustRegisterString(TemplateExplanationVocabulary, explanationVocabularyTemplate)
	m.MustRegisterString(TemplateExamples, examplesTemplate)
	return &Engine{templates: m}
}

// Templates exposes the underlying manager.
func (e *Engine) Templates() *Manager {
	return e.templates
}

// Chat builds the in-character reply prompt.
func (e *Engine) Chat(in *Inputs) (string, error) {
	return e.templates.Render(TemplateChat, in)
}

// CorrectionAnalysis builds the first correction stage.
func (e *Engine) CorrectionAnalysis(in *Inputs) (string, error) {
	return e.templates.Render(TemplateCorrectionAnalysis, in)
}

// CorrectionTable builds the second correction stage around the finished analysis.
func (e *Engine) CorrectionTable(in *Inputs, analysis string) (string, error) {
	return e.templates.Render(TemplateCorrectionTable, tableData{Inputs: in, Analysis: analysis})
}

// ExplanationTranslation builds the translation stage of an explanation.
func (e *Engine) ExplanationTranslation(in *Inputs) (string, error) {
	return e.templates.Render(TemplateExplanationTranslation, in)
}

// ExplanationVocabulary builds the vocabulary stage of an explanation.
func (e *Engine) ExplanationVocabulary(in *Inputs) (string, error) {
	return e.templates.Render(TemplateExplanationVocabulary, in)
}

// Examples builds the example-replies prompt.
func (e *Engine) Examples(in *Inputs) (string, error) {
	return e.templates.Render(TemplateExamples, in)
}
