package tutor

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/tandem/language"
	"github.com/sweetpotato0/tandem/prompt"
)

// Fixed markup inserted between stages.
const (
	CorrectionSeparator = "\n\n"
	VocabularyHeading   = "\n\n**Vocabulary:**\n\n"
)

// TranslationHeading opens an explanation, naming the phonetic system when
// the language has one.
func TranslationHeading(labels language.Labels) string {
	if labels.HasPhonetic() {
		return fmt.Sprintf("**Translation and %s:**\n\n", labels.Phonetic)
	}
	return "**Translation:**\n\n"
}

type handlerFunc func(ctx context.Context, p *pipeline, e *prompt.Engine, in *prompt.Inputs) error

var handlers = map[Action]handlerFunc{
	ActionContent:     handleContent,
	ActionRegenerate:  handleContent,
	ActionCorrection:  handleCorrection,
	ActionExplanation: handleExplanation,
	ActionExamples:    handleExamples,
}

func handleContent(ctx context.Context, p *pipeline, e *prompt.Engine, in *prompt.Inputs) error {
	text, err := e.Chat(in)
	if err != nil {
		return err
	}
	_, err = p.Stage(ctx, "chat", text)
	return err
}

func handleCorrection(ctx context.Context, p *pipeline, e *prompt.Engine, in *prompt.Inputs) error {
	text, err := e.CorrectionAnalysis(in)
	if err != nil {
		return err
	}
	analysis, err := p.Stage(ctx, "correction.analysis", text)
	if err != nil {
		return err
	}

	p.Append(CorrectionSeparator)

	text, err = e.CorrectionTable(in, analysis)
	if err != nil {
		return err
	}
	_, err = p.Stage(ctx, "correction.table", text)
	return err
}

func handleExplanation(ctx context.Context, p *pipeline, e *prompt.Engine, in *prompt.Inputs) error {
	translation, err := e.ExplanationTranslation(in)
	if err != nil {
		return err
	}
	vocabulary, err := e.ExplanationVocabulary(in)
	if err != nil {
		return err
	}

	p.Append(TranslationHeading(in.Labels))
	if _, err := p.Stage(ctx, "explanation.translation", translation); err != nil {
		return err
	}
	p.Append(VocabularyHeading)
	_, err = p.Stage(ctx, "explanation.vocabulary", vocabulary)
	return err
}

func handleExamples(ctx context.Context, p *pipeline, e *prompt.Engine, in *prompt.Inputs) error {
	text, err := e.Examples(in)
	if err != nil {
		return err
	}
	_, err = p.Stage(ctx, "examples", text)
	return err
}
