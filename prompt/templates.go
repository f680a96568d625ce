package prompt

// Template names registered by NewEngine.
const (
	TemplateChat                   = "chat"
	TemplateCorrectionAnalysis     = "correction.analysis"
	TemplateCorrectionTable        = "correction.table"
	TemplateExplanationTranslation = "explanation.translation"
	TemplateExplanationVocabulary  = "explanation.vocabulary"
	TemplateExamples               = "examples"
)

// Fixed framing sentences for the topic context.
const (
	topicFraming = `The context is: "%s".`
	FreeTopic    = "Free topic, friendly exchange."
)

const chatTemplate = `Play the character in this situation: "{{.TopicContext}}"
- You speak {{.TargetLanguage}}.
- Act like a human with emotions, but stay friendly.
- Use natural spoken language, with colloquial expressions or slang when appropriate.
- Messaging-app style: short messages, 1-2 sentences.
- Only {{.TargetLanguage}} text ({{.Labels.Script}}), no translation.
- History: {{.History}}
- Last message received: "{{.TargetMessage}}"

Reply directly to the message:`

const correctionAnalysisTemplate = `You are an expert {{.TargetLanguage}} teacher for {{.SourceLanguage}} speakers. {{.TopicContext}}
The history is: {{.History}}.
Learner's message: "{{.TargetMessage}}".
Instruction: list only the grammar or vocabulary mistakes and the unnatural phrasing in {{.TargetLanguage}}.
Address the learner directly as "you", in {{.SourceLanguage}}. Be kind and very concise.
Start directly with the analysis.`

const correctionTableTemplate = `{{.TargetLanguage}} teacher.
History: {{.History}}.
Original message: "{{.TargetMessage}}".
Analysis done: {{.Analysis}}.

Instruction: propose a table of corrected versions.
Format: Markdown table with the columns: {{.Labels.Script}} | {{if .Labels.Phonetic}}{{.Labels.Phonetic}} | {{end}}{{.SourceLanguage}} translation | Why this wording.
No introduction.`

const explanationTranslationTemplate = `You are an expert {{.TargetLanguage}} teacher for {{.SourceLanguage}} speakers.
The conversation context is: {{.TopicContext}}
Conversation history: {{.History}}.
Message to explain: "{{.TargetMessage}}".
Instruction: give the overall translation in {{.SourceLanguage}}{{if .Labels.Phonetic}} and the {{.Labels.Phonetic}}{{end}}.
Format:{{if .Labels.Phonetic}}
- {{.Labels.Phonetic}}: [phonetic]{{end}}
- Translation: [translation]
Be very concise, no introduction.`

const explanationVocabularyTemplate = `Extract the important vocabulary from: "{{.TargetMessage}}".
Instruction: Markdown table with the columns: {{.Labels.Script}} | {{if .Labels.Phonetic}}{{.Labels.Phonetic}} | {{end}}Meaning ({{.SourceLanguage}}).
Start directly with the table.`

const examplesTemplate = `You are an expert {{.TargetLanguage}} teacher. {{.TopicContext}}
Here is the conversation history: {{.History}}.
Last message received: "{{.TargetMessage}}".
- Propose several possible natural replies in {{.TargetLanguage}}, the most natural first.
- For each example: {{.Labels.Script}}{{if .Labels.Phonetic}}, {{.Labels.Phonetic}}{{end}} and {{.SourceLanguage}} translation.
- Be very concise, no introduction.`
