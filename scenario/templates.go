package scenario

// Template names registered by NewService.
const (
	TemplateRandom    = "scenario.random"
	TemplateImprove   = "scenario.improve"
	TemplateTitle     = "scenario.title"
	TemplateTranslate = "translate"
)

const scenarioShape = `Write a short narrative paragraph (2-3 sentences) in {{.SourceLanguage}} that sets up the situation, using "I" and "you" as if I were the one explaining it. Keep the mood cheerful, with a stake that justifies the conversation. Write nothing but this paragraph.
Example: "I'm your next-door neighbour and I'm texting you because there's a strange noise coming from your flat. You're not home and you're starting to panic. We try to work out what's going on before I call the caretaker."`

const randomTemplate = `Invent a messaging-app role-play scenario for learning {{.TargetLanguage}}.
` + scenarioShape

const improveTemplate = `Take this starting point: "{{.Topic}}". Fix its mistakes and turn it into a lively messaging-app situation.
` + scenarioShape

const titleTemplate = `Give a short, evocative title (4 words at most) in {{.SourceLanguage}} for this scenario: "{{.Topic}}".
Answer with the title only.`

const translateTemplate = `Translate this {{.From}} text into natural {{.To}}.
Give ONLY the translation, nothing else.
Text: "{{.Text}}"`
