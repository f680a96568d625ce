package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/credential"
	tandemerrors "github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/message"
	"github.com/sweetpotato0/tandem/middleware"
)

// fakeProvider streams each scripted reply rune by rune.
type fakeProvider struct {
	mu      sync.Mutex
	replies []string
	prompts []string
	models  []string
	err     error
	silent  bool

	// cancel is called on the first call once cancelAt runes were streamed.
	cancel       context.CancelFunc
	cancelAt     int
	ignoreCancel bool
}

func (f *fakeProvider) Generate(ctx context.Context, prompt, model string, onFragment provider.FragmentFunc) (string, error) {
	f.mu.Lock()
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	f.models = append(f.models, model)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	reply := ""
	if call < len(f.replies) {
		reply = f.replies[call]
	}
	if f.silent {
		return reply, nil
	}
	acc := provider.NewAccumulator(onFragment)
	n := 0
	for _, r := range reply {
		if f.cancel != nil && call == 0 && n == f.cancelAt {
			f.cancel()
		}
		if err := ctx.Err(); err != nil && !f.ignoreCancel {
			return acc.Text(), err
		}
		acc.Append(string(r))
		n++
	}
	return acc.Text(), nil
}

func (f *fakeProvider) Complete(ctx context.Context, prompt, model string) (string, error) {
	return f.Generate(ctx, prompt, model, nil)
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type factoryCall struct {
	kind provider.Kind
	key  string
}

type fakeFactory struct {
	provider *fakeProvider
	calls    []factoryCall
}

func (f *fakeFactory) New(ctx context.Context, kind provider.Kind, apiKey string, opts provider.Options) (provider.Provider, error) {
	f.calls = append(f.calls, factoryCall{kind: kind, key: apiKey})
	if apiKey == "" {
		return nil, tandemerrors.ErrCredentialMissing
	}
	return f.provider, nil
}

type recorder struct {
	fragments []string
}

func (r *recorder) onFragment(text string) {
	r.fragments = append(r.fragments, text)
}

func (r *recorder) last() string {
	if len(r.fragments) == 0 {
		return ""
	}
	return r.fragments[len(r.fragments)-1]
}

func (r *recorder) assertGrowing(t *testing.T) {
	t.Helper()
	for i := 1; i < len(r.fragments); i++ {
		if len(r.fragments[i]) <= len(r.fragments[i-1]) {
			t.Errorf("fragment %d (%q) does not extend %q", i, r.fragments[i], r.fragments[i-1])
		}
		if !strings.HasPrefix(r.fragments[i], r.fragments[i-1]) {
			t.Errorf("fragment %d rewrote earlier text", i)
		}
	}
}

func newTestTutor(p *fakeProvider, defaults map[string]string, opts ...Option) (*Tutor, *fakeFactory, *credential.InMemoryStore) {
	factory := &fakeFactory{provider: p}
	store := credential.NewInMemoryStore()
	base := []Option{
		WithFactory(factory.New),
		WithCredentials(credential.NewResolver(store, defaults)),
	}
	return New(append(base, opts...)...), factory, store
}

func geminiKey() map[string]string {
	return map[string]string{credential.GeminiKey: "g-key"}
}

func baseRequest(action Action) *Request {
	return &Request{
		Action:         action,
		TargetMessage:  "我想要一个咖啡",
		TargetLanguage: "Chinois",
		SourceLanguage: "Français",
	}
}

func TestGenerateContentSingleCall(t *testing.T) {
	p := &fakeProvider{replies: []string{"你好！"}}
	tu, factory, _ := newTestTutor(p, geminiKey())
	rec := &recorder{}

	req := baseRequest(ActionContent)
	req.History = []message.Turn{
		{Role: message.RoleAssistant, Content: "你好"},
		{Role: message.RoleUser, Content: "  "},
		{Role: message.RoleUser, Content: "我很好"},
	}
	got, err := tu.Generate(context.Background(), req, rec.onFragment)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if p.calls() != 1 {
		t.Fatalf("expected 1 provider call, got %d", p.calls())
	}
	if got != "你好！" || got != rec.last() {
		t.Errorf("result %q, last fragment %q", got, rec.last())
	}
	rec.assertGrowing(t)

	if len(factory.calls) != 1 || factory.calls[0].kind != provider.KindGemini || factory.calls[0].key != "g-key" {
		t.Errorf("unexpected factory calls: %+v", factory.calls)
	}
	if p.models[0] != DefaultModel {
		t.Errorf("model = %q, want %q", p.models[0], DefaultModel)
	}
	if !strings.Contains(p.prompts[0], "AI: 你好\nLearner: 我很好") {
		t.Errorf("history not rendered into prompt:\n%s", p.prompts[0])
	}
}

func TestGenerateRegenerateMatchesContent(t *testing.T) {
	p := &fakeProvider{replies: []string{"a", "a"}}
	tu, _, _ := newTestTutor(p, geminiKey())

	if _, err := tu.Generate(context.Background(), baseRequest(ActionContent), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := tu.Generate(context.Background(), baseRequest(ActionRegenerate), nil); err != nil {
		t.Fatal(err)
	}
	if p.prompts[0] != p.prompts[1] {
		t.Error("regenerate should send the same prompt as content")
	}
}

func TestGenerateCorrectionTwoStages(t *testing.T) {
	p := &fakeProvider{replies: []string{"Use 一杯.", "| 我想要一杯咖啡 |"}}
	tu, _, _ := newTestTutor(p, geminiKey())
	rec := &recorder{}

	got, err := tu.Generate(context.Background(), baseRequest(ActionCorrection), rec.onFragment)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if p.calls() != 2 {
		t.Fatalf("expected 2 provider calls, got %d", p.calls())
	}
	want := "Use 一杯." + CorrectionSeparator + "| 我想要一杯咖啡 |"
	if got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
	if rec.last() != got {
		t.Errorf("last fragment %q differs from result", rec.last())
	}
	if !strings.Contains(p.prompts[1], "Use 一杯.") {
		t.Error("table prompt should embed the analysis")
	}
	rec.assertGrowing(t)
}

func TestGenerateExplanationJapanese(t *testing.T) {
	p := &fakeProvider{replies: []string{"Coffee please", "| コーヒー |"}}
	tu, _, _ := newTestTutor(p, geminiKey())
	rec := &recorder{}

	req := baseRequest(ActionExplanation)
	req.TargetLanguage = "Japonais"
	req.TargetMessage = "コーヒーをください"
	got, err := tu.Generate(context.Background(), req, rec.onFragment)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if p.calls() != 2 {
		t.Fatalf("expected 2 provider calls, got %d", p.calls())
	}
	for i, pr := range p.prompts {
		if !strings.Contains(pr, "Furigana/Romaji") {
			t.Errorf("prompt %d does not reference the phonetic label", i)
		}
	}
	want := "**Translation and Furigana/Romaji:**\n\nCoffee please" + VocabularyHeading + "| コーヒー |"
	if got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
	if rec.last() != got {
		t.Error("last fragment differs from result")
	}
	if rec.fragments[0] != "**Translation and Furigana/Romaji:**\n\n" {
		t.Errorf("heading should stream first, got %q", rec.fragments[0])
	}
	rec.assertGrowing(t)
}

func TestGenerateExplanationWithoutPhonetic(t *testing.T) {
	p := &fakeProvider{replies: []string{"Hello", "| hola |"}}
	tu, _, _ := newTestTutor(p, geminiKey())

	req := baseRequest(ActionExplanation)
	req.TargetLanguage = "Espagnol"
	req.TargetMessage = "hola"
	got, err := tu.Generate(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(got, "**Translation:**\n\nHello") {
		t.Errorf("unexpected result %q", got)
	}
}

func TestGenerateExamples(t *testing.T) {
	p := &fakeProvider{replies: []string{"1. 好的"}}
	tu, _, _ := newTestTutor(p, geminiKey())

	got, err := tu.Generate(context.Background(), baseRequest(ActionExamples), nil)
	if err != nil || got != "1. 好的" {
		t.Fatalf("Generate = %q, %v", got, err)
	}
	if p.calls() != 1 {
		t.Errorf("expected 1 call, got %d", p.calls())
	}
}

func TestGenerateMissingCredential(t *testing.T) {
	p := &fakeProvider{replies: []string{"never"}}
	tu, _, _ := newTestTutor(p, nil)
	rec := &recorder{}

	got, err := tu.Generate(context.Background(), baseRequest(ActionCorrection), rec.onFragment)
	if err != nil {
		t.Fatalf("expected soft failure, got %v", err)
	}
	want := MissingCredentialWarning(provider.KindGemini)
	if got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
	if len(rec.fragments) != 1 || rec.fragments[0] != want {
		t.Errorf("expected the warning once, got %q", rec.fragments)
	}
	if p.calls() != 0 {
		t.Errorf("expected zero provider calls, got %d", p.calls())
	}
	if !strings.Contains(want, "Gemini") {
		t.Error("warning should name the backend")
	}
}

func TestGenerateUnsupportedAction(t *testing.T) {
	p := &fakeProvider{}
	tu, factory, _ := newTestTutor(p, geminiKey())
	rec := &recorder{}

	req := baseRequest("summarize")
	_, err := tu.Generate(context.Background(), req, rec.onFragment)
	if !errors.Is(err, tandemerrors.ErrUnsupportedAction) {
		t.Errorf("expected ErrUnsupportedAction, got %v", err)
	}
	if len(rec.fragments) != 0 || len(factory.calls) != 0 {
		t.Error("unsupported action must not emit or build a provider")
	}
}

func TestGenerateInvalidRequest(t *testing.T) {
	tu, _, _ := newTestTutor(&fakeProvider{}, geminiKey())

	if _, err := tu.Generate(context.Background(), nil, nil); !errors.Is(err, tandemerrors.ErrInvalidInput) {
		t.Errorf("nil request: %v", err)
	}

	req := baseRequest(ActionCorrection)
	req.TargetMessage = " "
	if _, err := tu.Generate(context.Background(), req, nil); !errors.Is(err, tandemerrors.ErrInvalidInput) {
		t.Errorf("empty correction target: %v", err)
	}

	req = baseRequest(ActionContent)
	req.TargetLanguage = ""
	if _, err := tu.Generate(context.Background(), req, nil); !errors.Is(err, tandemerrors.ErrInvalidInput) {
		t.Errorf("missing target language: %v", err)
	}
}

func TestGenerateProviderErrorPropagates(t *testing.T) {
	backendErr := tandemerrors.NewProviderError("gemini", errors.New("503"))
	p := &fakeProvider{err: backendErr}
	tu, _, _ := newTestTutor(p, geminiKey())
	rec := &recorder{}

	got, err := tu.Generate(context.Background(), baseRequest(ActionCorrection), rec.onFragment)
	if !tandemerrors.IsProviderError(err) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
	if p.calls() != 1 {
		t.Errorf("second stage must not start after a failure, got %d calls", p.calls())
	}
	if len(rec.fragments) != 0 {
		t.Errorf("entry point must not emit on failure, got %q", rec.fragments)
	}
}

func TestGenerateCancelled(t *testing.T) {
	p := &fakeProvider{replies: []string{"x"}}
	tu, _, _ := newTestTutor(p, geminiKey())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tu.Generate(ctx, baseRequest(ActionContent), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if p.calls() != 0 {
		t.Errorf("expected no provider calls, got %d", p.calls())
	}
}

func TestGenerateCancelledDuringFirstStage(t *testing.T) {
	tests := []struct {
		name          string
		ignoreCancel  bool
		wantFragments []string
	}{
		{"provider stops", false, []string{"a", "ab", "abc"}},
		{"provider finishes", true, []string{"a", "ab", "abc", "abcd", "abcde", "abcdef", "abcdef" + CorrectionSeparator}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			p := &fakeProvider{
				replies:      []string{"abcdef", "table"},
				cancel:       cancel,
				cancelAt:     3,
				ignoreCancel: tt.ignoreCancel,
			}
			tu, _, _ := newTestTutor(p, geminiKey())
			rec := &recorder{}

			got, err := tu.Generate(ctx, baseRequest(ActionCorrection), rec.onFragment)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
			if got != "" {
				t.Errorf("expected empty result, got %q", got)
			}
			if p.calls() != 1 {
				t.Errorf("second stage must not run after cancellation, got %d calls", p.calls())
			}
			if strings.Join(rec.fragments, "|") != strings.Join(tt.wantFragments, "|") {
				t.Errorf("fragments = %q, want %q", rec.fragments, tt.wantFragments)
			}
			rec.assertGrowing(t)
		})
	}
}

func TestIsCredentialWarning(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{MissingCredentialWarning(provider.KindGemini), true},
		{MissingCredentialWarning(provider.KindOpenAI), true},
		{MissingCredentialWarning(provider.KindClaude), true},
		{"你好", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsCredentialWarning(tt.text); got != tt.want {
			t.Errorf("IsCredentialWarning(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestGenerateSilentProvider(t *testing.T) {
	p := &fakeProvider{replies: []string{"direct", "table"}, silent: true}
	tu, _, _ := newTestTutor(p, geminiKey())
	rec := &recorder{}

	got, err := tu.Generate(context.Background(), baseRequest(ActionCorrection), rec.onFragment)
	if err != nil {
		t.Fatal(err)
	}
	if got != "direct"+CorrectionSeparator+"table" || rec.last() != got {
		t.Errorf("result %q, last fragment %q", got, rec.last())
	}
	rec.assertGrowing(t)
}

func TestResolveModel(t *testing.T) {
	p := &fakeProvider{replies: []string{"ok", "ok"}}
	tu, factory, store := newTestTutor(p, map[string]string{
		credential.GeminiKey: "g-key",
		credential.OpenAIKey: "o-key",
	})
	ctx := context.Background()

	if err := store.Set(ctx, "u1", credential.SelectedModel, "gpt-4o-mini"); err != nil {
		t.Fatal(err)
	}

	req := baseRequest(ActionContent)
	req.UserID = "u1"
	if _, err := tu.Generate(ctx, req, nil); err != nil {
		t.Fatal(err)
	}
	if p.models[0] != "gpt-4o-mini" || factory.calls[0].kind != provider.KindOpenAI || factory.calls[0].key != "o-key" {
		t.Errorf("preference not applied: model=%q calls=%+v", p.models[0], factory.calls)
	}

	req.Model = "gemini-2.5-pro"
	if _, err := tu.Generate(ctx, req, nil); err != nil {
		t.Fatal(err)
	}
	if p.models[1] != "gemini-2.5-pro" || factory.calls[1].kind != provider.KindGemini {
		t.Errorf("request model should win: model=%q calls=%+v", p.models[1], factory.calls)
	}

	m, err := tu.ResolveModel(ctx, "someone-else", "")
	if err != nil || m != DefaultModel {
		t.Errorf("ResolveModel = %q, %v", m, err)
	}
}

type captureMiddleware struct {
	seen *middleware.Context
}

func (m *captureMiddleware) Name() string { return "capture" }

func (m *captureMiddleware) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	m.seen = ctx
	return err
}

func TestGenerateRunsMiddleware(t *testing.T) {
	p := &fakeProvider{replies: []string{"analysis", "table"}}
	capture := &captureMiddleware{}
	tu, _, _ := newTestTutor(p, geminiKey(), WithMiddleware(capture))

	got, err := tu.Generate(context.Background(), baseRequest(ActionCorrection), nil)
	if err != nil {
		t.Fatal(err)
	}
	if capture.seen == nil {
		t.Fatal("middleware did not run")
	}
	if capture.seen.Action != "correction" || capture.seen.Model != DefaultModel || capture.seen.Output != got {
		t.Errorf("unexpected middleware context: %+v", capture.seen)
	}
}

type countingTokens struct{ n int }

func (c *countingTokens) CountTokens(text string) int {
	c.n++
	return len(text)
}

func TestGenerateCountsPromptTokens(t *testing.T) {
	p := &fakeProvider{replies: []string{"a", "b"}}
	counter := &countingTokens{}
	tu, _, _ := newTestTutor(p, geminiKey(), WithTokenCounter(counter))

	if _, err := tu.Generate(context.Background(), baseRequest(ActionCorrection), nil); err != nil {
		t.Fatal(err)
	}
	if counter.n != 2 {
		t.Errorf("expected one count per stage, got %d", counter.n)
	}
}
