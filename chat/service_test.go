package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/chat/store"
	"github.com/sweetpotato0/tandem/contrib/provider"
	tandemerrors "github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/message"
	"github.com/sweetpotato0/tandem/tutor"
)

// fakeGenerator streams "<action>:<target>" in two fragments.
type fakeGenerator struct {
	requests []*tutor.Request
	err      error
	warning  string
}

func (g *fakeGenerator) Generate(ctx context.Context, req *tutor.Request, onFragment provider.FragmentFunc) (string, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	if g.warning != "" {
		if onFragment != nil {
			onFragment(g.warning)
		}
		return g.warning, nil
	}
	text := fmt.Sprintf("%s:%s", req.Action, req.TargetMessage)
	if onFragment != nil {
		onFragment(text[:len(req.Action)])
		onFragment(text)
	}
	return text, nil
}

func (g *fakeGenerator) last() *tutor.Request {
	return g.requests[len(g.requests)-1]
}

func newService(t *testing.T) (*chat.Service, *fakeGenerator) {
	t.Helper()
	gen := &fakeGenerator{}
	return chat.NewService(store.NewInMemoryStore(), gen, nil), gen
}

func TestCreateAndStart(t *testing.T) {
	svc, gen := newService(t)
	ctx := context.Background()

	c, err := svc.CreateChat(ctx, "u1", "", "At the market", "", "Japonais")
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if c.Title != "At the market" {
		t.Errorf("expected title from topic, got %q", c.Title)
	}
	if len(c.Messages) != 1 || c.Messages[0].Role != message.RoleAssistant || c.Messages[0].Content != "" {
		t.Fatalf("expected one empty opening turn, got %+v", c.Messages)
	}

	var last string
	m, err := svc.Start(ctx, c.ID, chat.Turn{UserID: "u1", OnFragment: func(s string) { last = s }})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	req := gen.last()
	if req.TargetMessage != chat.StartMarker || req.Topic != "At the market" || req.TargetLanguage != "Japonais" {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.History) != 0 {
		t.Errorf("expected empty history, got %+v", req.History)
	}
	if m.Content != last {
		t.Errorf("expected persisted %q to equal last fragment %q", m.Content, last)
	}

	stored, _ := svc.GetChat(ctx, "u1", c.ID)
	if stored.Messages[0].Content != last {
		t.Errorf("expected stored opening %q, got %q", last, stored.Messages[0].Content)
	}
}

func TestSend(t *testing.T) {
	svc, gen := newService(t)
	ctx := context.Background()
	c, _ := svc.CreateChat(ctx, "u1", "t", "", "", "")
	svc.Start(ctx, c.ID, chat.Turn{UserID: "u1"})

	reply, err := svc.Send(ctx, c.ID, "你好", chat.Turn{UserID: "u1", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply.Content != "content:你好" {
		t.Errorf("unexpected reply %q", reply.Content)
	}

	req := gen.last()
	if req.Model != "gpt-4o" {
		t.Errorf("expected model to be forwarded, got %q", req.Model)
	}
	if len(req.History) != 2 || req.History[1].Content != "你好" {
		t.Errorf("expected opening and learner turns in history, got %+v", req.History)
	}

	stored, _ := svc.GetChat(ctx, "u1", c.ID)
	if len(stored.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(stored.Messages))
	}

	if _, err := svc.Send(ctx, c.ID, "  ", chat.Turn{UserID: "u1"}); !errors.Is(err, tandemerrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnnotate(t *testing.T) {
	svc, gen := newService(t)
	ctx := context.Background()
	c, _ := svc.CreateChat(ctx, "u1", "t", "", "", "")
	svc.Start(ctx, c.ID, chat.Turn{UserID: "u1"})
	svc.Send(ctx, c.ID, "我去商店", chat.Turn{UserID: "u1"})

	stored, _ := svc.GetChat(ctx, "u1", c.ID)
	learner := stored.Messages[1]

	tests := []struct {
		action tutor.Action
		field  message.Field
	}{
		{tutor.ActionCorrection, message.FieldCorrection},
		{tutor.ActionExplanation, message.FieldExplanation},
		{tutor.ActionExamples, message.FieldExamples},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			var last string
			m, err := svc.Annotate(ctx, learner.ID, tt.action, chat.Turn{UserID: "u1", OnFragment: func(s string) { last = s }})
			if err != nil {
				t.Fatalf("Annotate failed: %v", err)
			}
			if m.Get(tt.field) != last || m.Content != "我去商店" {
				t.Errorf("expected %s to hold %q, got %+v", tt.field, last, m)
			}
			req := gen.last()
			if req.TargetMessage != "我去商店" || len(req.History) != 1 {
				t.Errorf("unexpected request: %+v", req)
			}
		})
	}

	if _, err := svc.Annotate(ctx, learner.ID, tutor.ActionContent, chat.Turn{UserID: "u1"}); !errors.Is(err, tandemerrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Annotate(ctx, learner.ID, "summarize", chat.Turn{UserID: "u1"}); !errors.Is(err, tandemerrors.ErrUnsupportedAction) {
		t.Errorf("expected ErrUnsupportedAction, got %v", err)
	}
}

func TestRegenerateAndEdit(t *testing.T) {
	svc, gen := newService(t)
	ctx := context.Background()
	c, _ := svc.CreateChat(ctx, "u1", "t", "Lost keys", "", "")
	svc.Start(ctx, c.ID, chat.Turn{UserID: "u1"})
	svc.Send(ctx, c.ID, "一", chat.Turn{UserID: "u1"})
	svc.Send(ctx, c.ID, "二", chat.Turn{UserID: "u1"})

	stored, _ := svc.GetChat(ctx, "u1", c.ID)
	if len(stored.Messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(stored.Messages))
	}
	firstReply := stored.Messages[2]

	m, err := svc.Regenerate(ctx, firstReply.ID, chat.Turn{UserID: "u1"})
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if m.Content != "regenerate:一" {
		t.Errorf("unexpected regenerated content %q", m.Content)
	}
	stored, _ = svc.GetChat(ctx, "u1", c.ID)
	if len(stored.Messages) != 3 {
		t.Errorf("expected later turns dropped, got %d messages", len(stored.Messages))
	}

	opening := stored.Messages[0]
	if _, err := svc.Regenerate(ctx, opening.ID, chat.Turn{UserID: "u1"}); err != nil {
		t.Fatalf("Regenerate opening failed: %v", err)
	}
	if gen.last().TargetMessage != "Lost keys" {
		t.Errorf("expected the topic as target, got %q", gen.last().TargetMessage)
	}

	svc.Send(ctx, c.ID, "三", chat.Turn{UserID: "u1"})
	stored, _ = svc.GetChat(ctx, "u1", c.ID)
	learner := stored.Messages[1]

	reply, err := svc.Edit(ctx, learner.ID, "四", chat.Turn{UserID: "u1"})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if reply.Content != "content:四" {
		t.Errorf("unexpected reply %q", reply.Content)
	}
	stored, _ = svc.GetChat(ctx, "u1", c.ID)
	if len(stored.Messages) != 3 || stored.Messages[1].Content != "四" || stored.Messages[2].ID != reply.ID {
		t.Errorf("unexpected messages after edit: %+v", stored.Messages)
	}

	if _, err := svc.Edit(ctx, reply.ID, "x", chat.Turn{UserID: "u1"}); !errors.Is(err, tandemerrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput editing a reply, got %v", err)
	}
}

func TestGenerationFailureKeepsMessage(t *testing.T) {
	svc, gen := newService(t)
	ctx := context.Background()
	c, _ := svc.CreateChat(ctx, "u1", "t", "", "", "")

	gen.err = tandemerrors.NewProviderError("gemini", errors.New("boom"))
	if _, err := svc.Start(ctx, c.ID, chat.Turn{UserID: "u1"}); !tandemerrors.IsProviderError(err) {
		t.Errorf("expected ProviderError, got %v", err)
	}
	stored, _ := svc.GetChat(ctx, "u1", c.ID)
	if len(stored.Messages) != 1 || stored.Messages[0].Content != "" {
		t.Errorf("expected untouched opening turn, got %+v", stored.Messages)
	}
}

func TestCredentialWarningNotStored(t *testing.T) {
	svc, gen := newService(t)
	ctx := context.Background()
	c, _ := svc.CreateChat(ctx, "u1", "t", "At the market", "", "")

	warning := tutor.MissingCredentialWarning(provider.KindGemini)
	gen.warning = warning
	var last string
	m, err := svc.Start(ctx, c.ID, chat.Turn{UserID: "u1", OnFragment: func(s string) { last = s }})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if last != warning || m.Content != warning {
		t.Errorf("expected the warning to reach the caller, got fragment %q and content %q", last, m.Content)
	}

	stored, _ := svc.GetChat(ctx, "u1", c.ID)
	if stored.Messages[0].Content != "" {
		t.Errorf("expected an empty stored opening, got %q", stored.Messages[0].Content)
	}

	gen.warning = ""
	if _, err := svc.Send(ctx, c.ID, "你好", chat.Turn{UserID: "u1"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	history := gen.last().History
	if len(history) != 1 || history[0].Role != message.RoleUser || history[0].Content != "你好" {
		t.Errorf("expected only the learner turn in history, got %+v", history)
	}
	if rendered := message.RenderHistory(history); strings.Contains(rendered, "Missing API key") {
		t.Errorf("warning leaked into history: %q", rendered)
	}
}

func TestOwnership(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c, _ := svc.CreateChat(ctx, "u1", "t", "", "", "")

	if _, err := svc.GetChat(ctx, "u2", c.ID); !errors.Is(err, tandemerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
	if err := svc.DeleteChat(ctx, "u2", c.ID); !errors.Is(err, tandemerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
	if _, err := svc.ListChats(ctx, ""); !errors.Is(err, tandemerrors.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRenameDeleteMessage(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c, _ := svc.CreateChat(ctx, "u1", "t", "", "", "")
	svc.Send(ctx, c.ID, "一", chat.Turn{UserID: "u1"})

	renamed, err := svc.RenameChat(ctx, "u1", c.ID, " Nouveau ")
	if err != nil {
		t.Fatalf("RenameChat failed: %v", err)
	}
	if renamed.Title != "Nouveau" {
		t.Errorf("expected trimmed title, got %q", renamed.Title)
	}
	if _, err := svc.RenameChat(ctx, "u1", c.ID, ""); !errors.Is(err, tandemerrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	stored, _ := svc.GetChat(ctx, "u1", c.ID)
	if err := svc.DeleteMessage(ctx, "u1", stored.Messages[1].ID, true); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	stored, _ = svc.GetChat(ctx, "u1", c.ID)
	if len(stored.Messages) != 2 {
		t.Errorf("expected 2 messages after only-after delete, got %d", len(stored.Messages))
	}

	if err := svc.DeleteMessage(ctx, "u1", stored.Messages[1].ID, false); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	stored, _ = svc.GetChat(ctx, "u1", c.ID)
	if len(stored.Messages) != 1 {
		t.Errorf("expected 1 message after inclusive delete, got %d", len(stored.Messages))
	}
}

func TestFieldFor(t *testing.T) {
	tests := map[tutor.Action]message.Field{
		tutor.ActionContent:     message.FieldContent,
		tutor.ActionRegenerate:  message.FieldContent,
		tutor.ActionCorrection:  message.FieldCorrection,
		tutor.ActionExplanation: message.FieldExplanation,
		tutor.ActionExamples:    message.FieldExamples,
	}
	for action, want := range tests {
		if got := chat.FieldFor(action); got != want {
			t.Errorf("FieldFor(%s) = %s, want %s", action, got, want)
		}
	}
}
