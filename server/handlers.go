package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/credential"
	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/message"
	"github.com/sweetpotato0/tandem/scenario"
	"github.com/sweetpotato0/tandem/tutor"
)

// DeleteModeOnlyAfter keeps the addressed message and removes what follows.
const DeleteModeOnlyAfter = "only-after"

type createChatRequest struct {
	Title      string `json:"title"`
	Topic      string `json:"topic"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	Model      string `json:"model"`
}

type renameChatRequest struct {
	Title string `json:"title"`
}

type generateRequest struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

type translateRequest struct {
	Text  string `json:"text"`
	From  string `json:"from"`
	To    string `json:"to"`
	Model string `json:"model"`
}

type brainstormRequest struct {
	Action       string `json:"action"`
	CurrentTopic string `json:"current_topic"`
	SourceLang   string `json:"source_lang"`
	TargetLang   string `json:"target_lang"`
	Model        string `json:"model"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return fmt.Errorf("malformed body: %w", errors.ErrInvalidInput)
	}
	return nil
}

func (s *Server) listChats(c echo.Context) error {
	chats, err := s.chats.ListChats(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chats)
}

// createChat names an untitled chat after its topic when a title can be
// generated, and falls back to the topic otherwise.
func (s *Server) createChat(c echo.Context) error {
	var req createChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	uid := userID(c)

	title := strings.TrimSpace(req.Title)
	if title == "" && strings.TrimSpace(req.Topic) != "" && s.scenarios != nil {
		generated, err := s.scenarios.Title(ctx, req.Topic, scenario.Options{
			UserID:         uid,
			Model:          req.Model,
			SourceLanguage: req.SourceLang,
			TargetLanguage: req.TargetLang,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "title generation failed", "error", err)
		} else {
			title = generated
		}
	}

	created, err := s.chats.CreateChat(ctx, uid, title, req.Topic, req.SourceLang, req.TargetLang)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) getChat(c echo.Context) error {
	found, err := s.chats.GetChat(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, found)
}

func (s *Server) renameChat(c echo.Context) error {
	var req renameChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	renamed, err := s.chats.RenameChat(c.Request().Context(), userID(c), c.Param("id"), req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, renamed)
}

func (s *Server) deleteChat(c echo.Context) error {
	if err := s.chats.DeleteChat(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// stream runs one generation, forwarding fragments as SSE and closing with
// the stored message.
func (s *Server) stream(c echo.Context, model string, run func(turn chat.Turn) (*message.Message, error)) error {
	events := newEventStream(c)
	m, err := run(chat.Turn{
		UserID:     userID(c),
		Model:      model,
		OnFragment: events.Fragment,
	})
	if err != nil {
		s.logger.WarnContext(c.Request().Context(), "generation failed", "path", c.Path(), "error", err)
	}
	return events.Finish(m, err)
}

func (s *Server) startChat(c echo.Context) error {
	var req generateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.stream(c, req.Model, func(turn chat.Turn) (*message.Message, error) {
		return s.chats.Start(c.Request().Context(), c.Param("id"), turn)
	})
}

func (s *Server) sendMessage(c echo.Context) error {
	var req generateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.stream(c, req.Model, func(turn chat.Turn) (*message.Message, error) {
		return s.chats.Send(c.Request().Context(), c.Param("id"), req.Content, turn)
	})
}

func (s *Server) messageAction(c echo.Context) error {
	var req generateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	action, err := tutor.ParseAction(c.Param("action"))
	if err != nil {
		return err
	}
	id := c.Param("id")
	return s.stream(c, req.Model, func(turn chat.Turn) (*message.Message, error) {
		if action.Annotates() {
			return s.chats.Annotate(c.Request().Context(), id, action, turn)
		}
		return s.chats.Regenerate(c.Request().Context(), id, turn)
	})
}

func (s *Server) editMessage(c echo.Context) error {
	var req generateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.stream(c, req.Model, func(turn chat.Turn) (*message.Message, error) {
		return s.chats.Edit(c.Request().Context(), c.Param("id"), req.Content, turn)
	})
}

func (s *Server) deleteMessage(c echo.Context) error {
	mode := c.QueryParam("mode")
	if mode != "" && mode != DeleteModeOnlyAfter {
		return fmt.Errorf("delete mode %q: %w", mode, errors.ErrInvalidInput)
	}
	err := s.chats.DeleteMessage(c.Request().Context(), userID(c), c.Param("id"), mode == DeleteModeOnlyAfter)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) translate(c echo.Context) error {
	var req translateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	translation, err := s.scenarios.Translate(c.Request().Context(), req.Text, req.From, req.To, scenario.Options{
		UserID: userID(c),
		Model:  req.Model,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"translation": translation})
}

func (s *Server) brainstorm(c echo.Context) error {
	var req brainstormRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := s.scenarios.Brainstorm(c.Request().Context(), req.Action, req.CurrentTopic, scenario.Options{
		UserID:         userID(c),
		Model:          req.Model,
		SourceLanguage: req.SourceLang,
		TargetLanguage: req.TargetLang,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"result": result})
}

// saveSettings stores API keys and the model preference. Empty values clear them.
func (s *Server) saveSettings(c echo.Context) error {
	var settings map[string]string
	if err := bind(c, &settings); err != nil {
		return err
	}
	for name := range settings {
		if !credential.ValidName(name) {
			return fmt.Errorf("unknown setting %q: %w", name, errors.ErrInvalidInput)
		}
	}
	ctx := c.Request().Context()
	for name, value := range settings {
		if err := s.credentials.Save(ctx, userID(c), name, value); err != nil {
			return err
		}
	}
	return c.NoContent(http.StatusNoContent)
}
