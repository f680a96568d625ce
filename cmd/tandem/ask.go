package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/mcp"
	"github.com/sweetpotato0/tandem/tutor"
)

type askOptions struct {
	action   string
	message  string
	target   string
	source   string
	topic    string
	model    string
	user     string
	endpoint string
}

func newAskCommand() *cobra.Command {
	opts := askOptions{}

	askCmd := &cobra.Command{
		Use:   "ask",
		Short: "Run one tutor action and stream the result to stdout",
		Long: `Runs a single generation locally, or against a tandem MCP server with --endpoint.

Example:
  tandem ask --action correction --message "我昨天去商店了买苹果" --target Chinois --source Français`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	askCmd.Flags().StringVarP(&opts.action, "action", "a", string(tutor.ActionContent), "content, regenerate, correction, explanation or examples")
	askCmd.Flags().StringVarP(&opts.message, "message", "m", "", "message to reply to or annotate")
	askCmd.Flags().StringVar(&opts.target, "target", chat.DefaultTargetLang, "language being learned")
	askCmd.Flags().StringVar(&opts.source, "source", chat.DefaultSourceLang, "learner's language")
	askCmd.Flags().StringVar(&opts.topic, "topic", "", "role-play scenario")
	askCmd.Flags().StringVar(&opts.model, "model", "", "model identifier (defaults to the configured model)")
	askCmd.Flags().StringVar(&opts.user, "user", "cli", "identity used to look up API keys")
	askCmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "streamable HTTP endpoint of a tandem MCP server")
	return askCmd
}

// printer writes only the part of each cumulative fragment not yet printed.
type printer struct {
	w       io.Writer
	printed string
}

func (p *printer) fragment(text string) {
	if strings.HasPrefix(text, p.printed) {
		fmt.Fprint(p.w, text[len(p.printed):])
	} else {
		fmt.Fprint(p.w, "\n"+text)
	}
	p.printed = text
}

func (p *printer) finish(result string) {
	if result != p.printed {
		p.fragment(result)
	}
	fmt.Fprintln(p.w)
}

func runAsk(ctx context.Context, w io.Writer, opts askOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := &printer{w: w}

	if opts.endpoint != "" {
		client, err := mcp.NewStreamableClient(ctx, opts.endpoint)
		if err != nil {
			return err
		}
		defer client.Close()

		result, err := client.Generate(ctx, mcp.GenerateArgs{
			Action:         opts.action,
			Message:        opts.message,
			TargetLanguage: opts.target,
			SourceLanguage: opts.source,
			Topic:          opts.topic,
			Model:          opts.model,
			UserID:         opts.user,
		}, out.fragment)
		if err != nil {
			return err
		}
		out.finish(result)
		return nil
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	result, err := a.tutor.Generate(ctx, &tutor.Request{
		Action:         tutor.Action(opts.action),
		TargetMessage:  opts.message,
		TargetLanguage: opts.target,
		SourceLanguage: opts.source,
		Topic:          opts.topic,
		Model:          opts.model,
		UserID:         opts.user,
	}, out.fragment)
	if err != nil {
		fmt.Fprintln(os.Stderr)
		return err
	}
	out.finish(result)
	return nil
}
