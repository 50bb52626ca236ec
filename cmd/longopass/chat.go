package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgard/longopass/internal/bot/handlers"
	"github.com/edgard/longopass/internal/recommend"
	"github.com/edgard/longopass/internal/widget"
)

const chatHelp = `Commands:
  /open             open the chat
  /close            close the chat
  /plan <plan>      switch to free or premium
  /user <id>        switch user
  /quiz <json>      analyze quiz answers
  /lab <json>       analyze lab results
  /quit             exit
Anything else is sent to the chat.`

func newChatCmd(a *app) *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the AI in an interactive terminal widget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runChat(cmd.Context(), persist)
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "Keep the session in redis between runs (needs redis.enabled)")
	return cmd
}

func (a *app) runChat(ctx context.Context, persist bool) error {
	c, err := a.newClient(nil)
	if err != nil {
		return err
	}

	cat, _, closeCatalog, err := a.openCatalog()
	if err != nil {
		return err
	}
	defer closeCatalog()

	opts := []widget.Option{
		widget.WithMessages(handlers.WidgetMessages(a.cfg.Messages)),
		widget.WithEngine(recommend.NewEngine(cat, a.log)),
		widget.WithLogger(a.log),
	}

	if persist {
		if !a.cfg.Redis.Enabled {
			return fmt.Errorf("--persist needs redis.enabled")
		}
		store, closeStore, err := a.openSessions(ctx, true)
		if err != nil {
			return err
		}
		defer closeStore()

		key := "cli:" + c.UserID()
		if saved, ok, err := store.Load(ctx, key); err != nil {
			a.log.Warn("Failed to load saved session", "key", key, "error", err)
		} else if ok {
			opts = append(opts, widget.WithSession(saved))
		}
		opts = append(opts, widget.WithStateStore(store, key))
	}

	w := widget.New(c, widget.NewTextRenderer(a.out), opts...)
	fmt.Fprintln(a.out, chatHelp)
	if err := w.Open(ctx); err != nil {
		a.log.Debug("Open did not start a conversation", "error", err)
	}

	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if done := a.chatLine(ctx, w, scanner.Text()); done {
			break
		}
	}
	w.Close(ctx)
	return scanner.Err()
}

// chatLine handles one REPL line and reports whether the session is over.
func (a *app) chatLine(ctx context.Context, w *widget.Widget, line string) bool {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(a.out, chatHelp)
	case "/open":
		err = w.Open(ctx)
	case "/close":
		w.Close(ctx)
	case "/plan":
		err = w.SetPlan(ctx, arg)
	case "/user":
		w.SetUserID(ctx, arg)
	case "/quiz":
		err = w.Dispatch(ctx, widget.EventQuiz, json.RawMessage(arg))
	case "/lab":
		err = w.Dispatch(ctx, widget.EventLab, json.RawMessage(arg))
	default:
		err = w.Send(ctx, line)
	}
	if err != nil {
		a.log.Debug("Chat action failed", "command", cmd, "error", err)
	}
	return false
}
