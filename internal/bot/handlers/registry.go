package handlers

import (
	"sort"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/longopass/internal/telegram"
)

var commandDescriptions = map[string]string{
	"start":   "Start and open the chat",
	"help":    "Show available commands",
	"open":    "Open the chat",
	"close":   "Close the chat",
	"quiz":    "Analyze quiz answers (JSON)",
	"lab":     "Analyze lab results (JSON)",
	"history": "Show this conversation",
	"health":  "Check the AI service",
	"plan":    "Change plan (admin)",
	"userid":  "Change user id (admin)",
}

// RegisterAllCommands initializes and returns a map of all available bot commands.
// Every command is rate limited per chat; plan and user changes are admin only.
func RegisterAllCommands(deps HandlerDeps) map[string]telegram.RegisteredHandler {
	handlers := make(map[string]telegram.RegisteredHandler)

	limited := []tgbot.Middleware{RateLimit(deps)}
	adminMiddleware := []tgbot.Middleware{RateLimit(deps), AdminOnly(deps)}

	command := func(name string, h tgbot.HandlerFunc, mw []tgbot.Middleware) {
		handlers["/"+name] = telegram.RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     name,
			Handler:     h,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  mw,
		}
	}

	command("start", NewStartHandler(deps), limited)
	command("help", NewHelpHandler(deps), limited)
	command("open", NewOpenHandler(deps), limited)
	command("close", NewCloseHandler(deps), limited)
	command("quiz", NewQuizHandler(deps), limited)
	command("lab", NewLabHandler(deps), limited)
	command("history", NewHistoryHandler(deps), limited)
	command("health", NewHealthHandler(deps), limited)
	command("plan", NewPlanHandler(deps), adminMiddleware)
	command("userid", NewUserIDHandler(deps), adminMiddleware)

	return handlers
}

// DefaultHandler handles every message no command matched.
func DefaultHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return telegram.ApplyMiddleware(NewMessageHandler(deps), []tgbot.Middleware{RateLimit(deps)})
}

// Commands lists the command menu, sorted by name.
func Commands() []models.BotCommand {
	cmds := make([]models.BotCommand, 0, len(commandDescriptions))
	for name, desc := range commandDescriptions {
		cmds = append(cmds, models.BotCommand{Command: name, Description: desc})
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Command < cmds[j].Command })
	return cmds
}
