package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"refbot/internal/model"
	"refbot/internal/service"
	"refbot/pkg/logger"

	"go.uber.org/zap"
)

const (
	msgUnauthorized   = "You are not authorized to perform this action."
	msgRestricted     = "This command is restricted to admins."
	msgCancelled      = "Action Successfully cancelled"
	msgOptions        = "Here are your options:"
	msgFailure        = "❌ Something went wrong. Please try again later."
	msgSessionActive  = "Finish the current action first or use /cancel."
	msgNotRegistered  = "You are not registered as a user. Send /start to register."
	msgReferralBonus  = "You have received a referral bonus!"
	msgDownlineBonus  = "You have received a downline bonus!"
	msgJoinedThanks   = "Thanks for joining! Send /start to continue."
	msgStillNotJoined = "You haven't joined all the required chats yet."

	unknownHint = "You have sent a message directly into the bot's chat or the menu " +
		"structure has been modified by an admin.\n\n" +
		"ℹ️ Do not send messages directly to the bot or reload the menu by pressing /start"
)

type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, markup *model.Markup) error
	SendMedia(ctx context.Context, chatID int64, mediaRef, caption string, markup *model.Markup) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

type Services struct {
	Ledger      service.LedgerServiceI
	Registry    *service.CommandRegistry
	Dispatcher  *service.Dispatcher
	Gate        *service.Gate
	Authoring   *service.Authoring
	Admins      *service.AdminService
	Settings    *service.SettingsService
	Broadcaster *service.Broadcaster
}

// Handler routes inbound events: broadcast source posts, join re-checks,
// authoring sessions, built-in commands and finally stored triggers.
type Handler struct {
	transport Transport
	notifier  *Notifier
	botName   string
	svc       Services

	builtins map[string]func(ctx context.Context, ev model.Event, args []string)
	flows    map[string]service.Flow
}

func NewHandler(transport Transport, botName string, svc Services) *Handler {
	h := &Handler{
		transport: transport,
		notifier:  NewNotifier(transport),
		botName:   botName,
		svc:       svc,
	}

	h.builtins = map[string]func(ctx context.Context, ev model.Event, args []string){
		"start":                h.start,
		"help":                 h.help,
		"affiliate":            h.affiliate,
		"set_ref_earning":      h.setRefEarning,
		"set_downline_earning": h.setDownlineEarning,
		"set_chats":            h.setChats,
		"strict_join":          h.strictJoin,
		"set_broadcast":        h.setBroadcast,
		"adjust_earnings":      h.adjustEarnings,
	}

	h.flows = map[string]service.Flow{
		"addcommand":    service.FlowAddCommand,
		"editcommand":   service.FlowEditCommand,
		"deletecommand": service.FlowDeleteCommand,
		"addadmin":      service.FlowAddAdmin,
		"deleteadmin":   service.FlowDeleteAdmin,
	}

	return h
}

func (h *Handler) Handle(ctx context.Context, ev model.Event) {
	if ev.Callback != nil {
		h.handleCallback(ctx, ev)
		return
	}

	if ev.ChatType != model.ChatTypePrivate {
		h.handleBroadcastSource(ctx, ev)
		return
	}

	if ev.SenderID == 0 {
		return
	}

	name, args := splitCommand(ev.Text)

	if name == "start" {
		h.register(ctx, ev, args)
	}

	if name == "cancel" {
		h.svc.Authoring.Cancel(ev.SenderID)
		h.send(ctx, ev.ChatID, msgCancelled, &model.Markup{RemoveKeyboard: true})
		return
	}

	prompt, handled, err := h.svc.Authoring.Handle(ctx, ev.SenderID, service.Input{Text: ev.Text, PhotoID: ev.PhotoID})
	if handled {
		if err != nil {
			logger.Logger().Error("authoring step failed",
				zap.Int64("telegram_id", ev.SenderID),
				zap.Error(err))
			h.send(ctx, ev.ChatID, msgFailure, &model.Markup{RemoveKeyboard: true})
			return
		}
		h.sendPrompt(ctx, ev.ChatID, prompt)
		return
	}

	if strings.TrimSpace(ev.Text) == "" {
		return
	}

	if flow, ok := h.flows[name]; ok {
		h.startFlow(ctx, ev, flow)
		return
	}

	if builtin, ok := h.builtins[name]; ok {
		builtin(ctx, ev, args)
		return
	}

	h.dispatch(ctx, ev, ev.Text)
}

// register runs on /start only; the first argument is the referral code.
func (h *Handler) register(ctx context.Context, ev model.Event, args []string) {
	var code string
	if len(args) > 0 {
		code = args[0]
	}

	reg, err := h.svc.Ledger.RegisterUser(ctx, &model.User{
		TelegramID: ev.SenderID,
		Username:   ev.Username,
		FirstName:  ev.FirstName,
		LastName:   ev.LastName,
	}, code)
	if err != nil {
		logger.Logger().Error("failed to register user",
			zap.Int64("telegram_id", ev.SenderID),
			zap.Error(err))
		return
	}

	h.notifier.NotifyRegistration(ctx, reg)
}

func (h *Handler) handleCallback(ctx context.Context, ev model.Event) {
	log := logger.Logger()

	if ev.Callback.Data != service.JoinCheckCallback {
		if err := h.transport.AnswerCallback(ctx, ev.Callback.ID, ""); err != nil {
			log.Warn("failed to answer callback", zap.Error(err))
		}
		return
	}

	if !h.svc.Gate.CheckMembership(ctx, ev.SenderID) {
		if err := h.transport.AnswerCallback(ctx, ev.Callback.ID, msgStillNotJoined); err != nil {
			log.Warn("failed to answer callback", zap.Error(err))
		}
		return
	}

	if err := h.transport.AnswerCallback(ctx, ev.Callback.ID, ""); err != nil {
		log.Warn("failed to answer callback", zap.Error(err))
	}
	h.send(ctx, ev.ChatID, msgJoinedThanks, nil)
}

func (h *Handler) handleBroadcastSource(ctx context.Context, ev model.Event) {
	if ev.ChatType != model.ChatTypeChannel && ev.ChatType != model.ChatTypeSupergroup && ev.ChatType != model.ChatTypeGroup {
		return
	}

	settings, err := h.svc.Settings.Get(ctx)
	if err != nil {
		logger.Logger().Error("failed to load settings", zap.Error(err))
		return
	}
	if !isBroadcastSource(settings.BroadcastChat, ev) {
		return
	}

	if _, err := h.svc.Broadcaster.Forward(ctx, ev.ChatID, ev.MessageID); err != nil {
		logger.Logger().Error("broadcast failed",
			zap.Int64("chat_id", ev.ChatID),
			zap.Error(err))
	}
}

func isBroadcastSource(configured string, ev model.Event) bool {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return false
	}
	if configured == strconv.FormatInt(ev.ChatID, 10) {
		return true
	}
	return ev.ChatName != "" && strings.EqualFold(strings.TrimPrefix(configured, "@"), ev.ChatName)
}

func (h *Handler) startFlow(ctx context.Context, ev model.Event, flow service.Flow) {
	prompt, err := h.svc.Authoring.Start(ctx, ev.SenderID, flow)
	switch {
	case err == nil:
		h.sendPrompt(ctx, ev.ChatID, prompt)
	case errors.Is(err, service.ErrForbidden):
		h.send(ctx, ev.ChatID, msgUnauthorized, nil)
	case errors.Is(err, service.ErrSessionActive):
		h.send(ctx, ev.ChatID, msgSessionActive, nil)
	default:
		logger.Logger().Error("failed to start authoring",
			zap.Int64("telegram_id", ev.SenderID),
			zap.Error(err))
		h.send(ctx, ev.ChatID, msgFailure, nil)
	}
}

// passesGate lets admins through and shows the join prompt to everyone else
// who fails the membership check.
func (h *Handler) passesGate(ctx context.Context, ev model.Event) bool {
	if ok, err := h.svc.Admins.IsAdmin(ctx, ev.SenderID); err == nil && ok {
		return true
	}
	if h.svc.Gate.CheckMembership(ctx, ev.SenderID) {
		return true
	}

	prompt, err := h.svc.Gate.JoinPrompt(ctx)
	if err != nil {
		logger.Logger().Error("failed to build join prompt", zap.Error(err))
		h.send(ctx, ev.ChatID, msgFailure, nil)
		return false
	}
	h.sendReply(ctx, ev.ChatID, prompt)
	return false
}

func (h *Handler) dispatch(ctx context.Context, ev model.Event, text string) {
	if !h.passesGate(ctx, ev) {
		return
	}

	reply, err := h.svc.Dispatcher.Resolve(ctx, text, ev.SenderID)
	switch {
	case err == nil:
		h.sendReply(ctx, ev.ChatID, reply)
	case errors.Is(err, service.ErrCommandNotFound):
		if service.IsSlashCommand(text) {
			h.send(ctx, ev.ChatID, "❌ Unknown Command!\n\n"+unknownHint, nil)
		} else {
			h.send(ctx, ev.ChatID, "❌ Unknown Message!\n\n"+unknownHint, nil)
		}
	case errors.Is(err, service.ErrForbidden):
		h.send(ctx, ev.ChatID, msgRestricted, nil)
	default:
		logger.Logger().Error("failed to resolve trigger",
			zap.Int64("telegram_id", ev.SenderID),
			zap.String("trigger", text),
			zap.Error(err))
		h.send(ctx, ev.ChatID, msgFailure, nil)
	}
}

func (h *Handler) start(ctx context.Context, ev model.Event, _ []string) {
	h.dispatch(ctx, ev, "/start")
}

func (h *Handler) help(ctx context.Context, ev model.Event, _ []string) {
	if !h.passesGate(ctx, ev) {
		return
	}

	entries, err := h.svc.Registry.ListPublic(ctx)
	if err != nil {
		logger.Logger().Error("failed to list commands", zap.Error(err))
		h.send(ctx, ev.ChatID, msgFailure, nil)
		return
	}

	h.send(ctx, ev.ChatID, HelpText(entries), nil)
}

func HelpText(entries []*model.CommandEntry) string {
	var b strings.Builder
	b.WriteString("Available commands:\n\n")
	for _, e := range entries {
		if e.IsCommand {
			b.WriteString("/")
		}
		b.WriteString(e.Trigger)
		if e.Description != "" {
			b.WriteString(": " + e.Description)
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) affiliate(ctx context.Context, ev model.Event, _ []string) {
	if !h.passesGate(ctx, ev) {
		return
	}

	stats, err := h.svc.Ledger.ReferralStats(ctx, ev.SenderID)
	switch {
	case err == nil:
		h.send(ctx, ev.ChatID, AffiliateText(stats, h.botName), nil)
	case errors.Is(err, service.ErrUserNotFound):
		h.send(ctx, ev.ChatID, msgNotRegistered, nil)
	default:
		logger.Logger().Error("failed to get referral stats",
			zap.Int64("telegram_id", ev.SenderID),
			zap.Error(err))
		h.send(ctx, ev.ChatID, msgFailure, nil)
	}
}

func AffiliateText(stats *model.ReferralStats, botName string) string {
	return fmt.Sprintf("👤 Your Affiliate Information\n\n"+
		"👥 Referrals: %d\n"+
		"💰 Earnings: %s\n"+
		"💸 Downline Earnings: %s\n"+
		"🔗 Referral Link: %s",
		stats.Count,
		formatAmount(stats.Earnings),
		formatAmount(stats.DownlineEarnings),
		model.ReferralLink(botName, stats.Code))
}

func (h *Handler) requireAdmin(ctx context.Context, ev model.Event) bool {
	ok, err := h.svc.Admins.IsAdmin(ctx, ev.SenderID)
	if err != nil {
		logger.Logger().Error("failed to check admin",
			zap.Int64("telegram_id", ev.SenderID),
			zap.Error(err))
		h.send(ctx, ev.ChatID, msgFailure, nil)
		return false
	}
	if !ok {
		h.send(ctx, ev.ChatID, msgUnauthorized, nil)
		return false
	}
	return true
}

func (h *Handler) setRefEarning(ctx context.Context, ev model.Event, args []string) {
	h.setAmount(ctx, ev, args, "/set_ref_earning", "Referral earning", h.svc.Settings.SetReferralEarning)
}

func (h *Handler) setDownlineEarning(ctx context.Context, ev model.Event, args []string) {
	h.setAmount(ctx, ev, args, "/set_downline_earning", "Downline earning", h.svc.Settings.SetDownlineEarning)
}

func (h *Handler) setAmount(ctx context.Context, ev model.Event, args []string, command, label string,
	set func(ctx context.Context, amount float64) (*model.Settings, error)) {
	if !h.requireAdmin(ctx, ev) {
		return
	}

	usage := "Usage: " + command + " <amount>"
	if len(args) != 1 {
		h.send(ctx, ev.ChatID, usage, nil)
		return
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		h.send(ctx, ev.ChatID, usage, nil)
		return
	}

	if _, err := set(ctx, amount); err != nil {
		if errors.Is(err, service.ErrParse) {
			h.send(ctx, ev.ChatID, usage, nil)
			return
		}
		h.fail(ctx, ev, "failed to update settings", err)
		return
	}
	h.send(ctx, ev.ChatID, fmt.Sprintf("%s set to %s", label, formatAmount(amount)), nil)
}

func (h *Handler) setChats(ctx context.Context, ev model.Event, args []string) {
	if !h.requireAdmin(ctx, ev) {
		return
	}

	var chats []string
	for _, part := range strings.Split(strings.Join(args, " "), ",") {
		if part = strings.TrimSpace(part); part != "" {
			chats = append(chats, part)
		}
	}

	settings, err := h.svc.Settings.SetChatsToJoin(ctx, chats)
	if err != nil {
		h.fail(ctx, ev, "failed to update settings", err)
		return
	}
	if len(settings.ChatsToJoin) == 0 {
		h.send(ctx, ev.ChatID, "Required chats cleared.", nil)
		return
	}
	h.send(ctx, ev.ChatID, "Required chats set to: "+strings.Join(settings.ChatsToJoin, ", "), nil)
}

func (h *Handler) strictJoin(ctx context.Context, ev model.Event, args []string) {
	if !h.requireAdmin(ctx, ev) {
		return
	}

	if len(args) != 1 {
		h.send(ctx, ev.ChatID, "Usage: /strict_join on|off", nil)
		return
	}

	var strict bool
	switch strings.ToLower(args[0]) {
	case "on", "yes", "true":
		strict = true
	case "off", "no", "false":
	default:
		h.send(ctx, ev.ChatID, "Usage: /strict_join on|off", nil)
		return
	}

	if _, err := h.svc.Settings.SetStrictJoin(ctx, strict); err != nil {
		h.fail(ctx, ev, "failed to update settings", err)
		return
	}
	if strict {
		h.send(ctx, ev.ChatID, "Strict join enabled.", nil)
	} else {
		h.send(ctx, ev.ChatID, "Strict join disabled.", nil)
	}
}

func (h *Handler) setBroadcast(ctx context.Context, ev model.Event, args []string) {
	if !h.requireAdmin(ctx, ev) {
		return
	}

	if len(args) != 1 {
		h.send(ctx, ev.ChatID, "Usage: /set_broadcast <chat id>", nil)
		return
	}

	if _, err := h.svc.Settings.SetBroadcastChat(ctx, args[0]); err != nil {
		h.fail(ctx, ev, "failed to update settings", err)
		return
	}
	h.send(ctx, ev.ChatID, "Broadcast chat set to "+args[0], nil)
}

func (h *Handler) adjustEarnings(ctx context.Context, ev model.Event, args []string) {
	if !h.requireAdmin(ctx, ev) {
		return
	}

	usage := "Usage: /adjust_earnings <telegram id> <delta>"
	if len(args) != 2 {
		h.send(ctx, ev.ChatID, usage, nil)
		return
	}
	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.send(ctx, ev.ChatID, usage, nil)
		return
	}
	delta, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		h.send(ctx, ev.ChatID, usage, nil)
		return
	}

	user, err := h.svc.Ledger.AdjustEarnings(ctx, telegramID, delta)
	switch {
	case err == nil:
		h.send(ctx, ev.ChatID, fmt.Sprintf("Earnings of %d are now %s", telegramID, formatAmount(user.Earnings)), nil)
	case errors.Is(err, service.ErrUserNotFound):
		h.send(ctx, ev.ChatID, "User not found.", nil)
	default:
		h.fail(ctx, ev, "failed to adjust earnings", err)
	}
}

func (h *Handler) fail(ctx context.Context, ev model.Event, msg string, err error) {
	logger.Logger().Error(msg,
		zap.Int64("telegram_id", ev.SenderID),
		zap.Error(err))
	h.send(ctx, ev.ChatID, msgFailure, nil)
}

func (h *Handler) sendReply(ctx context.Context, chatID int64, reply *model.RenderedReply) {
	log := logger.Logger()

	var inline *model.Markup
	if len(reply.Inline) > 0 {
		inline = &model.Markup{Inline: reply.Inline}
	}

	var err error
	if reply.ImageURL != "" {
		err = h.transport.SendMedia(ctx, chatID, reply.ImageURL, reply.Text, inline)
	} else {
		err = h.transport.SendText(ctx, chatID, reply.Text, inline)
	}
	if err != nil {
		log.Warn("failed to send reply",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return
	}

	if len(reply.Keyboard) > 0 {
		h.send(ctx, chatID, msgOptions, &model.Markup{Keyboard: reply.Keyboard})
	}
}

func (h *Handler) sendPrompt(ctx context.Context, chatID int64, p *service.Prompt) {
	markup := &model.Markup{Keyboard: p.Keyboard, RemoveKeyboard: p.RemoveKeyboard && len(p.Keyboard) == 0}
	h.send(ctx, chatID, p.Text, markup)
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, markup *model.Markup) {
	if err := h.transport.SendText(ctx, chatID, text, markup); err != nil {
		logger.Logger().Warn("failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

// splitCommand returns the normalized command name and its arguments, or an
// empty name when text is not a slash command.
func splitCommand(text string) (string, []string) {
	if !service.IsSlashCommand(text) {
		return "", nil
	}
	fields := strings.Fields(text)
	return model.NormalizeCommandTrigger(fields[0]), fields[1:]
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
