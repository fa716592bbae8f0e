package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/tinyland-inc/relaybot/pkg/config"
	"github.com/tinyland-inc/relaybot/pkg/logger"
	"github.com/tinyland-inc/relaybot/pkg/rules"
)

// commandHandler processes one admin command. args is the text after the
// command token, already trimmed.
type commandHandler func(ctx context.Context, chatID, userID int64, args string)

// commandTable wires the slash-command lookup table. Routing is a map, not
// a string-equality chain.
func (s *Server) commandTable() map[string]commandHandler {
	return map[string]commandHandler{
		"/help":               s.cmdHelp,
		"/status":             s.cmdStatus,
		"/channels":           s.cmdChannels,
		"/target":             s.cmdTarget,
		"/replacements":       s.cmdReplacements,
		"/start_forwarding":   s.cmdStartForwarding,
		"/stop_forwarding":    s.cmdStopForwarding,
		"/admins":             s.cmdAdmins,
		"/add_admin":          s.cmdAddAdmin,
		"/remove_admin":       s.cmdRemoveAdmin,
		"/add_channel":        s.cmdAddChannel,
		"/remove_channel":     s.cmdRemoveChannel,
		"/set_target":         s.cmdSetTarget,
		"/clear_target":       s.cmdClearTarget,
		"/add_link":           s.addRuleCommand(rules.CategoryLinks, "link", "old_link|new_link"),
		"/remove_link":        s.removeRuleCommand(rules.CategoryLinks, "link", "old_link"),
		"/add_word":           s.addRuleCommand(rules.CategoryWords, "word", "old_word|new_word"),
		"/remove_word":        s.removeRuleCommand(rules.CategoryWords, "word", "old_word"),
		"/add_sentence":       s.addRuleCommand(rules.CategorySentences, "sentence", "old_sentence|new_sentence"),
		"/remove_sentence":    s.removeRuleCommand(rules.CategorySentences, "sentence", "old_sentence"),
		"/clear_replacements": s.cmdClearReplacements,
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.Text == "" || msg.From == nil {
		return
	}

	text := strings.TrimSpace(msg.Text)
	userID := msg.From.ID
	chatID := msg.Chat.ID

	name := text
	args := ""
	if idx := strings.IndexAny(text, " \t\n"); idx > 0 {
		name = text[:idx]
		args = strings.TrimSpace(text[idx:])
	}
	// "/status@relaybot" addresses this bot in a group.
	if at := strings.Index(name, "@"); at > 0 {
		name = name[:at]
	}

	if name == "/start" {
		s.cmdStart(ctx, chatID, userID)
		return
	}

	if !s.store.HasAdmins() && s.isAwaitingFirstAdmin(chatID) {
		s.handleFirstAdminReply(ctx, chatID, text)
		return
	}

	if !s.store.IsAdmin(userID) {
		s.reply(ctx, chatID, "❌ You are not authorized to use this bot. Contact an admin.")
		return
	}

	handler, ok := s.commands[name]
	if !ok {
		s.reply(ctx, chatID, "Unknown command. Use /help for a list of commands.")
		return
	}
	handler(ctx, chatID, userID, args)
}

func (s *Server) isAwaitingFirstAdmin(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitingFirstAdmin[chatID]
}

func (s *Server) setAwaitingFirstAdmin(chatID int64, waiting bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if waiting {
		s.awaitingFirstAdmin[chatID] = true
	} else {
		delete(s.awaitingFirstAdmin, chatID)
	}
}

func (s *Server) handleFirstAdminReply(ctx context.Context, chatID int64, text string) {
	adminID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		s.reply(ctx, chatID, "❌ Invalid user ID. Please send a valid number.")
		return
	}

	if err := s.store.AddAdmin(adminID); err != nil && !errors.Is(err, config.ErrDuplicate) {
		logger.ErrorCF("gateway", "Failed to store first admin", map[string]any{"error": err.Error()})
		s.reply(ctx, chatID, "❌ An error occurred while saving the admin.")
		return
	}
	s.setAwaitingFirstAdmin(chatID, false)

	logger.InfoCF("gateway", "Initial admin configured", map[string]any{"user_id": adminID})
	s.reply(ctx, chatID, fmt.Sprintf(
		"✅ User ID <code>%d</code> has been set as the first admin.\nYou can now use /start to see available commands.", adminID))
}

func (s *Server) cmdStart(ctx context.Context, chatID, userID int64) {
	if !s.store.HasAdmins() {
		s.setAwaitingFirstAdmin(chatID, true)
		s.reply(ctx, chatID,
			"Welcome! No admins are configured yet. To become the first admin, reply with your Telegram user ID.\n\n"+
				"<b>How to find your user ID:</b> a bot like @userinfobot will tell you. It is a number like <code>123456789</code>.")
		return
	}
	if !s.store.IsAdmin(userID) {
		s.reply(ctx, chatID, "❌ You are not authorized to use this bot. Contact an admin.")
		return
	}

	s.reply(ctx, chatID, `<b>Channel Relay Bot</b>

Available commands:
/status - Check bot status
/channels - Manage source channels
/target - Manage the target channel
/replacements - Manage text replacements
/start_forwarding - Start forwarding
/stop_forwarding - Stop forwarding
/help - Show command examples

The bot relays posts from public source channels to the target channel, rewriting text on the way.`)
}

func (s *Server) cmdHelp(ctx context.Context, chatID, _ int64, _ string) {
	s.reply(ctx, chatID, `<b>Command examples</b>

Forwarding control:
<code>/start_forwarding</code> / <code>/stop_forwarding</code>

Admins:
<code>/admins</code>
<code>/add_admin 123456789</code>
<code>/remove_admin 123456789</code>

Source channels:
<code>/add_channel @channelname</code> or <code>/add_channel -1001234567890</code>
<code>/remove_channel @channelname</code>

Target channel:
<code>/set_target @mytarget</code> or <code>/set_target -1001234567890</code>
<code>/clear_target</code>

Replacements:
<code>/add_link old.com|new.com</code> / <code>/remove_link old.com</code>
<code>/add_word hello|hi</code> / <code>/remove_word hello</code>
<code>/add_sentence old text|new text</code> / <code>/remove_sentence old text</code>
<code>/clear_replacements all</code> (or links/words/sentences)

Quick setup: add channels, set a target, then /start_forwarding.
The bot must be an admin of the target channel.`)
}

func (s *Server) cmdStatus(ctx context.Context, chatID, _ int64, _ string) {
	st := s.store.Status()
	forwarding := "❌ Inactive"
	if st.ForwardingEnabled {
		forwarding = "✅ Active"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Bot Status</b>\n\n")
	fmt.Fprintf(&b, "Forwarding: %s\n", forwarding)
	fmt.Fprintf(&b, "Source channels: %d\n", st.SourceChannels)
	fmt.Fprintf(&b, "Target channel: <code>%s</code>\n", st.TargetChannel)
	fmt.Fprintf(&b, "Active replacements: %d\n", st.ActiveReplacements)

	sources := s.store.Sources()
	if len(sources) > 0 {
		b.WriteString("\n<b>Source channels:</b>\n")
		for _, ch := range sources {
			fmt.Fprintf(&b, "• <code>%s</code>\n", ch)
		}
	}
	s.reply(ctx, chatID, b.String())
}

func (s *Server) cmdChannels(ctx context.Context, chatID, _ int64, _ string) {
	sources := s.store.Sources()
	var b strings.Builder
	b.WriteString("<b>Source channels</b>\n\n")
	if len(sources) == 0 {
		b.WriteString("None configured.\n")
	} else {
		for _, ch := range sources {
			fmt.Fprintf(&b, "• <code>%s</code>\n", ch)
		}
	}
	b.WriteString("\nAdd with <code>/add_channel @name</code>, remove with <code>/remove_channel @name</code>.")
	s.reply(ctx, chatID, b.String())
}

func (s *Server) cmdTarget(ctx context.Context, chatID, _ int64, _ string) {
	target := s.store.Target()
	if target == "" {
		target = "Not set"
	}
	s.reply(ctx, chatID, fmt.Sprintf(`<b>Target channel</b>

Current target: <code>%s</code>

Set with <code>/set_target @channel_username</code> or <code>/set_target -1001234567890</code>.
Clear with <code>/clear_target</code>.

The bot must be added as admin to the target channel.`, target))
}

func (s *Server) cmdReplacements(ctx context.Context, chatID, _ int64, _ string) {
	rs := s.store.Rules()

	var b strings.Builder
	b.WriteString("<b>All replacements</b>\n\n")
	writeRuleSection(&b, "Links", rs.Links)
	writeRuleSection(&b, "Words", rs.Words)
	writeRuleSection(&b, "Sentences", rs.Sentences)
	if rs.Count() == 0 {
		b.WriteString("No replacements configured.\n")
	}
	b.WriteString("\nManage with /add_link, /add_word, /add_sentence and their remove/clear counterparts.")
	s.reply(ctx, chatID, b.String())
}

func writeRuleSection(b *strings.Builder, title string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	fmt.Fprintf(b, "<b>%s:</b>\n", title)
	for old, repl := range m {
		fmt.Fprintf(b, "• <code>%s</code> → <code>%s</code>\n", old, repl)
	}
	b.WriteString("\n")
}

func (s *Server) cmdStartForwarding(ctx context.Context, chatID, _ int64, _ string) {
	if s.store.Target() == "" {
		s.reply(ctx, chatID, "❌ Target channel not set. Use /set_target first.")
		return
	}
	if len(s.store.Sources()) == 0 {
		s.reply(ctx, chatID, "❌ No source channels added. Use /add_channel first.")
		return
	}
	if err := s.store.SetEnabled(true); err != nil {
		s.replyStoreError(ctx, chatID, err)
		return
	}
	s.reply(ctx, chatID, "✅ Forwarding started. Posts from source channels will be relayed.")
}

func (s *Server) cmdStopForwarding(ctx context.Context, chatID, _ int64, _ string) {
	if err := s.store.SetEnabled(false); err != nil {
		s.replyStoreError(ctx, chatID, err)
		return
	}
	s.reply(ctx, chatID, "⏹ Forwarding stopped.")
}

func (s *Server) cmdAdmins(ctx context.Context, chatID, _ int64, _ string) {
	var b strings.Builder
	b.WriteString("<b>Admin users</b>\n\n")
	for _, id := range s.store.Admins() {
		fmt.Fprintf(&b, "• <code>%d</code>\n", id)
	}
	b.WriteString("\nAdd with <code>/add_admin 123456789</code>, remove with <code>/remove_admin 123456789</code>.")
	s.reply(ctx, chatID, b.String())
}

func (s *Server) cmdAddAdmin(ctx context.Context, chatID, userID int64, args string) {
	adminID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		s.reply(ctx, chatID, "Usage: <code>/add_admin 123456789</code>")
		return
	}

	switch err := s.store.AddAdmin(adminID); {
	case errors.Is(err, config.ErrDuplicate):
		s.reply(ctx, chatID, fmt.Sprintf("ℹ️ User <code>%d</code> is already an admin.", adminID))
	case err != nil:
		s.replyStoreError(ctx, chatID, err)
	default:
		logger.InfoCF("gateway", "Admin added", map[string]any{"by": userID, "admin_id": adminID})
		s.reply(ctx, chatID, fmt.Sprintf("✅ Added admin: <code>%d</code>", adminID))
	}
}

func (s *Server) cmdRemoveAdmin(ctx context.Context, chatID, userID int64, args string) {
	adminID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		s.reply(ctx, chatID, "Usage: <code>/remove_admin 123456789</code>")
		return
	}
	if adminID == userID {
		s.reply(ctx, chatID, "❌ You cannot remove yourself as an admin.")
		return
	}

	switch err := s.store.RemoveAdmin(adminID); {
	case errors.Is(err, config.ErrNotFound):
		s.reply(ctx, chatID, fmt.Sprintf("ℹ️ User <code>%d</code> is not an admin.", adminID))
	case err != nil:
		s.replyStoreError(ctx, chatID, err)
	default:
		logger.InfoCF("gateway", "Admin removed", map[string]any{"by": userID, "admin_id": adminID})
		s.reply(ctx, chatID, fmt.Sprintf("✅ Removed admin: <code>%d</code>", adminID))
	}
}

func (s *Server) cmdAddChannel(ctx context.Context, chatID, userID int64, args string) {
	if args == "" {
		s.reply(ctx, chatID, "Usage: <code>/add_channel @channelname</code> or <code>/add_channel -1001234567890</code>")
		return
	}

	channel, err := s.store.AddSource(args)
	switch {
	case errors.Is(err, config.ErrDuplicate):
		s.reply(ctx, chatID, fmt.Sprintf("ℹ️ Channel <code>%s</code> already added.", channel))
	case err != nil:
		s.replyStoreError(ctx, chatID, err)
	default:
		logger.InfoCF("gateway", "Source channel added", map[string]any{"by": userID, "channel": channel})
		s.reply(ctx, chatID, fmt.Sprintf("✅ Added source channel: <code>%s</code>", channel))
	}
}

func (s *Server) cmdRemoveChannel(ctx context.Context, chatID, userID int64, args string) {
	if args == "" {
		s.reply(ctx, chatID, "Usage: <code>/remove_channel @channelname</code> or <code>/remove_channel -1001234567890</code>")
		return
	}

	removed, err := s.store.RemoveSource(args)
	switch {
	case errors.Is(err, config.ErrNotFound):
		s.reply(ctx, chatID, fmt.Sprintf("ℹ️ Channel <code>%s</code> not found in source channels.", strings.TrimPrefix(args, "@")))
	case err != nil:
		s.replyStoreError(ctx, chatID, err)
	default:
		logger.InfoCF("gateway", "Source channel removed", map[string]any{"by": userID, "channel": removed})
		s.reply(ctx, chatID, fmt.Sprintf("✅ Removed source channel: <code>%s</code>", removed))
	}
}

func (s *Server) cmdSetTarget(ctx context.Context, chatID, userID int64, args string) {
	if args == "" {
		s.reply(ctx, chatID, "Usage: <code>/set_target @channelname</code> or <code>/set_target -1001234567890</code>")
		return
	}

	target, err := s.store.SetTarget(args)
	switch {
	case errors.Is(err, config.ErrDuplicate):
		s.reply(ctx, chatID, fmt.Sprintf("ℹ️ Target channel is already set to: <code>%s</code>", target))
	case errors.Is(err, config.ErrEmptyEntry):
		s.reply(ctx, chatID, "Usage: <code>/set_target @channelname</code> or <code>/set_target -1001234567890</code>")
	case err != nil:
		s.replyStoreError(ctx, chatID, err)
	default:
		logger.InfoCF("gateway", "Target channel set", map[string]any{"by": userID, "target": target})
		s.reply(ctx, chatID, fmt.Sprintf("✅ Target channel set to: <code>%s</code>", target))
	}
}

func (s *Server) cmdClearTarget(ctx context.Context, chatID, userID int64, _ string) {
	old, wasEnabled, err := s.store.ClearTarget()
	switch {
	case errors.Is(err, config.ErrNotFound):
		s.reply(ctx, chatID, "ℹ️ No target channel is currently set.")
		return
	case err != nil:
		s.replyStoreError(ctx, chatID, err)
		return
	}

	if wasEnabled {
		s.reply(ctx, chatID, "⏹ Forwarding automatically stopped because the target channel was cleared.")
	}
	logger.InfoCF("gateway", "Target channel cleared", map[string]any{"by": userID, "previous": old})
	s.reply(ctx, chatID, fmt.Sprintf("✅ Target channel cleared. Previous target was: <code>%s</code>", old))
}

// addRuleCommand builds the handler for /add_link, /add_word and
// /add_sentence, which differ only in category and wording.
func (s *Server) addRuleCommand(category, noun, usage string) commandHandler {
	return func(ctx context.Context, chatID, userID int64, args string) {
		old, repl, ok := strings.Cut(args, "|")
		old = strings.TrimSpace(old)
		repl = strings.TrimSpace(repl)
		if !ok || old == "" || repl == "" {
			s.reply(ctx, chatID, fmt.Sprintf("Usage: <code>/add_%s %s</code>", noun, usage))
			return
		}

		if err := s.store.AddRule(category, old, repl); err != nil {
			s.replyStoreError(ctx, chatID, err)
			return
		}
		logger.InfoCF("gateway", "Replacement added", map[string]any{
			"by": userID, "category": category, "old": old, "new": repl,
		})
		s.reply(ctx, chatID, fmt.Sprintf("✅ Added %s replacement:\n<code>%s</code> → <code>%s</code>", noun, old, repl))
	}
}

func (s *Server) removeRuleCommand(category, noun, usage string) commandHandler {
	return func(ctx context.Context, chatID, userID int64, args string) {
		old := strings.TrimSpace(args)
		if old == "" {
			s.reply(ctx, chatID, fmt.Sprintf("Usage: <code>/remove_%s %s</code>", noun, usage))
			return
		}

		removed, err := s.store.RemoveRule(category, old)
		switch {
		case errors.Is(err, config.ErrNotFound):
			s.reply(ctx, chatID, fmt.Sprintf("❌ No %s replacement found for: <code>%s</code>", noun, old))
		case err != nil:
			s.replyStoreError(ctx, chatID, err)
		default:
			logger.InfoCF("gateway", "Replacement removed", map[string]any{
				"by": userID, "category": category, "old": old,
			})
			s.reply(ctx, chatID, fmt.Sprintf("✅ Removed %s replacement:\n<code>%s</code> → <code>%s</code>", noun, old, removed))
		}
	}
}

func (s *Server) cmdClearReplacements(ctx context.Context, chatID, userID int64, args string) {
	category := strings.ToLower(strings.TrimSpace(args))
	if category == "" {
		s.reply(ctx, chatID, `Usage:
<code>/clear_replacements all</code> - Clear all replacements
<code>/clear_replacements links</code> - Clear link replacements
<code>/clear_replacements words</code> - Clear word replacements
<code>/clear_replacements sentences</code> - Clear sentence replacements`)
		return
	}

	count, err := s.store.ClearRules(category)
	switch {
	case errors.Is(err, config.ErrUnknownCategory):
		s.reply(ctx, chatID, "❌ Invalid type. Use: all, links, words, or sentences")
	case err != nil:
		s.replyStoreError(ctx, chatID, err)
	case count == 0 && category == "all":
		s.reply(ctx, chatID, "ℹ️ No replacements to clear.")
	case count == 0:
		s.reply(ctx, chatID, fmt.Sprintf("ℹ️ No %s replacements to clear.", category))
	case category == "all":
		logger.InfoCF("gateway", "Replacements cleared", map[string]any{
			"by": userID, "category": category, "count": count,
		})
		s.reply(ctx, chatID, fmt.Sprintf("✅ Cleared all %d replacements.", count))
	default:
		logger.InfoCF("gateway", "Replacements cleared", map[string]any{
			"by": userID, "category": category, "count": count,
		})
		s.reply(ctx, chatID, fmt.Sprintf("✅ Cleared %d %s replacements.", count, category))
	}
}

func (s *Server) replyStoreError(ctx context.Context, chatID int64, err error) {
	logger.ErrorCF("gateway", "Store operation failed", map[string]any{"error": err.Error()})
	s.reply(ctx, chatID, "❌ An error occurred while updating the configuration.")
}
