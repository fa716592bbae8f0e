// Package relay translates forwarding directives into Telegram Bot API
// calls and runs the worker loop that drains the post bus.
package relay

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"

	"github.com/tinyland-inc/relaybot/pkg/forward"
)

// Executor issues the platform call for one directive. Implementations own
// all transport concerns; the decision pipeline never sees them.
type Executor interface {
	Execute(ctx context.Context, d forward.Directive) error
}

// botAPI is the slice of the telego.Bot surface the executor needs.
// *telego.Bot satisfies it; tests substitute a recorder.
type botAPI interface {
	CopyMessage(ctx context.Context, params *telego.CopyMessageParams) (*telego.MessageID, error)
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
	SendVideo(ctx context.Context, params *telego.SendVideoParams) (*telego.Message, error)
	SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error)
}

// Telegram executes directives against the Telegram Bot API.
type Telegram struct {
	bot botAPI
}

func NewTelegram(bot *telego.Bot) *Telegram {
	return &Telegram{bot: bot}
}

// ChatID converts a stored channel identifier (numeric id or bare username)
// into a telego chat reference.
func ChatID(identifier string) telego.ChatID {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return telego.ChatID{ID: id}
	}
	return telego.ChatID{Username: "@" + identifier}
}

func (t *Telegram) Execute(ctx context.Context, d forward.Directive) error {
	switch d.Kind {
	case forward.DirectiveCopy:
		params := &telego.CopyMessageParams{
			ChatID:     ChatID(d.Target),
			FromChatID: ChatID(d.FromChatID),
			MessageID:  d.MessageID,
		}
		if d.Caption != nil {
			params.Caption = *d.Caption
			params.ParseMode = telego.ModeHTML
		}
		_, err := t.bot.CopyMessage(ctx, params)
		return err

	case forward.DirectiveSendText:
		_, err := t.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID:    ChatID(d.Target),
			Text:      d.Text,
			ParseMode: telego.ModeHTML,
		})
		return err

	case forward.DirectiveSendMedia:
		return t.sendMedia(ctx, d)

	default:
		return fmt.Errorf("unknown directive kind %q", d.Kind)
	}
}

func (t *Telegram) sendMedia(ctx context.Context, d forward.Directive) error {
	caption := ""
	if d.Caption != nil {
		caption = *d.Caption
	}
	file := telego.InputFile{FileID: d.FileRef}

	switch d.Media {
	case forward.MediaPhoto:
		_, err := t.bot.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID:    ChatID(d.Target),
			Photo:     file,
			Caption:   caption,
			ParseMode: telego.ModeHTML,
		})
		return err
	case forward.MediaVideo:
		_, err := t.bot.SendVideo(ctx, &telego.SendVideoParams{
			ChatID:    ChatID(d.Target),
			Video:     file,
			Caption:   caption,
			ParseMode: telego.ModeHTML,
		})
		return err
	case forward.MediaDocument:
		// Animations arrive here too; the decider downgrades them to the
		// document primitive.
		_, err := t.bot.SendDocument(ctx, &telego.SendDocumentParams{
			ChatID:    ChatID(d.Target),
			Document:  file,
			Caption:   caption,
			ParseMode: telego.ModeHTML,
		})
		return err
	default:
		return fmt.Errorf("unsendable media kind %q", d.Media)
	}
}
