package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"arc-onboarding/internal/onboarding"
)

// inboundFromUpdate maps a private-chat message to an applicant event. Commands are
// treated as plain text.
func inboundFromUpdate(update tgbotapi.Update) (Inbound, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return Inbound{}, false
	}
	if !msg.Chat.IsPrivate() || msg.From.IsBot {
		return Inbound{}, false
	}

	ev := onboarding.Event{
		MessageID: msg.MessageID,
		Username:  msg.From.UserName,
	}
	switch {
	case len(msg.Photo) > 0 || isImageDocument(msg.Document):
		ev.Kind = onboarding.EventPhoto
	case strings.TrimSpace(msg.Text) != "":
		ev.Kind = onboarding.EventText
		ev.Text = msg.Text
	default:
		ev.Kind = onboarding.EventOther
	}

	return Inbound{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		FirstName: strings.TrimSpace(msg.From.FirstName),
		Event:     ev,
	}, true
}

// Screenshots sent "as file" arrive as documents.
func isImageDocument(doc *tgbotapi.Document) bool {
	return doc != nil && strings.HasPrefix(doc.MimeType, "image/")
}
