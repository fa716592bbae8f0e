// Package forward implements the forwarding decision pipeline: given an
// inbound channel post and a configuration snapshot, decide whether it came
// from a recognized source channel and which relay primitive to use.
//
// Everything in this package is a pure function of its inputs. It performs
// no I/O and holds no state between calls.
package forward

import (
	"strconv"

	"github.com/mymmrac/telego"
)

// MediaKind classifies the relay-relevant media attached to a post.
type MediaKind string

const (
	MediaNone      MediaKind = "none"
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaDocument  MediaKind = "document"
	MediaAnimation MediaKind = "animation"
	MediaOther     MediaKind = "other"
)

// Post is a decoded channel post, reduced to the fields the decision
// pipeline needs.
type Post struct {
	ChatID    string
	Username  string
	MessageID int
	Text      string
	Caption   string
	Media     MediaKind
	FileRef   string
}

// FromMessage builds a Post from a Telegram channel-post message.
//
// Photo posts carry their resolution variants smallest-to-largest; the last
// element is the largest, and that is the one relayed. Posts with no
// recognized media and no plain text fall into MediaOther (stickers, voice,
// polls, ...).
func FromMessage(msg *telego.Message) Post {
	p := Post{
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Username:  msg.Chat.Username,
		MessageID: msg.MessageID,
		Text:      msg.Text,
		Caption:   msg.Caption,
		Media:     MediaOther,
	}

	switch {
	case len(msg.Photo) > 0:
		p.Media = MediaPhoto
		p.FileRef = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		p.Media = MediaVideo
		p.FileRef = msg.Video.FileID
	case msg.Document != nil:
		p.Media = MediaDocument
		p.FileRef = msg.Document.FileID
	case msg.Animation != nil:
		p.Media = MediaAnimation
		p.FileRef = msg.Animation.FileID
	case msg.Text != "":
		p.Media = MediaNone
	}

	return p
}
