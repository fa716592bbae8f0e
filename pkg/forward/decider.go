package forward

import "github.com/tinyland-inc/relaybot/pkg/rules"

// Snapshot is an atomically-read view of the mutable configuration. The
// decider only ever sees a snapshot, never the live store, so a decision
// reflects either the pre- or post-mutation configuration but never a torn
// read.
type Snapshot struct {
	Enabled bool
	Target  string
	Sources []string
	Rules   rules.Ruleset
}

// DirectiveKind selects the relay primitive.
type DirectiveKind string

const (
	// DirectiveCopy relays the original message verbatim via the copy
	// primitive, preserving attachments and formatting entities.
	DirectiveCopy DirectiveKind = "copy"
	// DirectiveSendText sends freshly composed text.
	DirectiveSendText DirectiveKind = "send_text"
	// DirectiveSendMedia re-sends a media attachment with a new caption.
	DirectiveSendMedia DirectiveKind = "send_media"
)

// Directive parameterizes exactly one relay primitive for one post.
type Directive struct {
	Kind       DirectiveKind
	Target     string
	FromChatID string
	MessageID  int
	Text       string    // send_text only
	Media      MediaKind // send_media only
	FileRef    string    // send_media only
	// Caption is the new caption for send_media, or an optional caption
	// override for copy. nil means keep the original caption.
	Caption *string
}

// SuppressReason explains why a post was not relayed. Suppression is a
// normal outcome, not an error.
type SuppressReason string

const (
	ReasonDisabled  SuppressReason = "disabled"
	ReasonNoTarget  SuppressReason = "no_target"
	ReasonNotSource SuppressReason = "not_source"
)

// Result is the decider's output: either a directive or a suppression
// reason, never both and never neither.
type Result struct {
	Directive *Directive
	Reason    SuppressReason
}

// Suppressed reports whether the post was not relayed.
func (r Result) Suppressed() bool { return r.Directive == nil }

func suppress(reason SuppressReason) Result {
	return Result{Reason: reason}
}

// Decide runs the full forwarding decision for one post against one
// configuration snapshot. It never fails: every input yields either a
// directive or a typed suppression.
//
// Verbatim copy is preferred whenever content is unchanged because it
// preserves platform-native metadata a reconstructed send cannot replicate;
// re-sending is used only when content must differ from the original.
func Decide(post Post, snap Snapshot) Result {
	if !snap.Enabled {
		return suppress(ReasonDisabled)
	}
	if snap.Target == "" {
		return suppress(ReasonNoTarget)
	}
	if !IsSource(post.ChatID, post.Username, snap.Sources) {
		return suppress(ReasonNotSource)
	}

	newText := snap.Rules.Apply(post.Text)
	newCaption := snap.Rules.Apply(post.Caption)
	textChanged := newText != post.Text
	captionChanged := newCaption != post.Caption

	base := Directive{
		Kind:       DirectiveCopy,
		Target:     snap.Target,
		FromChatID: post.ChatID,
		MessageID:  post.MessageID,
	}

	switch post.Media {
	case MediaPhoto, MediaVideo, MediaDocument:
		if captionChanged {
			base.Kind = DirectiveSendMedia
			base.Media = post.Media
			base.FileRef = post.FileRef
			base.Caption = &newCaption
		}
	case MediaAnimation:
		// Animations go out through the document primitive; there is no
		// dedicated animation relay.
		if captionChanged {
			base.Kind = DirectiveSendMedia
			base.Media = MediaDocument
			base.FileRef = post.FileRef
			base.Caption = &newCaption
		}
	case MediaNone:
		if textChanged {
			base.Kind = DirectiveSendText
			base.Text = newText
		}
	default:
		// Stickers, voice, polls and anything unrecognized: copy verbatim,
		// overriding the caption only when one exists and changed.
		if post.Caption != "" && captionChanged {
			base.Caption = &newCaption
		}
	}

	return Result{Directive: &base}
}
