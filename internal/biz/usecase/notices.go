package usecase

import "strings"

// Notices contains the user-visible texts sent back to chats.
// Placeholders use {name} syntax and are filled by Render.
type Notices struct {
	Welcome             string
	NotAuthorized       string
	ApprovalRequest     string
	AllowConfirmed      string
	AllowUsage          string
	AccessGranted       string
	Throttled           string
	FileTooLarge        string
	Downloading         string
	Transcribing        string
	DownloadFailed      string
	TranscriptionFailed string
	Unsupported         string
	SessionUnreachable  string
	FileReference       string
	FileCaption         string
	PeerAlert           string
}

// DefaultNotices is used when no notices file is configured
var DefaultNotices = Notices{
	Welcome: "✅ Hi {sender}! I've registered your chat as the owner.\n" +
		"Your Chat ID: {chat_id}\n" +
		"Messages here will be forwarded to the session.",
	NotAuthorized: "⛔ This chat is not authorized. The owner has been notified.",
	ApprovalRequest: "🔔 New Telegram chat requesting access:\n" +
		"Name: {sender}\n" +
		"Chat ID: {chat_id}\n\n" +
		"To allow, send: /allow {chat_id}",
	AllowConfirmed:      "✅ Chat {chat_id} added to allowed list.",
	AllowUsage:          "Usage: /allow <chat_id>",
	AccessGranted:       "✅ This chat can now talk to the session.",
	Throttled:           "⚠️ Slow down, I can only handle {max} messages per {window}.",
	FileTooLarge:        "⚠️ File too large ({size}). Max is {limit}.",
	Downloading:         "📥 Downloading {file}...",
	Transcribing:        "🎙️ Transcribing voice message...",
	DownloadFailed:      "⚠️ Failed to download the file. Try again.",
	TranscriptionFailed: "⚠️ Could not transcribe voice message.",
	Unsupported:         "⚠️ Unsupported message type.",
	SessionUnreachable:  "⚠️ Failed to reach the session. Is it running?",
	FileReference:       "[File received from Telegram, use Read tool to view: {path}]",
	FileCaption:         " Caption: {caption}",
	PeerAlert:           "⚠️ Peer bridge call failed: {error}",
}

// Render fills {key} placeholders from alternating key/value pairs
func Render(tpl string, kv ...string) string {
	if len(kv) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// WithDefaults fills empty fields from DefaultNotices
func (n Notices) WithDefaults() Notices {
	d := DefaultNotices
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&n.Welcome, d.Welcome)
	fill(&n.NotAuthorized, d.NotAuthorized)
	fill(&n.ApprovalRequest, d.ApprovalRequest)
	fill(&n.AllowConfirmed, d.AllowConfirmed)
	fill(&n.AllowUsage, d.AllowUsage)
	fill(&n.AccessGranted, d.AccessGranted)
	fill(&n.Throttled, d.Throttled)
	fill(&n.FileTooLarge, d.FileTooLarge)
	fill(&n.Downloading, d.Downloading)
	fill(&n.Transcribing, d.Transcribing)
	fill(&n.DownloadFailed, d.DownloadFailed)
	fill(&n.TranscriptionFailed, d.TranscriptionFailed)
	fill(&n.Unsupported, d.Unsupported)
	fill(&n.SessionUnreachable, d.SessionUnreachable)
	fill(&n.FileReference, d.FileReference)
	fill(&n.FileCaption, d.FileCaption)
	fill(&n.PeerAlert, d.PeerAlert)
	return n
}
