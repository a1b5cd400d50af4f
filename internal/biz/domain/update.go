package domain

// AttachmentKind is the type of a non-text inbound message
type AttachmentKind string

const (
	AttachmentDocument  AttachmentKind = "document"
	AttachmentPhoto     AttachmentKind = "photo"
	AttachmentAudio     AttachmentKind = "audio"
	AttachmentVoice     AttachmentKind = "voice"
	AttachmentVideo     AttachmentKind = "video"
	AttachmentVideoNote AttachmentKind = "video_note"
	AttachmentSticker   AttachmentKind = "sticker"
)

// Attachment is a remote file reference carried by an update
type Attachment struct {
	Kind     AttachmentKind
	FileID   string
	FileName string // name hint, used for the local file name
	Size     int64  // declared size, 0 when unknown
}

// IsVoice reports whether the attachment should be transcribed
func (a *Attachment) IsVoice() bool {
	return a != nil && a.Kind == AttachmentVoice
}

// Update is one inbound record read from the upstream transport
type Update struct {
	ID         int
	ChatID     int64
	SenderName string
	Text       string
	Caption    string
	Attachment *Attachment
}

// HasText reports whether the update carries message text
func (u *Update) HasText() bool {
	return u.Text != ""
}
