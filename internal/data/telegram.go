package data

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// MaxMessageLength is the Telegram limit for one text message
const MaxMessageLength = 4096

// TelegramConfig contains Bot API client settings
type TelegramConfig struct {
	Token       string
	APIEndpoint string // format string "<base>/bot%s/%s"; empty uses tgbotapi.APIEndpoint
	HTTPTimeout time.Duration
}

// telegramRepo implements the Transport repository on the Bot API
type telegramRepo struct {
	bot          *tgbotapi.BotAPI
	client       *http.Client
	fileEndpoint string
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// NewTelegramRepo connects to the Bot API. It fails if the token is rejected.
func NewTelegramRepo(cfg TelegramConfig, logger *slog.Logger) (repo.TransportRepo, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connecting to Telegram: %w", err)
	}
	logger = logging.Component(logger, logging.CompTransport)
	if err := tgbotapi.SetLogger(&botLogger{logger: logger}); err != nil {
		logger.Warn("failed to set telegram library logger", "error", err)
	}
	logger.Info("connected to Telegram", "bot", bot.Self.UserName)

	return &telegramRepo{
		bot:          bot,
		client:       client,
		fileEndpoint: strings.Replace(endpoint, "/bot%s/", "/file/bot%s/", 1),
		// Telegram allows ~30 messages per second across chats
		limiter: rate.NewLimiter(rate.Every(time.Second/20), 5),
		logger:  logger,
	}, nil
}

// GetUpdates long-polls for message updates starting at offset
func (r *telegramRepo) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]domain.Update, error) {
	cfg := tgbotapi.UpdateConfig{
		Offset:         offset,
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: []string{"message"},
	}

	type result struct {
		updates []tgbotapi.Update
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		updates, err := r.bot.GetUpdates(cfg)
		ch <- result{updates, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.err != nil {
		return nil, fmt.Errorf("getUpdates: %w", res.err)
	}

	out := make([]domain.Update, 0, len(res.updates))
	for _, u := range res.updates {
		if cu, ok := convertUpdate(u); ok {
			out = append(out, cu)
		} else {
			// Keep the id so the cursor still advances past it
			out = append(out, domain.Update{ID: u.UpdateID})
		}
	}
	return out, nil
}

// SendText sends text to a chat, split into Telegram-sized chunks
func (r *telegramRepo) SendText(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("sendMessage: %w", err)
		}
	}
	return nil
}

// SendFile uploads path as a document with an optional caption
func (r *telegramRepo) SendFile(ctx context.Context, chatID int64, path, caption string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	if _, err := r.bot.Send(doc); err != nil {
		return fmt.Errorf("sendDocument: %w", err)
	}
	return nil
}

// SendTyping shows the typing indicator for ~5 seconds
func (r *telegramRepo) SendTyping(ctx context.Context, chatID int64) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := r.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return fmt.Errorf("sendChatAction: %w", err)
	}
	return nil
}

// FileURL resolves a file id to a download URL
func (r *telegramRepo) FileURL(ctx context.Context, fileID string) (string, error) {
	file, err := r.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("getFile: %w", err)
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("getFile: no file path for %s", fileID)
	}
	return fmt.Sprintf(r.fileEndpoint, r.bot.Token, file.FilePath), nil
}

// Fetch opens a download stream for url
func (r *telegramRepo) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// convertUpdate maps a Bot API update onto the domain. ok is false for
// updates that carry no message.
func convertUpdate(u tgbotapi.Update) (domain.Update, bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return domain.Update{}, false
	}

	out := domain.Update{
		ID:         u.UpdateID,
		ChatID:     msg.Chat.ID,
		SenderName: senderName(msg),
		Text:       msg.Text,
		Caption:    msg.Caption,
	}

	switch {
	case msg.Document != nil:
		out.Attachment = &domain.Attachment{Kind: domain.AttachmentDocument, FileID: msg.Document.FileID, FileName: msg.Document.FileName, Size: int64(msg.Document.FileSize)}
	case len(msg.Photo) > 0:
		largest := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.Width*p.Height > largest.Width*largest.Height {
				largest = p
			}
		}
		out.Attachment = &domain.Attachment{Kind: domain.AttachmentPhoto, FileID: largest.FileID, Size: int64(largest.FileSize)}
	case msg.Voice != nil:
		out.Attachment = &domain.Attachment{Kind: domain.AttachmentVoice, FileID: msg.Voice.FileID, Size: int64(msg.Voice.FileSize)}
	case msg.Audio != nil:
		out.Attachment = &domain.Attachment{Kind: domain.AttachmentAudio, FileID: msg.Audio.FileID, FileName: msg.Audio.FileName, Size: int64(msg.Audio.FileSize)}
	case msg.Video != nil:
		out.Attachment = &domain.Attachment{Kind: domain.AttachmentVideo, FileID: msg.Video.FileID, FileName: msg.Video.FileName, Size: int64(msg.Video.FileSize)}
	case msg.VideoNote != nil:
		out.Attachment = &domain.Attachment{Kind: domain.AttachmentVideoNote, FileID: msg.VideoNote.FileID, Size: int64(msg.VideoNote.FileSize)}
	case msg.Sticker != nil:
		out.Attachment = &domain.Attachment{Kind: domain.AttachmentSticker, FileID: msg.Sticker.FileID, Size: int64(msg.Sticker.FileSize)}
	}
	return out, true
}

func senderName(msg *tgbotapi.Message) string {
	if msg.From != nil {
		if msg.From.FirstName != "" {
			return msg.From.FirstName
		}
		if msg.From.UserName != "" {
			return msg.From.UserName
		}
	}
	if msg.Chat != nil && msg.Chat.Title != "" {
		return msg.Chat.Title
	}
	return "Unknown"
}

// SplitMessage cuts text into chunks of at most limit runes, preferring
// newline boundaries
func SplitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// botLogger routes tgbotapi's internal logging into slog
type botLogger struct {
	logger *slog.Logger
}

func (l *botLogger) Println(v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l *botLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
