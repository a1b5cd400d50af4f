package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// OwnerLookup returns the chat replies go to
type OwnerLookup func(ctx context.Context) (int64, bool, error)

// PeerSender sends a message to the paired relay
type PeerSender interface {
	Send(ctx context.Context, message string) error
}

// Options wires the tools to the relay's repositories
type Options struct {
	Notifier   repo.Notifier
	Files      repo.FileSender // nil disables telegram_send_file
	Owner      OwnerLookup
	Peer       PeerSender   // nil disables peer_send
	StopTyping func() error // creates the stop-typing marker
	Logger     *slog.Logger
}

// RelayMCPServer exposes the send side of the relay to the session as MCP tools
type RelayMCPServer struct {
	server *sdk.Server
	opts   Options
	logger *slog.Logger
}

// NewServer creates the MCP server and registers its tools
func NewServer(opts Options) *RelayMCPServer {
	server := sdk.NewServer(&sdk.Implementation{
		Name:    "telegram-relay",
		Version: "v1.0.0",
	}, nil)

	s := &RelayMCPServer{
		server: server,
		opts:   opts,
		logger: logging.Component(opts.Logger, logging.CompMCP),
	}
	s.registerTools()
	return s
}

func (s *RelayMCPServer) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "telegram_send",
		Description: "Send a message to the owner's Telegram chat. Long messages are split automatically. The typing indicator keeps running; set end_typing to true on the final message to stop it.",
	}, s.handleTelegramSend)

	if s.opts.Files != nil {
		sdk.AddTool(s.server, &sdk.Tool{
			Name:        "telegram_send_file",
			Description: "Send a local file to the owner's Telegram chat as a document.",
		}, s.handleTelegramSendFile)
	}

	if s.opts.Peer != nil {
		sdk.AddTool(s.server, &sdk.Tool{
			Name:        "peer_send",
			Description: "Send a message to the paired relay instance. It arrives in the other session as a [PEER from ...] line.",
		}, s.handlePeerSend)
	}
}

// TelegramSendInput is the input for telegram_send
type TelegramSendInput struct {
	Message   string `json:"message" jsonschema:"The message text to send"`
	EndTyping bool   `json:"end_typing,omitempty" jsonschema:"Stop the typing indicator once sent. Use on the final message."`
}

// SendOutput is the output for the send tools
type SendOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *RelayMCPServer) handleTelegramSend(ctx context.Context, req *sdk.CallToolRequest, input TelegramSendInput) (*sdk.CallToolResult, SendOutput, error) {
	if input.Message == "" {
		return nil, SendOutput{Error: "message is required"}, nil
	}

	chatID, errOut := s.ownerChat(ctx)
	if errOut != "" {
		return nil, SendOutput{Error: errOut}, nil
	}

	if input.EndTyping {
		if s.opts.StopTyping != nil {
			if err := s.opts.StopTyping(); err != nil {
				s.logger.Warn("failed to signal stop typing", "error", err)
			}
		}
	}

	if err := s.opts.Notifier.SendText(ctx, chatID, input.Message); err != nil {
		s.logger.Error("telegram_send failed", "chat_id", chatID, "error", err)
		return nil, SendOutput{Error: err.Error()}, nil
	}
	s.logger.Info("telegram_send delivered", "chat_id", chatID, "bytes", len(input.Message))
	return nil, SendOutput{Success: true}, nil
}

// TelegramSendFileInput is the input for telegram_send_file
type TelegramSendFileInput struct {
	FilePath string `json:"file_path" jsonschema:"Absolute path to the file on disk"`
	Caption  string `json:"caption,omitempty" jsonschema:"Optional caption"`
}

func (s *RelayMCPServer) handleTelegramSendFile(ctx context.Context, req *sdk.CallToolRequest, input TelegramSendFileInput) (*sdk.CallToolResult, SendOutput, error) {
	if input.FilePath == "" {
		return nil, SendOutput{Error: "file_path is required"}, nil
	}

	chatID, errOut := s.ownerChat(ctx)
	if errOut != "" {
		return nil, SendOutput{Error: errOut}, nil
	}

	if err := s.opts.Files.SendFile(ctx, chatID, input.FilePath, input.Caption); err != nil {
		s.logger.Error("telegram_send_file failed", "chat_id", chatID, "path", input.FilePath, "error", err)
		return nil, SendOutput{Error: err.Error()}, nil
	}
	s.logger.Info("telegram_send_file delivered", "chat_id", chatID, "path", input.FilePath)
	return nil, SendOutput{Success: true}, nil
}

// ownerChat resolves the reply chat or returns a message for the caller
func (s *RelayMCPServer) ownerChat(ctx context.Context) (int64, string) {
	chatID, ok, err := s.opts.Owner(ctx)
	if err != nil {
		return 0, fmt.Sprintf("failed to look up owner: %v", err)
	}
	if !ok {
		return 0, domain.ErrNoOwner.Error() + "; send the bot a message first"
	}
	return chatID, ""
}

// PeerSendInput is the input for peer_send
type PeerSendInput struct {
	Message string `json:"message" jsonschema:"The message text for the paired instance"`
}

func (s *RelayMCPServer) handlePeerSend(ctx context.Context, req *sdk.CallToolRequest, input PeerSendInput) (*sdk.CallToolResult, SendOutput, error) {
	if input.Message == "" {
		return nil, SendOutput{Error: "message is required"}, nil
	}
	if err := s.opts.Peer.Send(ctx, input.Message); err != nil {
		return nil, SendOutput{Error: err.Error()}, nil
	}
	return nil, SendOutput{Success: true}, nil
}

// Run starts the MCP server with stdio transport
func (s *RelayMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// GetServer returns the underlying MCP server
func (s *RelayMCPServer) GetServer() *sdk.Server {
	return s.server
}
