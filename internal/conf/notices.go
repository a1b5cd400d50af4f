package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/devricklin/telegram-session-relay/internal/biz/usecase"
)

// NoticesConfig contains the user-visible chat notices loaded from YAML.
// Empty fields fall back to the built-in defaults.
type NoticesConfig struct {
	Registry   RegistryNotices   `yaml:"registry"`
	Delivery   DeliveryNotices   `yaml:"delivery"`
	Attachment AttachmentNotices `yaml:"attachment"`
	Peer       PeerNotices       `yaml:"peer"`

	// Path the notices were loaded from, empty for defaults
	Source string `yaml:"-"`
}

// RegistryNotices are sent by the authorization flow
type RegistryNotices struct {
	Welcome         string `yaml:"welcome"`
	NotAuthorized   string `yaml:"not_authorized"`
	ApprovalRequest string `yaml:"approval_request"`
	AllowConfirmed  string `yaml:"allow_confirmed"`
	AllowUsage      string `yaml:"allow_usage"`
	AccessGranted   string `yaml:"access_granted"`
}

// DeliveryNotices are sent while relaying turns
type DeliveryNotices struct {
	Throttled          string `yaml:"throttled"`
	SessionUnreachable string `yaml:"session_unreachable"`
	Unsupported        string `yaml:"unsupported"`
}

// AttachmentNotices are sent while resolving files and voice messages
type AttachmentNotices struct {
	FileTooLarge        string `yaml:"file_too_large"`
	Downloading         string `yaml:"downloading"`
	Transcribing        string `yaml:"transcribing"`
	DownloadFailed      string `yaml:"download_failed"`
	TranscriptionFailed string `yaml:"transcription_failed"`
	FileReference       string `yaml:"file_reference"`
	FileCaption         string `yaml:"file_caption"`
}

// PeerNotices are sent to the owner about the peer link
type PeerNotices struct {
	Alert string `yaml:"alert"`
}

// LoadNoticesConfig loads notices from YAML. With an empty path the usual
// locations are searched; if none exists the defaults are used.
func LoadNoticesConfig(configPath string) (*NoticesConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/notices.yaml",
			filepath.Join(DefaultHome(), "notices.yaml"),
			"/etc/telegram-session-relay/notices.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "notices.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		if b, err := os.ReadFile(p); err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return DefaultNoticesConfig(), fmt.Errorf("notices file %s not found", configPath)
		}
		return DefaultNoticesConfig(), nil
	}

	var config NoticesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return DefaultNoticesConfig(), fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}
	config.Source = loadedPath
	return &config, nil
}

// DefaultNoticesConfig returns the built-in notices
func DefaultNoticesConfig() *NoticesConfig {
	d := usecase.DefaultNotices
	return &NoticesConfig{
		Registry: RegistryNotices{
			Welcome:         d.Welcome,
			NotAuthorized:   d.NotAuthorized,
			ApprovalRequest: d.ApprovalRequest,
			AllowConfirmed:  d.AllowConfirmed,
			AllowUsage:      d.AllowUsage,
			AccessGranted:   d.AccessGranted,
		},
		Delivery: DeliveryNotices{
			Throttled:          d.Throttled,
			SessionUnreachable: d.SessionUnreachable,
			Unsupported:        d.Unsupported,
		},
		Attachment: AttachmentNotices{
			FileTooLarge:        d.FileTooLarge,
			Downloading:         d.Downloading,
			Transcribing:        d.Transcribing,
			DownloadFailed:      d.DownloadFailed,
			TranscriptionFailed: d.TranscriptionFailed,
			FileReference:       d.FileReference,
			FileCaption:         d.FileCaption,
		},
		Peer: PeerNotices{
			Alert: d.PeerAlert,
		},
	}
}

// ToNotices flattens the YAML layout. Missing entries are filled with
// defaults by the usecases.
func (c *NoticesConfig) ToNotices() usecase.Notices {
	return usecase.Notices{
		Welcome:             c.Registry.Welcome,
		NotAuthorized:       c.Registry.NotAuthorized,
		ApprovalRequest:     c.Registry.ApprovalRequest,
		AllowConfirmed:      c.Registry.AllowConfirmed,
		AllowUsage:          c.Registry.AllowUsage,
		AccessGranted:       c.Registry.AccessGranted,
		Throttled:           c.Delivery.Throttled,
		SessionUnreachable:  c.Delivery.SessionUnreachable,
		Unsupported:         c.Delivery.Unsupported,
		FileTooLarge:        c.Attachment.FileTooLarge,
		Downloading:         c.Attachment.Downloading,
		Transcribing:        c.Attachment.Transcribing,
		DownloadFailed:      c.Attachment.DownloadFailed,
		TranscriptionFailed: c.Attachment.TranscriptionFailed,
		FileReference:       c.Attachment.FileReference,
		FileCaption:         c.Attachment.FileCaption,
		PeerAlert:           c.Peer.Alert,
	}
}
