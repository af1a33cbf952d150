package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Submitter hands a torrent link to a download client.
type Submitter interface {
	Submit(ctx context.Context, downloadPath, link string) error
}

var _ Submitter = (*TransmissionRemote)(nil)

// TransmissionRemote adds torrents through the transmission-remote CLI.
type TransmissionRemote struct {
	command string
	host    string // optional host[:port], passed before any option
	auth    string // optional user:password
}

func NewTransmissionRemote(command, host, auth string) *TransmissionRemote {
	if command == "" {
		command = "transmission-remote"
	}
	return &TransmissionRemote{
		command: command,
		host:    host,
		auth:    auth,
	}
}

func (t *TransmissionRemote) Submit(ctx context.Context, downloadPath, link string) error {
	if link == "" {
		return fmt.Errorf("torrent link is empty")
	}

	args := t.args(downloadPath, link)
	cmd := exec.CommandContext(ctx, t.command, args...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		out := strings.TrimSpace(output.String())
		if out != "" {
			return fmt.Errorf("%s failed: %w: %s", t.command, err, out)
		}
		return fmt.Errorf("%s failed: %w", t.command, err)
	}

	slog.Debug("Torrent submitted", "command", t.command, "download_path", downloadPath, "link", link,
		"output", strings.TrimSpace(output.String()))

	return nil
}

func (t *TransmissionRemote) args(downloadPath, link string) []string {
	var args []string
	if t.host != "" {
		args = append(args, t.host)
	}
	if t.auth != "" {
		args = append(args, "-n", t.auth)
	}
	if downloadPath != "" {
		args = append(args, "-w", downloadPath)
	}
	return append(args, "-a", link)
}
