package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-alan/internal/log"
	"github.com/teslashibe/go-alan/pkg/device"
	"github.com/teslashibe/go-alan/pkg/protocol"
)

var (
	serverURL string
	deviceID  string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "alan-console",
	Short:         "Terminal device for the Alan assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Init(logLevel)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		url := strings.TrimSuffix(serverURL, "/") + "/ws/device/" + deviceID
		client, err := device.Dial(ctx, url)
		if err != nil {
			return err
		}
		defer client.Close()

		c := newConsole(client, cmd.OutOrStdout())
		c.system("connected to " + url)
		return c.run(ctx, cmd.InOrStdin(), client.Run)
	},
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "url", "ws://localhost:8080", "Assistant base URL")
	rootCmd.Flags().StringVar(&deviceID, "id", "console", "Device ID")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level")
}

var (
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff"))
	playerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#d2a8ff"))
)

// sender is the part of device.Client the console writes to.
type sender interface {
	SendPhrase(text string) error
	SendRecognized(id, text string) error
	SendMediaState(state string, volume int) error
	SendMediaEnded() error
}

// console simulates the microphone and the player.
type console struct {
	client sender
	out    io.Writer

	mu         sync.Mutex
	continuous bool
	pending    string // recognize request id awaiting an answer
	track      string
	state      string
	volume     int
}

func newConsole(client sender, out io.Writer) *console {
	return &console{client: client, out: out, state: "stopped"}
}

// run feeds hub messages from recv to handle and typed lines to input
// until ctx is done, the input ends or recv fails.
func (c *console) run(ctx context.Context, in io.Reader, recv func(context.Context, func(*protocol.Message)) error) error {
	errc := make(chan error, 1)
	go func() { errc <- recv(ctx, c.handle) }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.input(line); quit {
				return nil
			}
		}
	}
}

// input handles one typed line and reports whether to exit.
func (c *console) input(line string) bool {
	text := strings.TrimSpace(line)

	switch text {
	case "/quit":
		return true
	case "/end":
		c.mu.Lock()
		c.state = "stopped"
		c.mu.Unlock()
		c.report(c.client.SendMediaEnded())
		return false
	}

	c.mu.Lock()
	id := c.pending
	c.pending = ""
	continuous := c.continuous
	c.mu.Unlock()

	switch {
	case id != "":
		// Empty input answers with silence.
		c.report(c.client.SendRecognized(id, text))
	case text == "":
	case continuous:
		c.report(c.client.SendPhrase(text))
	default:
		c.system("not listening")
	}
	return false
}

// handle applies one hub command.
func (c *console) handle(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeListen:
		var cmd protocol.ListenCommand
		if err := msg.ParseData(&cmd); err != nil {
			c.system("bad listen command: " + err.Error())
			return
		}
		c.mu.Lock()
		c.continuous = cmd.Continuous
		c.mu.Unlock()
		if cmd.Continuous {
			c.system("listening for the wake phrase")
		} else {
			c.system("continuous listening off")
		}

	case protocol.TypeRecognize:
		var cmd protocol.RecognizeCommand
		if err := msg.ParseData(&cmd); err != nil {
			c.system("bad recognize command: " + err.Error())
			return
		}
		c.mu.Lock()
		c.pending = msg.ID
		c.mu.Unlock()
		prompt := "your answer"
		if cmd.Grammar != "" {
			prompt += " (" + cmd.Grammar + ")"
		}
		c.print(promptStyle.Render("🎤 " + prompt + " >"))

	case protocol.TypeSpeak:
		var data protocol.SpeakData
		if err := msg.ParseData(&data); err != nil {
			c.system("bad speak command: " + err.Error())
			return
		}
		line := "Alan: " + data.Text
		if data.Data != "" {
			line += systemStyle.Render(fmt.Sprintf(" [%s audio, %d bytes base64]", data.Format, len(data.Data)))
		}
		c.print(assistantStyle.Render(line))

	case protocol.TypeMedia:
		var cmd protocol.MediaCommand
		if err := msg.ParseData(&cmd); err != nil {
			c.system("bad media command: " + err.Error())
			return
		}
		c.player(cmd)

	case protocol.TypePong, protocol.TypePing:

	default:
		c.system("unhandled message: " + string(msg.Type))
	}
}

func (c *console) player(cmd protocol.MediaCommand) {
	c.mu.Lock()
	switch cmd.Action {
	case protocol.MediaLoad:
		c.track = cmd.Track
		c.state = "stopped"
	case protocol.MediaPlay:
		c.state = "playing"
	case protocol.MediaPause:
		c.state = "paused"
	case protocol.MediaVolume:
		c.volume = cmd.Volume
	}
	track, state, volume := c.track, c.state, c.volume
	c.mu.Unlock()

	c.print(playerStyle.Render(fmt.Sprintf("♪ %s %s (volume %d)", state, track, volume)))
	if cmd.Action != protocol.MediaVolume {
		c.report(c.client.SendMediaState(state, volume))
	}
}

func (c *console) report(err error) {
	if err != nil {
		c.system("send failed: " + err.Error())
	}
}

func (c *console) system(s string) {
	c.print(systemStyle.Render("· " + s))
}

func (c *console) print(s string) {
	fmt.Fprintln(c.out, s)
}
