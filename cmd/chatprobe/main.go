// chatprobe connects to a relay as one user and prints every frame it receives.
// Usage: go run ./cmd/chatprobe --url ws://localhost:3000/ws --identity alice --room general --say hi
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/model"
	"github.com/rickgao/chat-relay/internal/router"
)

func main() {
	url := flag.String("url", "ws://localhost:3000/ws", "relay WebSocket URL")
	identity := flag.String("identity", "", "identity to register")
	room := flag.String("room", "general", "room to join (empty stays idle)")
	say := flag.String("say", "", "room message to send after joining")
	to := flag.String("to", "", "send --say as a private message to this identity instead")
	history := flag.String("history", "", "request private history with this identity")
	typing := flag.Bool("typing", false, "send a typing signal before --say")
	duration := flag.Duration("duration", 0, "exit after this long (0 runs until Ctrl+C)")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *identity == "" {
		logger.Error("--identity is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	cfg := connection.DefaultClientConfig()
	cfg.URL = *url
	client := connection.NewClient(cfg, logger)
	if err := client.Connect(ctx); err != nil {
		logger.Error("failed to connect", "url", *url, "error", err)
		os.Exit(1)
	}
	defer client.Close()

	steps := []struct {
		event   string
		payload any
		skip    bool
	}{
		{router.EventRegister, map[string]string{"identity": *identity}, false},
		{router.EventJoinRoom, map[string]string{"room": *room}, *room == ""},
		{router.EventPrivateHistory, map[string]string{"with_identity": *history}, *history == ""},
		{router.EventRoomTyping, nil, !*typing || *say == "" || *to != ""},
		{router.EventPrivateTyping, map[string]string{"to_identity": *to}, !*typing || *say == "" || *to == ""},
		{router.EventRoomMessage, map[string]string{"text": *say}, *say == "" || *to != ""},
		{router.EventPrivateMessage, map[string]string{"to_identity": *to, "text": *say}, *say == "" || *to == ""},
	}
	for _, s := range steps {
		if s.skip {
			continue
		}
		if err := client.SendEvent(s.event, s.payload); err != nil {
			logger.Error("send failed", "event", s.event, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("probe running - press Ctrl+C to stop", "identity", *identity, "room", *room)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete")
			return
		case err := <-client.Errors():
			logger.Error("connection lost", "error", err)
			os.Exit(1)
		case msg := <-client.Messages():
			printFrame(msg, *verbose)
		}
	}
}

func printFrame(msg connection.TimestampedMessage, verbose bool) {
	ts := msg.ReceivedAt.Format(time.TimeOnly)
	if verbose {
		fmt.Printf("%s %s\n", ts, msg.Data)
		return
	}

	ev, err := router.Decode(msg.Data)
	if err != nil {
		fmt.Printf("%s [INVALID] %s\n", ts, msg.Data)
		return
	}

	switch ev.Type {
	case router.EventRoomMessage:
		var m model.RoomMessage
		json.Unmarshal(ev.Payload, &m)
		fmt.Printf("%s [%s] %s: %s\n", ts, m.Room, m.FromIdentity, m.Text)
	case router.EventPrivateMessage:
		var m model.PrivateMessage
		json.Unmarshal(ev.Payload, &m)
		fmt.Printf("%s [DM %s -> %s] %s\n", ts, m.FromIdentity, m.ToIdentity, m.Text)
	case router.EventRoomHistory:
		var h router.RoomHistory
		json.Unmarshal(ev.Payload, &h)
		fmt.Printf("%s [HISTORY %s] %d messages\n", ts, h.Room, len(h.Records))
		for _, m := range h.Records {
			fmt.Printf("    %s %s: %s\n", m.PersistedAt.Format(time.DateTime), m.FromIdentity, m.Text)
		}
	case router.EventPrivateHistory:
		var h router.PrivateHistory
		json.Unmarshal(ev.Payload, &h)
		fmt.Printf("%s [HISTORY with %s] %d messages\n", ts, h.WithIdentity, len(h.Records))
		for _, m := range h.Records {
			fmt.Printf("    %s %s: %s\n", m.PersistedAt.Format(time.DateTime), m.FromIdentity, m.Text)
		}
	case router.EventError:
		var e router.Error
		json.Unmarshal(ev.Payload, &e)
		fmt.Printf("%s [ERROR %s] %s\n", ts, e.Kind, e.Text)
	default:
		fmt.Printf("%s [%s] %s\n", ts, ev.Type, ev.Payload)
	}
}
