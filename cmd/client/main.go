package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/sharetube/jukebox/internal/client"
	"github.com/sharetube/jukebox/internal/client/reconciler"
	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/pkg/ctxlogger"
)

// consolePlayer stands in for a media player, media loads instantly.
type consolePlayer struct {
	playing bool
}

func (p *consolePlayer) Stop() {
	p.playing = false
}

func (p *consolePlayer) Toggle() bool {
	p.playing = !p.playing
	fmt.Printf("player playing=%t\n", p.playing)
	return p.playing
}

func printRows(rows []reconciler.Row) {
	fmt.Println("---")
	for _, row := range rows {
		marker := " "
		if row.IsPlaying {
			marker = ">"
		}
		liked := ""
		if row.LikedByMe {
			liked = " (liked)"
		}
		fmt.Printf("%s %s %q by %s, %d votes%s\n",
			marker, row.Item.Id, row.Item.Media.Title, row.AuthorLabel(), row.Item.Upvotes, liked)
	}
}

const usage = `commands:
  add <videoId> [title]  queue a video
  vote <itemId>          toggle your vote
  play                   play or pause (owner)
  next                   play the best ranked item (owner)
  quit`

func runCommand(ctx context.Context, s *client.Session, line, userId string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	return s.Do(ctx, func(r *reconciler.Reconciler) error {
		switch fields[0] {
		case "add":
			if len(fields) < 2 {
				return fmt.Errorf("usage: add <videoId> [title]")
			}
			_, err := r.AddItem(userId, domain.Media{
				ExternalId: fields[1],
				Title:      strings.Join(fields[2:], " "),
			})
			return err
		case "vote":
			if len(fields) < 2 {
				return fmt.Errorf("usage: vote <itemId>")
			}
			return r.ToggleVote(fields[1])
		case "play":
			r.MarkReady()
			return r.TogglePlay()
		case "next":
			return r.PlayNext()
		default:
			fmt.Println(usage)
			return nil
		}
	})
}

func main() {
	url := pflag.String("url", "ws://localhost:80/api/v1/ws/room", "Room websocket endpoint")
	userId := pflag.String("user", "", "User id")
	roomId := pflag.String("room", "", "Room id, equal to the user id for the owner")
	reconnect := pflag.Duration("reconnect-interval", time.Second, "Delay between connection attempts")
	logLevel := pflag.String("log-level", "WARN", "Logging level")
	pflag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(*logLevel))); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(ctxlogger.ContextHandler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}))

	if *userId == "" || *roomId == "" {
		fmt.Fprintln(os.Stderr, "--user and --room are required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := client.NewSession(&client.Config{
		URL:               *url,
		UserId:            *userId,
		RoomId:            *roomId,
		ReconnectInterval: *reconnect,
	}, &consolePlayer{})
	s.OnChange(printRows)
	s.OnError(func(msg string) {
		fmt.Printf("error: %s\n", msg)
	})

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "quit" {
				stop()
				return
			}
			if err := runCommand(ctx, s, line, *userId); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		}
		stop()
	}()

	fmt.Println(usage)
	if err := s.Run(ctx); err != nil {
		slog.Error("session failed", "error", err)
		os.Exit(1)
	}
}
