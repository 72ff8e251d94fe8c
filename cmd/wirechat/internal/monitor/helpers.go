package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/wirechat/cmd/wirechat/internal"
	"github.com/tinyland-inc/wirechat/pkg/admin"
	"github.com/tinyland-inc/wirechat/pkg/logger"
)

func monitorCmd(userID, name, token string, debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	sess, err := internal.NewSession(userID, name, token, true)
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}

	mon, err := admin.NewMonitor(cfg, sess)
	if err != nil {
		return fmt.Errorf("error creating monitor: %w", err)
	}
	defer mon.Close()

	ctx := context.Background()
	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("error starting monitor: %w", err)
	}

	stats := mon.Stats()
	fmt.Printf("%s Admin console: %d users, %d chats, %d active today\n\n",
		internal.Logo, stats.Users, stats.Chats, stats.MessagesToday)
	consoleLoop(ctx, mon)

	return nil
}

func consoleLoop(ctx context.Context, mon *admin.Monitor) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          internal.Logo + " admin > ",
		HistoryFile:     filepath.Join(os.TempDir(), ".wirechat_admin_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		runCommand(ctx, mon, input)
	}
}

func runCommand(ctx context.Context, mon *admin.Monitor, input string) {
	parts := strings.Fields(input)
	args := parts[1:]

	switch parts[0] {
	case "help":
		printHelp()
	case "stats":
		stats := mon.Stats()
		fmt.Printf("users: %d  chats: %d  active today: %d\n",
			stats.Users, stats.Chats, stats.MessagesToday)
	case "users":
		for i, u := range mon.Users() {
			fmt.Printf("%3d. %s <%s> (%s)\n", i+1, u.DisplayName, u.Email, u.ID)
		}
	case "chats":
		printChats(mon)
	case "watch":
		if len(args) != 1 {
			fmt.Println("usage: watch <number|chat-id>")
			return
		}
		watchChat(ctx, mon, args[0])
	case "messages":
		printMessages(mon)
	case "terminate":
		if len(args) != 1 {
			fmt.Println("usage: terminate <user-id>")
			return
		}
		if err := mon.TerminateUser(ctx, args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("User %s terminated\n", args[0])
	case "refresh":
		if err := mon.Refresh(ctx); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Println("Refreshed")
	default:
		fmt.Printf("Unknown command %s (help for commands)\n", parts[0])
	}
}

func printHelp() {
	fmt.Println(`Commands:
  stats                     show dashboard counters
  users                     list all users
  chats                     list all chats
  watch <number|chat-id>    follow a chat's messages live
  messages                  show the watched chat's messages
  terminate <user-id>       delete a user account
  refresh                   re-fetch users and chats
  exit                      quit`)
}

func printChats(mon *admin.Monitor) {
	active := mon.Registry().ActiveID()
	for i, c := range mon.Registry().List() {
		marker := " "
		if c.ID == active {
			marker = "*"
		}
		label := c.DisplayName
		if label == "" {
			label = c.ID
		}
		fmt.Printf("%s %2d. %s (%d participants)\n", marker, i+1, label, len(c.Participants))
	}
}

func watchChat(ctx context.Context, mon *admin.Monitor, arg string) {
	chatID := arg
	if n, err := strconv.Atoi(arg); err == nil {
		chats := mon.Registry().List()
		if n < 1 || n > len(chats) {
			fmt.Printf("No chat %d\n", n)
			return
		}
		chatID = chats[n-1].ID
	}
	mon.SelectChat(ctx, chatID)
	fmt.Printf("Watching %s\n", chatID)
}

func printMessages(mon *admin.Monitor) {
	active := mon.Registry().ActiveID()
	if active == "" {
		fmt.Println("No chat watched")
		return
	}
	if mon.Messages().Fetching(active) {
		fmt.Println("(still loading history)")
	}
	for i, m := range mon.Messages().Messages(active) {
		fmt.Printf("%3d. %s: %s\n", i+1, m.SenderName, m.Content)
	}
}
