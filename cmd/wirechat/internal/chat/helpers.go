package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/wirechat/cmd/wirechat/internal"
	"github.com/tinyland-inc/wirechat/pkg/client"
	"github.com/tinyland-inc/wirechat/pkg/logger"
	"github.com/tinyland-inc/wirechat/pkg/model"
	"github.com/tinyland-inc/wirechat/pkg/upload"
)

func chatCmd(userID, name, token string, debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	sess, err := internal.NewSession(userID, name, token, false)
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}

	engine, err := client.New(cfg, sess)
	if err != nil {
		return fmt.Errorf("error creating engine: %w", err)
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("error starting engine: %w", err)
	}

	fmt.Printf("%s Connected as %s (/help for commands, Ctrl+C to exit)\n\n",
		internal.Logo, sess.DisplayName())
	interactiveMode(ctx, engine)

	return nil
}

func interactiveMode(ctx context.Context, engine *client.Engine) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          internal.Logo + " > ",
		HistoryFile:     filepath.Join(os.TempDir(), ".wirechat_history"),
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

		if strings.HasPrefix(input, "/") {
			runCommand(ctx, engine, input)
			continue
		}

		sendText(ctx, engine, input)
	}
}

func runCommand(ctx context.Context, engine *client.Engine, input string) {
	parts := strings.Fields(input)
	args := parts[1:]

	switch parts[0] {
	case "/help":
		printHelp()
	case "/chats":
		printChats(engine)
	case "/select":
		if len(args) != 1 {
			fmt.Println("usage: /select <number|chat-id>")
			return
		}
		selectChat(ctx, engine, args[0])
	case "/open":
		if len(args) != 1 {
			fmt.Println("usage: /open <user-id>")
			return
		}
		chat, err := engine.AccessChat(ctx, args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Opened %s\n", chat.Title(engine.Session().UserID()))
	case "/group":
		if len(args) < 2 {
			fmt.Println("usage: /group <name> <user-id,user-id,...>")
			return
		}
		users := strings.Split(args[len(args)-1], ",")
		name := strings.Join(args[:len(args)-1], " ")
		chat, err := engine.CreateGroupChat(ctx, name, users)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Created group %s (%s)\n", chat.DisplayName, chat.ID)
	case "/messages":
		printMessages(engine)
	case "/reply":
		if len(args) != 1 {
			fmt.Println("usage: /reply <message-number>")
			return
		}
		stageReply(engine, args[0])
	case "/attach":
		if len(args) != 1 {
			fmt.Println("usage: /attach <path>")
			return
		}
		attachFile(ctx, engine, args[0])
	case "/delete":
		if len(args) < 1 {
			fmt.Println("usage: /delete <message-number> [everyone]")
			return
		}
		deleteMessage(ctx, engine, args[0], len(args) > 1 && args[1] == "everyone")
	case "/retry":
		if !engine.Composer().CanRetry() {
			fmt.Println("Nothing to retry")
			return
		}
		if _, err := engine.Composer().Retry(ctx); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Println("Resent")
	case "/inbox":
		printInbox(engine)
	case "/who":
		peers := engine.TypingPeers()
		if len(peers) == 0 {
			fmt.Println("Nobody is typing")
			return
		}
		fmt.Printf("Typing: %s\n", strings.Join(peers, ", "))
	case "/refresh":
		if err := engine.RefreshChats(ctx); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		printChats(engine)
	default:
		fmt.Printf("Unknown command %s (/help for commands)\n", parts[0])
	}
}

func printHelp() {
	fmt.Println(`Commands:
  /chats                       list chats
  /select <number|chat-id>     open a chat
  /open <user-id>              open (or create) a direct chat
  /group <name> <u1,u2,...>    create a group chat
  /messages                    show the open chat's messages
  /reply <number>              reply to a message
  /attach <path>               upload a file for the next message
  /delete <number> [everyone]  delete a message
  /retry                       resend the last failed message
  /inbox                       show unseen messages from other chats
  /who                         show who is typing here
  /refresh                     re-fetch the chat list
  exit                         quit`)
}

func printChats(engine *client.Engine) {
	chats := engine.Registry().List()
	if len(chats) == 0 {
		fmt.Println("No chats yet. /open <user-id> starts one.")
		return
	}
	viewer := engine.Session().UserID()
	active := engine.Registry().ActiveID()
	for i, c := range chats {
		marker := " "
		if c.ID == active {
			marker = "*"
		}
		preview := ""
		if c.LatestMessage != nil {
			preview = fmt.Sprintf(" - %s: %s", c.LatestMessage.SenderName, c.LatestMessage.Content)
		}
		fmt.Printf("%s %2d. %s%s\n", marker, i+1, c.Title(viewer), preview)
	}
}

// selectChat accepts either a 1-based index into the listing or a raw id.
func selectChat(ctx context.Context, engine *client.Engine, arg string) {
	chatID := arg
	if n, err := strconv.Atoi(arg); err == nil {
		chats := engine.Registry().List()
		if n < 1 || n > len(chats) {
			fmt.Printf("No chat %d\n", n)
			return
		}
		chatID = chats[n-1].ID
	}

	engine.SelectChat(ctx, chatID)
	if chat, ok := engine.Registry().Get(chatID); ok {
		fmt.Printf("-- %s --\n", chat.Title(engine.Session().UserID()))
	}
}

func printMessages(engine *client.Engine) {
	active := engine.Registry().ActiveID()
	if active == "" {
		fmt.Println("No chat open")
		return
	}
	if engine.Messages().Fetching(active) {
		fmt.Println("(still loading history)")
	}
	for i, m := range engine.Messages().Messages(active) {
		printMessage(i+1, m)
	}
}

func printMessage(n int, m model.Message) {
	state := ""
	switch m.Delivery {
	case model.DeliveryPending:
		state = " …"
	case model.DeliveryFailed:
		state = " ✗"
	}
	if m.ReplyTo != nil {
		fmt.Printf("%3d. %s ↩ (%s: %s)\n", n, m.SenderName, m.ReplyTo.SenderName, m.ReplyTo.Content)
		fmt.Printf("     %s%s\n", m.Content, state)
		return
	}
	line := m.Content
	if m.Attachment != nil {
		line = fmt.Sprintf("%s [%s]", line, m.Attachment.FileName)
	}
	fmt.Printf("%3d. %s: %s%s\n", n, m.SenderName, line, state)
}

func stageReply(engine *client.Engine, arg string) {
	active := engine.Registry().ActiveID()
	if active == "" {
		fmt.Println("No chat open")
		return
	}
	msgs := engine.Messages().Messages(active)
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(msgs) {
		fmt.Printf("No message %s\n", arg)
		return
	}
	target := msgs[n-1]
	engine.Composer().SetReplyTo(target)
	fmt.Printf("Replying to %s: %s\n", target.SenderName, target.Content)
}

func attachFile(ctx context.Context, engine *client.Engine, path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	task := upload.NewTask(filepath.Base(path), mimeType, f, info.Size())
	task.OnProgress(func(percent int) {
		fmt.Printf("\rUploading… %d%%", percent)
	})
	if task.HasPreview() {
		fmt.Printf("Attaching %s (%s)\n", task.FileName, task.MimeType)
	}

	att, err := engine.StartUpload(ctx, task)
	fmt.Println()
	if err != nil {
		fmt.Printf("Upload failed: %v\n", err)
		return
	}
	fmt.Printf("Attached %s; it goes out with your next message\n", att.FileName)
}

func deleteMessage(ctx context.Context, engine *client.Engine, arg string, everyone bool) {
	active := engine.Registry().ActiveID()
	if active == "" {
		fmt.Println("No chat open")
		return
	}
	msgs := engine.Messages().Messages(active)
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(msgs) {
		fmt.Printf("No message %s\n", arg)
		return
	}
	if err := engine.DeleteMessage(ctx, active, msgs[n-1].ID, everyone); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Deleted")
}

func printInbox(engine *client.Engine) {
	entries := engine.Notifications().Entries()
	if len(entries) == 0 {
		fmt.Println("No unseen messages")
		return
	}
	viewer := engine.Session().UserID()
	for _, e := range entries {
		fmt.Printf("  [%s] %s: %s\n", e.Chat.Title(viewer), e.Message.SenderName, e.Message.Content)
	}
}

func sendText(ctx context.Context, engine *client.Engine, text string) {
	comp := engine.Composer()
	comp.SetDraft(text)
	msg, err := comp.Send(ctx)
	if err != nil {
		if comp.CanRetry() {
			fmt.Printf("Send failed (%v); /retry to resend\n", err)
		} else {
			fmt.Printf("Error: %v\n", err)
		}
		return
	}
	if msg.Attachment != nil {
		fmt.Printf("Sent %s [%s]\n", msg.Content, msg.Attachment.FileName)
	}
}
