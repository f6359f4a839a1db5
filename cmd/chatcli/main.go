package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pairchat/pairchat/internal/log"
	"github.com/pairchat/pairchat/internal/sync"
)

var (
	apiBase string
	wsURL   string
)

func main() {
	root := &cobra.Command{
		Use:           "chatcli",
		Short:         "Terminal client for the pairchat server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", "http://localhost:8080", "REST API base URL")
	root.PersistentFlags().StringVar(&wsURL, "ws", "ws://localhost:8080/ws", "realtime endpoint URL")

	root.AddCommand(registerCmd(), loginCmd(), chatCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func registerCmd() *cobra.Command {
	var name, email, phone, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and print the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := sync.Register(cmd.Context(), apiBase, name, email, phone, password)
			if err != nil {
				return err
			}
			printCredentials(creds)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("password")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := sync.Login(cmd.Context(), apiBase, email, password)
			if err != nil {
				return err
			}
			printCredentials(creds)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func chatCmd() *cobra.Command {
	var token, userID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), token, userID)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "session token from login")
	cmd.Flags().StringVar(&userID, "user", "", "user id from login")
	cmd.MarkFlagRequired("token")
	cmd.MarkFlagRequired("user")
	return cmd
}

func printCredentials(creds *sync.Credentials) {
	fmt.Println("user_id:", creds.User.ID)
	fmt.Println("name:   ", creds.User.Name)
	fmt.Println("token:  ", creds.Token)
}

func runChat(ctx context.Context, token, userID string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New("warn")
	session := sync.NewSession(apiBase, wsURL, token, userID, logger)
	session.OnUpdate(func() {
		// Incoming traffic lands between prompts; reprint so input stays visible.
		fmt.Print("\r")
		printLatest(session)
		fmt.Print("> ")
	})

	if err := session.Start(ctx); err != nil {
		if err == sync.ErrUnauthorized {
			return fmt.Errorf("session rejected, log in again")
		}
		return err
	}
	defer session.Close()

	self := session.Self()
	fmt.Printf("logged in as %s (%s)\n", self.Name, self.ID)
	printChats(session)
	printHelp()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Print("> ")
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleLine(ctx, session, strings.TrimSpace(line)); err != nil {
				if err == errQuit {
					return nil
				}
				fmt.Println("error:", err)
			}
			fmt.Print("> ")
		}
	}
}

var errQuit = fmt.Errorf("quit")

func handleLine(ctx context.Context, session *sync.Session, line string) error {
	switch {
	case line == "":
		return nil
	case line == "/quit":
		return errQuit
	case line == "/help":
		printHelp()
		return nil
	case line == "/chats":
		printChats(session)
		return nil
	case strings.HasPrefix(line, "/open "):
		id := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
		if err := session.Open(ctx, id); err != nil {
			return err
		}
		printHistory(session)
		return nil
	case strings.HasPrefix(line, "/find "):
		phone := strings.TrimSpace(strings.TrimPrefix(line, "/find "))
		profile, err := session.StartChatWith(ctx, phone)
		if err != nil {
			return err
		}
		fmt.Printf("chatting with %s (%s)\n", profile.Name, profile.ID)
		return nil
	case strings.HasPrefix(line, "/send-media "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/send-media "))
		return sendMedia(ctx, session, path)
	case strings.HasPrefix(line, "/"):
		return fmt.Errorf("unknown command %q, try /help", line)
	default:
		return session.SendText(line)
	}
}

func sendMedia(ctx context.Context, session *sync.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	upload, err := session.API().UploadMedia(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	return session.SendMedia(upload.URL, upload.Type)
}

func printHelp() {
	fmt.Println("commands: /chats, /open <user-id>, /find <phone>, /send-media <file>, /help, /quit")
	fmt.Println("anything else is sent as a message to the open chat")
}

func printChats(session *sync.Session) {
	chats := session.Chats()
	if len(chats) == 0 {
		fmt.Println("no conversations yet, use /find <phone>")
		return
	}
	for _, chat := range chats {
		marker := " "
		if chat.Online {
			marker = "*"
		}
		fmt.Printf("%s %s (%s): %s\n", marker, chat.Name, chat.ID, chat.LastMsg)
	}
}

func printHistory(session *sync.Session) {
	for _, msg := range session.Messages() {
		printMessage(session, msg.SenderName, msg.SenderID, msg.Text, msg.MediaURL, msg.Time)
	}
}

func printLatest(session *sync.Session) {
	msgs := session.Messages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	if last.SenderID == session.Self().ID {
		return
	}
	printMessage(session, last.SenderName, last.SenderID, last.Text, last.MediaURL, last.Time)
}

func printMessage(session *sync.Session, name, senderID, text, mediaURL, displayTime string) {
	if name == "" {
		name = senderID
	}
	if displayTime == "" {
		displayTime = time.Now().Format("3:04 PM")
	}
	if mediaURL != "" {
		fmt.Printf("[%s] %s sent media: %s\n", displayTime, name, mediaURL)
		return
	}
	fmt.Printf("[%s] %s: %s\n", displayTime, name, text)
}
