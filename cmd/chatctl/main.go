package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"chatpalace/internal/client"
)

const usage = `chatctl - command line client for the chat service

Usage:
  chatctl [flags] register
  chatctl [flags] login
  chatctl [flags] users
  chatctl [flags] conversations
  chatctl [flags] start <other-user-id>
  chatctl [flags] send <conversation-id> <text...>
  chatctl [flags] read <conversation-id>
  chatctl [flags] rm <conversation-id>

Flags:
  -server   base URL of the API server (default http://localhost:8080)
  -as       caller user ID for identified commands
  -user     username for register/login
  -pass     password for register/login
  -image    profile image URL for register
`

func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the API server")
	asUser := flag.String("as", "", "caller user ID")
	username := flag.String("user", "", "username")
	password := flag.String("pass", "", "password")
	image := flag.String("image", "", "profile image URL")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(*server)
	if *asUser != "" {
		c.SetSession(&client.Session{UserID: *asUser})
	}

	if err := run(ctx, c, *username, *password, *image, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, username, password, image string, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		users := client.NewUserCache(c)
		user, err := users.Register(ctx, username, image, password, password)
		if err != nil {
			return err
		}
		fmt.Printf("registered %s (%s)\n", user.Username, user.ID)
		return nil

	case "login":
		user, err := c.Login(ctx, username, password)
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s (%s)\n", user.Username, user.ID)
		return nil

	case "users":
		users := client.NewUserCache(c)
		if err := users.Fetch(ctx); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME")
		for _, u := range users.Snapshot() {
			fmt.Fprintf(tw, "%s\t%s\n", u.ID, u.Username)
		}
		return tw.Flush()

	case "conversations":
		convs := client.NewConversationCache(c)
		if err := convs.Fetch(ctx); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPEER\tUNREAD")
		for _, conv := range convs.Snapshot() {
			peer := conv.User2
			if conv.Peer != nil {
				peer = conv.Peer.Username
			}
			fmt.Fprintf(tw, "%s\t%s\t%v\n", conv.ID, peer, conv.HasUnreadMessages)
		}
		return tw.Flush()

	case "start":
		if len(rest) != 1 {
			return fmt.Errorf("usage: start <other-user-id>")
		}
		convs := client.NewConversationCache(c)
		if err := convs.Fetch(ctx); err != nil {
			return err
		}
		id, err := convs.StartOrGet(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil

	case "send":
		if len(rest) < 2 {
			return fmt.Errorf("usage: send <conversation-id> <text...>")
		}
		messages := client.NewMessageCache(c)
		msg, err := messages.Post(ctx, rest[0], strings.Join(rest[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("sent %s at %s\n", msg.ID, msg.Timestamp.Format(time.RFC3339))
		return nil

	case "read":
		if len(rest) != 1 {
			return fmt.Errorf("usage: read <conversation-id>")
		}
		messages := client.NewMessageCache(c)
		if err := messages.Fetch(ctx, rest[0]); err != nil {
			return err
		}
		for _, m := range messages.Snapshot() {
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04"), m.Sender.Username, m.Content)
		}
		return nil

	case "rm":
		if len(rest) != 1 {
			return fmt.Errorf("usage: rm <conversation-id>")
		}
		convs := client.NewConversationCache(c)
		result, err := convs.Delete(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d conversation(s), %d message(s)\n",
			result.DeletedConversationCount, result.DeletedMessagesCount)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
