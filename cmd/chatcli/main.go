package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Tyrowin/livechat/internal/chat"
	"github.com/Tyrowin/livechat/internal/terminal"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatcli: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()

	config, err := terminal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := readLines(os.Stdin)

	name, err := askName(ctx, config.Name, lines)
	if err != nil {
		return exitConfig, err
	}

	session, err := terminal.Dial(ctx, config, name)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = session.Close() }()

	if err := session.Register(); err != nil {
		return exitRuntime, fmt.Errorf("register failed: %w", err)
	}

	renderer := terminal.NewRenderer(name, config.Colours)
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- session.Listen(ctx, func(msg chat.Message) {
			fmt.Println(renderer.Message(msg))
		}, nil)
	}()

	fmt.Printf("Connected to %s as %s. Type /who for the roster, /quit to leave.\n", config.ServerURL, name)

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case err := <-listenErr:
			if err != nil {
				return exitRuntime, err
			}
			fmt.Println("Server closed the connection.")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			text := strings.TrimSpace(line)
			switch text {
			case "":
			case "/quit":
				return exitOK, nil
			case "/who":
				renderer.Roster(os.Stdout, session.Roster())
			default:
				if _, err := session.Say(text); err != nil {
					return exitRuntime, fmt.Errorf("send failed: %w", err)
				}
			}
		}
	}
}

// askName returns preset when it is valid, otherwise prompts until a valid
// name is entered.
func askName(ctx context.Context, preset string, lines <-chan string) (string, error) {
	if preset != "" {
		return terminal.ValidateName(preset)
	}

	for {
		fmt.Print("Your name: ")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return "", io.ErrUnexpectedEOF
			}
			name, err := terminal.ValidateName(line)
			if err == nil {
				return name, nil
			}
			fmt.Println(err)
		}
	}
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
