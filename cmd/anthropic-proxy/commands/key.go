package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/m0n0x41d/anthropic-proxy/internal/config"
)

// keyCommand returns the 'key' subcommand for managing the upstream API key.
func keyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Manage the upstream API key stored in the OS keyring",
		Commands: []*cli.Command{
			keySetCommand(),
			keyClearCommand(),
		},
	}
}

// keySetCommand returns the 'key set' subcommand.
func keySetCommand() *cli.Command {
	return &cli.Command{
		Name:   "set",
		Usage:  "Store the upstream API key in the OS keyring",
		Action: keySetAction,
	}
}

// keyClearCommand returns the 'key clear' subcommand.
func keyClearCommand() *cli.Command {
	return &cli.Command{
		Name:   "clear",
		Usage:  "Remove the upstream API key from the OS keyring",
		Action: keyClearAction,
	}
}

// keySetAction prompts for the key and writes it to the keyring.
func keySetAction(ctx context.Context, cmd *cli.Command) error {
	key, err := readSecureInput(ctx, "Enter upstream API key: ")
	if err != nil {
		return err
	}

	if key == "" {
		return fmt.Errorf("api key cannot be empty")
	}

	if err := config.StoreKeyringAPIKey(key); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	fmt.Println()
	fmt.Println("API key saved to OS keyring")
	fmt.Println("The proxy will use it whenever UPSTREAM_API_KEY is not set")

	return nil
}

// keyClearAction removes the stored key.
func keyClearAction(ctx context.Context, cmd *cli.Command) error {
	if err := config.ClearKeyringAPIKey(); err != nil {
		return fmt.Errorf("failed to clear key: %w", err)
	}

	fmt.Println("API key cleared from OS keyring")

	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
