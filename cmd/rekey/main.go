// Re-encrypts a .skw key file under a new password. The key material never
// leaves the process; only the file's salt, nonce and ciphertext change.
// Usage: go run ./cmd/rekey <path-to-key-file>
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/DisCard-Technologies/discard-sub000/internal/keystore"

	"golang.org/x/term"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: rekey <path-to-key-file>")
		os.Exit(1)
	}
	path := os.Args[1]

	oldPassword, err := readPassword("Current password: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer clear(oldPassword)

	newPassword, err := readPassword("New password: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer clear(newPassword)

	confirm, err := readPassword("Confirm new password: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer clear(confirm)

	if string(newPassword) != string(confirm) {
		fmt.Fprintln(os.Stderr, "passwords do not match")
		os.Exit(1)
	}

	if err := keystore.Rekey(path, oldPassword, newPassword); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("key file re-encrypted")
}

func readPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	return raw, nil
}
