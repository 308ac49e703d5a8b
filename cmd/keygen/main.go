// Generates a new Solana signing keypair and writes it to an encrypted
// .skw key file.
// Usage: go run ./cmd/keygen <path-to-key-file>
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
		fmt.Fprintln(os.Stderr, "usage: keygen <path-to-key-file>")
		os.Exit(1)
	}
	path := os.Args[1]

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "stdin is not a terminal")
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, "Password for new key file: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer clear(password)

	if len(password) == 0 {
		fmt.Fprintln(os.Stderr, errors.New("password cannot be empty"))
		os.Exit(1)
	}

	address, err := keystore.Generate(path, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(address)
}
