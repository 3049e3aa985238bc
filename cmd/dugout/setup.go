package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/usealtoal/dugout/pkg/cipher"
	"github.com/usealtoal/dugout/pkg/identity"
)

func runSetup(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "overwrite an existing global identity")
	output := fs.String("output", "", "print the secret key to PATH, or '-' for stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	store, err := identity.NewStore(cipher.NewAge())
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	id, err := store.GenerateGlobal(*force)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	fmt.Fprintf(stdout, "%s✓%s generated global identity\n", colorGreen, colorReset)
	fmt.Fprintf(stdout, "  public key: %s\n", id.PublicKey().String())

	if *output == "-" {
		fmt.Fprintln(stdout, id.Secret().String())
	} else if *output != "" {
		if err := os.WriteFile(*output, []byte(id.Secret().String()+"\n"), 0o600); err != nil {
			printErr(stderr, err)
			return 1
		}
	}
	return 0
}

func runWhoami(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	store, err := identity.NewStore(cipher.NewAge())
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	id, err := store.LoadGlobal()
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	fmt.Fprintln(stdout, id.PublicKey().String())
	return 0
}
