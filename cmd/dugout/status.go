package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/usealtoal/dugout/pkg/cipher"
	"github.com/usealtoal/dugout/pkg/identity"
)

// runStatus reports vault health without mutating anything: recipient
// and secret counts, whether the recipient set has drifted from the
// stored hash, and whether a usable identity is present.
func runStatus(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	cfg := v.Config()
	fmt.Fprintf(stdout, "vault:       %s\n", cfg.Path())
	fmt.Fprintf(stdout, "cipher:      %s\n", cfg.Meta.Cipher)
	fmt.Fprintf(stdout, "secrets:     %d\n", len(cfg.Secrets))
	fmt.Fprintf(stdout, "recipients:  %d\n", len(cfg.Recipients))

	if cfg.NeedsSync() {
		fmt.Fprintf(stdout, "sync:        %sstale%s — run `dugout sync`\n", colorYellow, colorReset)
	} else {
		fmt.Fprintf(stdout, "sync:        %sup to date%s\n", colorGreen, colorReset)
	}

	fmt.Fprintf(stdout, "identity:    %s (%s)\n", v.Identity().PublicKey().String(), v.Identity().Provenance())

	store, err := identity.NewStore(cipher.NewAge())
	if err == nil {
		if store.HasGlobal() {
			fmt.Fprintln(stdout, "global id:   present")
		} else {
			fmt.Fprintln(stdout, "global id:   absent — run `dugout setup`")
		}
	}

	return 0
}
