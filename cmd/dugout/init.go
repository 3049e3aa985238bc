package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/usealtoal/dugout/pkg/vault"
)

func runInit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "me", "recipient name for the caller")
	vaultName := fs.String("vault", "", "named vault instead of the default")
	kmsKey := fs.String("kms", "", "KMS key identifier for hybrid encryption")
	noBanner := fs.Bool("no-banner", false, "suppress the success banner")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	v, err := vault.Init(currentDir(), *name, *vaultName, *kmsKey)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	if !*noBanner {
		fmt.Fprintf(stdout, "%s✓%s initialized vault %s for %s\n", colorGreen, colorReset, v.Config().Path(), *name)
	}
	return 0
}
