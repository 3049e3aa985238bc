package main

import (
	"flag"
	"fmt"
	"io"
)

func runSync(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dryRun := fs.Bool("dry-run", false, "report what would happen without mutating anything")
	force := fs.Bool("force", false, "re-encrypt unconditionally")
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	summary, err := v.Sync(*force, *dryRun)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	switch {
	case !summary.WasNeeded:
		fmt.Fprintf(stdout, "%s✓%s already in sync\n", colorGreen, colorReset)
	case *dryRun:
		fmt.Fprintf(stdout, "would re-encrypt %d secret(s) against %d recipient(s)\n", summary.SecretCount, summary.RecipientCount)
	default:
		fmt.Fprintf(stdout, "%s✓%s re-encrypted %d secret(s) against %d recipient(s)\n", colorGreen, colorReset, summary.SecretCount, summary.RecipientCount)
	}
	return 0
}
