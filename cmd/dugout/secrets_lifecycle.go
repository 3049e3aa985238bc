package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/usealtoal/dugout/pkg/diff"
)

func runSecrets(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: dugout secrets <lock|unlock|import|export|diff|rotate> ...")
		return 1
	}
	switch args[0] {
	case "lock":
		return runSecretsLock(args[1:], stdout, stderr)
	case "unlock":
		return runSecretsUnlock(args[1:], stdout, stderr)
	case "import":
		return runSecretsImport(args[1:], stdout, stderr)
	case "export":
		return runSecretsExport(args[1:], stdout, stderr)
	case "diff":
		return runSecretsDiff(args[1:], stdout, stderr)
	case "rotate":
		return runSecretsRotate(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown secrets subcommand: %s\n", args[0])
		return 1
	}
}

func vaultFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs, fs.String("vault", "", "named vault instead of the default")
}

// runSecretsLock removes the plaintext .env file, since secrets already
// live encrypted in the vault file.
func runSecretsLock(args []string, stdout, stderr io.Writer) int {
	fs, _ := vaultFlagSet("secrets lock", stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	path := filepath.Join(currentDir(), ".env")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		printErr(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s✓%s removed %s\n", colorGreen, colorReset, path)
	return 0
}

func runSecretsUnlock(args []string, stdout, stderr io.Writer) int {
	fs, vaultName := vaultFlagSet("secrets unlock", stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}
	if err := v.Unlock(); err != nil {
		printErr(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s✓%s wrote .env\n", colorGreen, colorReset)
	return 0
}

func runSecretsImport(args []string, stdout, stderr io.Writer) int {
	fs, vaultName := vaultFlagSet("secrets import", stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(stderr, "usage: dugout secrets import PATH [--vault V]")
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	imported, err := v.Import(rest[0])
	if err != nil {
		printErr(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s✓%s imported %d key(s)\n", colorGreen, colorReset, len(imported))
	return 0
}

func runSecretsExport(args []string, stdout, stderr io.Writer) int {
	fs, vaultName := vaultFlagSet("secrets export", stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	env, err := v.Export()
	if err != nil {
		printErr(stderr, err)
		return 1
	}
	fmt.Fprint(stdout, env.Render())
	return 0
}

func runSecretsDiff(args []string, stdout, stderr io.Writer) int {
	fs, vaultName := vaultFlagSet("secrets diff", stderr)
	path := fs.String("path", "", "compare against this .env file instead of ./.env")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	target := *path
	if target == "" {
		target = filepath.Join(currentDir(), ".env")
	}

	result, err := v.Diff(target)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	for _, e := range result.Entries {
		switch e.Status {
		case diff.Synced:
			fmt.Fprintf(stdout, "  %s\n", e.Key)
		case diff.Modified:
			fmt.Fprintf(stdout, "%s~ %-20s%s vault and .env differ\n", colorYellow, e.Key, colorReset)
		case diff.VaultOnly:
			fmt.Fprintf(stdout, "%s-%s %s only in vault\n", colorRed, colorReset, e.Key)
		case diff.EnvOnly:
			fmt.Fprintf(stdout, "%s+%s %s only in .env\n", colorGreen, colorReset, e.Key)
		}
	}
	return 0
}

func runSecretsRotate(args []string, stdout, stderr io.Writer) int {
	fs, vaultName := vaultFlagSet("secrets rotate", stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	if err := v.Rotate(); err != nil {
		printErr(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s✓%s rotated identity and re-encrypted %d secret(s)\n", colorGreen, colorReset, len(v.List()))
	return 0
}
