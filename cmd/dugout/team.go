package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
)

func runTeam(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: dugout team <add|rm|list> ...")
		return 1
	}
	switch args[0] {
	case "add":
		return runTeamAdd(args[1:], stdout, stderr)
	case "rm":
		return runTeamRm(args[1:], stdout, stderr)
	case "list":
		return runTeamList(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown team subcommand: %s\n", args[0])
		return 1
	}
}

func runTeamAdd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("team add", flag.ContinueOnError)
	fs.SetOutput(stderr)
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintln(stderr, "usage: dugout team add NAME KEY [--vault V]")
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	if err := v.AddRecipient(rest[0], rest[1]); err != nil {
		printErr(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s✓%s added recipient %s\n", colorGreen, colorReset, rest[0])
	return 0
}

func runTeamRm(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("team rm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(stderr, "usage: dugout team rm NAME [--vault V]")
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	if err := v.RemoveRecipient(rest[0]); err != nil {
		printErr(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s✓%s removed recipient %s\n", colorGreen, colorReset, rest[0])
	return 0
}

// fingerprint returns a short, eyeballable hash of a public key, enough
// to notice a key changed without full audit tooling.
func fingerprint(publicKey string) string {
	sum := sha256.Sum256([]byte(publicKey))
	return hex.EncodeToString(sum[:6])
}

func runTeamList(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("team list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOut := fs.Bool("json", false, "print JSON instead of plain text")
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	names := v.Config().SortedRecipientNames()

	if *jsonOut {
		type entry struct {
			Name        string `json:"name"`
			PublicKey   string `json:"public_key"`
			Fingerprint string `json:"fingerprint"`
		}
		entries := make([]entry, 0, len(names))
		for _, name := range names {
			pub := v.Config().Recipients[name]
			entries = append(entries, entry{Name: name, PublicKey: pub, Fingerprint: fingerprint(pub)})
		}
		data, _ := json.Marshal(map[string]any{"recipients": entries, "count": len(entries)})
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	for _, name := range names {
		pub := v.Config().Recipients[name]
		fmt.Fprintf(stdout, "%-20s %s  (%s)\n", name, pub, fingerprint(pub))
	}
	return 0
}
