package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
)

func runSet(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "overwrite an existing secret")
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintln(stderr, "usage: dugout set KEY VALUE [--force] [--vault V]")
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	if err := v.Set(rest[0], rest[1], *force); err != nil {
		printErr(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s✓%s set %s\n", colorGreen, colorReset, rest[0])
	return 0
}

func runGet(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(stderr, "usage: dugout get KEY [--vault V]")
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	secret, err := v.Get(rest[0])
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	secret.Reveal(func(plain string) {
		fmt.Fprint(stdout, plain)
	})
	return 0
}

func runRm(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(stderr, "usage: dugout rm KEY [--vault V]")
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	if err := v.Remove(rest[0]); err != nil {
		printErr(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s✓%s removed %s\n", colorGreen, colorReset, rest[0])
	return 0
}

func runList(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
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

	listing := v.List()
	if *jsonOut {
		keys := make([]string, 0, len(listing))
		for _, l := range listing {
			keys = append(keys, l.Key)
		}
		data, _ := json.Marshal(map[string]any{"keys": keys, "count": len(keys)})
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	for _, l := range listing {
		fmt.Fprintln(stdout, l.Key)
	}
	return 0
}
