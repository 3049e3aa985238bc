package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/usealtoal/dugout/pkg/resolver"
	"github.com/usealtoal/dugout/pkg/vault"
)

func runVault(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "list" {
		fmt.Fprintln(stderr, "usage: dugout vault list [--json]")
		return 1
	}
	return runVaultList(args[1:], stdout, stderr)
}

type vaultListing struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Secrets    int    `json:"secrets"`
	Recipients int    `json:"recipients"`
	Access     string `json:"access"`
}

func runVaultList(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vault list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOut := fs.Bool("json", false, "print JSON instead of plain text")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	dir := currentDir()
	names, err := resolver.ListVaultNames(dir)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	listings := make([]vaultListing, 0, len(names))
	for _, name := range names {
		label := name
		if label == "" {
			label = "default"
		}

		v, err := vault.Open(dir, name)
		if err != nil {
			listings = append(listings, vaultListing{Name: label, Access: "error: " + err.Error()})
			continue
		}

		access := "no-access"
		myPub := v.Identity().PublicKey().String()
		for _, pub := range v.Config().Recipients {
			if pub == myPub {
				access = "member"
				break
			}
		}

		listings = append(listings, vaultListing{
			Name:       label,
			Path:       v.Config().Path(),
			Secrets:    len(v.Config().Secrets),
			Recipients: len(v.Config().Recipients),
			Access:     access,
		})
	}

	if *jsonOut {
		data, _ := json.Marshal(map[string]any{"vaults": listings, "count": len(listings)})
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	for _, l := range listings {
		fmt.Fprintf(stdout, "%-12s %-8s secrets=%-4d recipients=%-4d %s\n", l.Name, l.Access, l.Secrets, l.Recipients, l.Path)
	}
	return 0
}
