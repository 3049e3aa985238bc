package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"time"

	"github.com/usealtoal/dugout/pkg/cipher"
	"github.com/usealtoal/dugout/pkg/identity"
	"github.com/usealtoal/dugout/pkg/request"
	"github.com/usealtoal/dugout/pkg/vaulterr"
)

func currentUserName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "requester"
}

// globalIdentity loads the caller's global identity — the one `setup`
// creates — since a knock must advertise a stable, project-independent
// public key rather than minting a new one per project.
func globalIdentity() (*identity.Identity, error) {
	store, err := identity.NewStore(cipher.NewAge())
	if err != nil {
		return nil, err
	}
	id, err := store.LoadGlobal()
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.NotFound, "no global identity", err).
			WithHint("run `dugout setup` first")
	}
	return id, nil
}

func runKnock(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("knock", flag.ContinueOnError)
	fs.SetOutput(stderr)
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	requester := currentUserName()
	if rest := fs.Args(); len(rest) == 1 {
		requester = rest[0]
	}

	id, err := globalIdentity()
	if err != nil {
		printErr(stderr, err)
		return 1
	}
	pubKey := id.PublicKey().String()

	if v, err := openVault(*vaultName); err == nil {
		for _, pub := range v.Config().Recipients {
			if pub == pubKey {
				fmt.Fprintf(stdout, "%s✓%s already a recipient of this vault\n", colorGreen, colorReset)
				return 0
			}
		}
	}

	if err := request.Knock(currentDir(), *vaultName, requester, pubKey, time.Now()); err != nil {
		printErr(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s✓%s request written for %s\n", colorGreen, colorReset, requester)
	return 0
}

func runPending(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pending", flag.ContinueOnError)
	fs.SetOutput(stderr)
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	pending, err := request.Pending(currentDir(), *vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	if len(pending) == 0 {
		fmt.Fprintln(stdout, "no pending requests")
		return 0
	}
	for _, r := range pending {
		fmt.Fprintf(stdout, "%-20s %s\n", r.Requester, r.PublicKey)
	}
	return 0
}

func runAdmit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("admit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	vaultName := fs.String("vault", "", "named vault instead of the default")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(stderr, "usage: dugout admit NAME [--vault V]")
		return 1
	}

	r, err := request.Read(currentDir(), *vaultName, rest[0])
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	v, err := openVault(*vaultName)
	if err != nil {
		printErr(stderr, err)
		return 1
	}

	if err := v.AddRecipient(r.Requester, r.PublicKey); err != nil {
		printErr(stderr, err)
		return 1
	}

	if err := request.Consume(r); err != nil {
		printErr(stderr, err)
		return 1
	}

	fmt.Fprintf(stdout, "%s✓%s admitted %s\n", colorGreen, colorReset, r.Requester)
	return 0
}
