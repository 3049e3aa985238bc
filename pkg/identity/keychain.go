package identity

import "github.com/zalando/go-keyring"

// keychainService namespaces every keychain entry this tool writes.
const keychainService = "dugout"

// The platform keychain is an out-of-scope external collaborator per
// the optional platform keychain storage path; this file is the
// thin adapter the core calls through, grounded on the envref reference
// tool's use of github.com/zalando/go-keyring for the same purpose.

func keychainHas(project string) bool {
	_, err := keyring.Get(keychainService, project)
	return err == nil
}

func keychainGet(project string) (string, error) {
	return keyring.Get(keychainService, project)
}

func keychainSet(project, secret string) error {
	return keyring.Set(keychainService, project, secret)
}

func keychainDelete(project string) error {
	return keyring.Delete(keychainService, project)
}
