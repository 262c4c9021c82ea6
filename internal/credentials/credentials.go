// Package credentials finds the Cloudflare API key for a run.
//
// Sources are tried in a fixed order: an explicit key, the system keyring,
// the key file, and finally an interactive prompt whose answer is saved for next time.
// With UseNetrc set, ~/.netrc is the only source and also supplies the email.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgentry/go-netrc/netrc"
	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"

	"github.com/Travis-Britz/cfddns"
)

const (
	// KeyringService is the service name keys are stored under.
	KeyringService = "cf-ddns"
	// NetrcMachine is the machine entry read from the netrc file.
	NetrcMachine = "api.cloudflare.com"
	// tokenUser is the keyring user for API tokens, which have no email.
	tokenUser = "api-token"
)

// PromptFunc asks the user for a secret.
type PromptFunc func(prompt string) (string, error)

// Lookup holds the inputs of the credential chain.
type Lookup struct {
	Key   string // from --token or the environment
	Email string

	UseNetrc  bool
	NetrcPath string // empty means $NETRC or ~/.netrc

	KeyFile string // empty disables the key file

	// Prompt is asked when every other source comes up empty. Nil disables prompting.
	Prompt PromptFunc
	// Verify, when set, checks a prompted key before it is saved.
	Verify func(ddns.Credentials) error

	Logger logrus.FieldLogger
}

// Resolve walks the chain and returns the first credentials found.
func (l Lookup) Resolve() (ddns.Credentials, error) {
	log := l.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	if l.UseNetrc {
		return l.fromNetrc()
	}

	creds := ddns.Credentials{Email: l.Email}
	if l.Key != "" {
		creds.Key = l.Key
		return creds, nil
	}

	user := keyringUser(l.Email)
	key, err := keyring.Get(KeyringService, user)
	switch {
	case err == nil && key != "":
		log.Debugf("using API key for %s from the keyring", user)
		creds.Key = key
		return creds, nil
	case err != nil && !errors.Is(err, keyring.ErrNotFound):
		log.Debugf("keyring unavailable: %s", err)
	}

	if l.KeyFile != "" {
		key, err := ReadKeyFile(l.KeyFile)
		switch {
		case err == nil:
			log.Debugf("using API key from %s", l.KeyFile)
			creds.Key = key
			return creds, nil
		case !errors.Is(err, fs.ErrNotExist):
			return creds, fmt.Errorf("%w: %w", ddns.ErrConfig, err)
		}
		log.Debugf("key file \"%s\" does not exist", l.KeyFile)
	}

	if l.Prompt == nil {
		return creds, fmt.Errorf("%w: no Cloudflare API key found; pass --token, set the keyring entry, or write %s", ddns.ErrConfig, l.KeyFile)
	}
	key, err = l.Prompt("Enter Cloudflare API Key: ")
	if err != nil {
		return creds, fmt.Errorf("%w: error reading API key: %w", ddns.ErrConfig, err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return creds, fmt.Errorf("%w: an empty API key was entered", ddns.ErrConfig)
	}
	creds.Key = key
	if l.Verify != nil {
		if err := l.Verify(creds); err != nil {
			return creds, err
		}
		log.Debug("key verified successfully")
	}
	l.save(log, user, key)
	return creds, nil
}

// save stores a prompted key in the keyring, falling back to the key file.
func (l Lookup) save(log logrus.FieldLogger, user, key string) {
	err := keyring.Set(KeyringService, user, key)
	if err == nil {
		log.Infof("API key for %s saved to the keyring", user)
		return
	}
	log.Debugf("unable to save API key to the keyring: %s", err)
	if l.KeyFile == "" {
		log.Warn("API key was not saved; it will be asked for again")
		return
	}
	if err := WriteKeyFile(l.KeyFile, key); err != nil {
		log.Warnf("API key was not saved: %s", err)
		return
	}
	log.Infof("API key written to \"%s\"", l.KeyFile)
}

func (l Lookup) fromNetrc() (ddns.Credentials, error) {
	path := l.NetrcPath
	if path == "" {
		path = DefaultNetrc()
	}
	n, err := netrc.ParseFile(path)
	if err != nil {
		return ddns.Credentials{}, fmt.Errorf("%w: error reading netrc file: %w", ddns.ErrConfig, err)
	}
	m := n.FindMachine(NetrcMachine)
	if m == nil || m.IsDefault() {
		return ddns.Credentials{}, fmt.Errorf("%w: no machine %s in %s", ddns.ErrConfig, NetrcMachine, path)
	}
	if m.Login == "" || m.Password == "" {
		return ddns.Credentials{}, fmt.Errorf("%w: machine %s in %s needs both login (email) and password (API key)", ddns.ErrConfig, NetrcMachine, path)
	}
	return ddns.Credentials{Email: m.Login, Key: m.Password}, nil
}

func keyringUser(email string) string {
	if email == "" {
		return tokenUser
	}
	return email
}

// DefaultNetrc returns $NETRC or ~/.netrc.
func DefaultNetrc() string {
	if p := os.Getenv("NETRC"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".netrc")
}

// DefaultKeyFile returns ~/.cloudflare.
func DefaultKeyFile() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cloudflare")
}

// ReadKeyFile returns the first line of the key file at path.
// The file must not be readable by anyone but its owner.
func ReadKeyFile(path string) (key string, err error) {
	if err := verifyPermissions(path); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error reading key: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	keyb, _, err := r.ReadLine()
	if err != nil {
		return "", fmt.Errorf("error reading line: %w", err)
	}
	key = strings.TrimSpace(string(keyb))
	if key == "" {
		return "", fmt.Errorf("key file \"%s\" is empty", path)
	}
	return key, nil
}

// WriteKeyFile creates a new key file readable only by its owner. It never overwrites an existing file.
func WriteKeyFile(path, key string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to create \"%s\": %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, key); err != nil {
		return fmt.Errorf("unable to write \"%s\": %w", path, err)
	}
	return nil
}

func verifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking keyfile permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for \"%s\": expected file permissions \"-rw-------\"; found \"%s\"", path, fs.FileMode(perms))
	}
	return nil
}
