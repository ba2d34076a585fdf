// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/netmon-foundation/netmon/lib/sealed"
	"github.com/netmon-foundation/netmon/lib/secret"
)

// Credentials are the server's own login to the store.
type Credentials struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Anonymous reports whether c is the store's default user with no
// password.
func (c Credentials) Anonymous() bool {
	return c.Username == "" && c.Password == ""
}

// LoadCredentials reads the credentials named by the store section. A
// missing file yields anonymous credentials. Unknown keys are an
// error so a typo cannot silently drop the password.
func (s *StoreConfig) LoadCredentials() (Credentials, error) {
	var credentials Credentials
	data, err := os.ReadFile(s.CredentialsFile)
	if errors.Is(err, fs.ErrNotExist) || s.CredentialsFile == "" {
		return credentials, nil
	}
	if err != nil {
		return credentials, fmt.Errorf("reading credentials: %w", err)
	}

	text := string(data)
	if s.CredentialsIdentity != "" {
		plaintext, err := openSealed(data, s.CredentialsIdentity)
		if err != nil {
			return credentials, fmt.Errorf("opening %s: %w", s.CredentialsFile, err)
		}
		defer plaintext.Close()
		text = plaintext.String()
	}

	metadata, err := toml.Decode(text, &credentials)
	if err != nil {
		return Credentials{}, fmt.Errorf("parsing %s: %w", s.CredentialsFile, err)
	}
	if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
		return Credentials{}, fmt.Errorf("%s: unknown key %q", s.CredentialsFile, undecoded[0].String())
	}
	return credentials, nil
}

func openSealed(ciphertext []byte, identityPath string) (*secret.Buffer, error) {
	identity, err := secret.ReadFile(identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading age identity: %w", err)
	}
	defer identity.Close()
	return sealed.Open(ciphertext, identity)
}
