// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"testing"

	"github.com/netmon-foundation/netmon/lib/sealed"
)

func TestCredentialsMissingFileIsAnonymous(t *testing.T) {
	store := StoreConfig{CredentialsFile: filepath.Join(t.TempDir(), "auth.toml")}
	credentials, err := store.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if !credentials.Anonymous() {
		t.Errorf("credentials = %+v, want anonymous", credentials)
	}
}

func TestCredentialsPlain(t *testing.T) {
	store := StoreConfig{CredentialsFile: writeFile(t, "auth.toml", "username = \"netmon\"\npassword = \"hunter2\"\n")}
	credentials, err := store.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if credentials.Username != "netmon" || credentials.Password != "hunter2" {
		t.Errorf("credentials = %+v", credentials)
	}
}

func TestCredentialsRejectsUnknownKey(t *testing.T) {
	store := StoreConfig{CredentialsFile: writeFile(t, "auth.toml", "username = \"netmon\"\npasword = \"typo\"\n")}
	if _, err := store.LoadCredentials(); err == nil {
		t.Fatal("expected error for a misspelled key")
	}
}

func TestCredentialsSealed(t *testing.T) {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	ciphertext, err := sealed.Seal([]byte("username = \"netmon\"\npassword = \"sealed\"\n"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	store := StoreConfig{
		CredentialsFile:     writeFile(t, "auth.toml.age", string(ciphertext)),
		CredentialsIdentity: writeFile(t, "identity.txt", keypair.PrivateKey.String()+"\n"),
	}
	credentials, err := store.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if credentials.Username != "netmon" || credentials.Password != "sealed" {
		t.Errorf("credentials = %+v", credentials)
	}

	other, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer other.Close()
	store.CredentialsIdentity = writeFile(t, "other.txt", other.PrivateKey.String())
	if _, err := store.LoadCredentials(); err == nil {
		t.Error("sealed credentials opened with the wrong identity")
	}
}
