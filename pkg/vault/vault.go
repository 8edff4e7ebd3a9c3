// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package vault implements the at-rest encrypted credential store.
//
// Credentials are kept in a single binary file of length-prefixed records,
// each sealed individually with AES-256-GCM under a fresh nonce. The vault
// holds a decrypted index in memory; plaintext API keys leave the package
// only through Get, and only one record at a time.
//
// Deleting a credential tombstones its id: the record stays in the file with
// the key material wiped, so the id can never be reused and never reappears
// in listings.
package vault

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// lockTimeout is the maximum time to wait for the credential file lock.
const lockTimeout = 1 * time.Second

// fileMagic identifies an aperture credential file.
var fileMagic = []byte("APCV")

// fileVersion is the current on-disk format version.
const fileVersion = byte(0x01)

// maxRecordSize bounds a single encrypted record. Anything larger indicates
// a corrupt or foreign file.
const maxRecordSize = 1 << 20

var (
	// ErrNotFound is returned when a credential id does not exist or has
	// been tombstoned.
	ErrNotFound = errors.New("credential not found")

	// ErrCorrupt is returned when a record fails to decode or authenticate.
	// Corrupt records fail the whole read; they are never silently skipped.
	ErrCorrupt = errors.New("credential file corrupt or wrong master key")
)

// Credential is the plaintext view returned by Get.
type Credential struct {
	Provider string
	APIKey   string
}

// CredentialInfo is the listing view. It never carries plaintext.
type CredentialInfo struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
}

// record is the sealed per-credential envelope.
type record struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Label     string    `json:"label"`
	APIKey    string    `json:"apiKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// Vault stores provider API keys encrypted at rest.
type Vault struct {
	filePath string
	// key re-encrypts the credential file on every mutation.
	key [32]byte

	mu      sync.RWMutex
	records map[string]record
	// order preserves file append order across rewrites.
	order []string
}

// DeriveKey converts the configured master key string into the fixed-size
// AES-256 key used by the vault.
func DeriveKey(masterKey string) [32]byte {
	return sha256.Sum256([]byte(masterKey))
}

// New opens (or creates) the credential file at filePath. A missing file is
// treated as an empty vault; a file that fails to authenticate against the
// key is a fatal startup error.
func New(filePath string, key [32]byte) (*Vault, error) {
	filePath = path.Clean(filePath)

	v := &Vault{
		filePath: filePath,
		key:      key,
		records:  make(map[string]record),
	}

	// #nosec G304: path comes from validated configuration.
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat credential file: %w", err)
	}
	if stat.Size() == 0 {
		return v, nil
	}

	if err := v.load(f); err != nil {
		return nil, err
	}
	return v, nil
}

// Put encrypts and stores a new credential, returning its opaque id.
func (v *Vault) Put(provider, label, plaintextKey string) (string, error) {
	if provider == "" {
		return "", errors.New("provider cannot be empty")
	}
	if plaintextKey == "" {
		return "", errors.New("credential key cannot be empty")
	}

	rec := record{
		ID:        uuid.New().String(),
		Provider:  provider,
		Label:     label,
		APIKey:    plaintextKey,
		CreatedAt: time.Now().UTC(),
	}

	v.mu.Lock()
	v.records[rec.ID] = rec
	v.order = append(v.order, rec.ID)
	err := v.rewriteFileLocked()
	if err != nil {
		// Roll the in-memory state back so memory and disk stay in sync.
		delete(v.records, rec.ID)
		v.order = v.order[:len(v.order)-1]
	}
	v.mu.Unlock()

	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Get returns the decrypted credential for id. This is the only operation
// that exposes plaintext, and only for a single record.
func (v *Vault) Get(id string) (Credential, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	rec, ok := v.records[id]
	if !ok || rec.Deleted {
		return Credential{}, ErrNotFound
	}
	return Credential{Provider: rec.Provider, APIKey: rec.APIKey}, nil
}

// List returns metadata for every live credential, oldest first.
func (v *Vault) List() []CredentialInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	infos := make([]CredentialInfo, 0, len(v.records))
	for _, id := range v.order {
		rec := v.records[id]
		if rec.Deleted {
			continue
		}
		infos = append(infos, CredentialInfo{
			ID:        rec.ID,
			Provider:  rec.Provider,
			Label:     rec.Label,
			CreatedAt: rec.CreatedAt,
		})
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos
}

// Delete tombstones the credential id. The id never becomes reusable and the
// key material is wiped from the stored record.
func (v *Vault) Delete(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok := v.records[id]
	if !ok || rec.Deleted {
		return ErrNotFound
	}

	prev := rec
	rec.Deleted = true
	rec.APIKey = ""
	v.records[id] = rec

	if err := v.rewriteFileLocked(); err != nil {
		v.records[id] = prev
		return err
	}
	return nil
}

// load reads and authenticates every record in the file. Any failure aborts
// the load; a partially readable vault is treated as tampering.
func (v *Vault) load(r io.Reader) error {
	header := make([]byte, len(fileMagic)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if !bytes.Equal(header[:len(fileMagic)], fileMagic) {
		return fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if header[len(fileMagic)] != fileVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, header[len(fileMagic)])
	}

	for {
		var size uint32
		err := binary.Read(r, binary.BigEndian, &size)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: truncated record length", ErrCorrupt)
		}
		if size == 0 || size > maxRecordSize {
			return fmt.Errorf("%w: implausible record size %d", ErrCorrupt, size)
		}

		sealed := make([]byte, size)
		if _, err := io.ReadFull(r, sealed); err != nil {
			return fmt.Errorf("%w: truncated record", ErrCorrupt)
		}

		plaintext, err := decrypt(sealed, v.key[:])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		var rec record
		if err := json.Unmarshal(plaintext, &rec); err != nil {
			return fmt.Errorf("%w: undecodable record", ErrCorrupt)
		}
		if _, dup := v.records[rec.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrCorrupt, rec.ID)
		}
		v.records[rec.ID] = rec
		v.order = append(v.order, rec.ID)
	}
}

// rewriteFileLocked serializes the full record set and atomically replaces
// the credential file. Callers must hold v.mu.
func (v *Vault) rewriteFileLocked() error {
	var buf bytes.Buffer
	buf.Write(fileMagic)
	buf.WriteByte(fileVersion)

	for _, id := range v.order {
		plaintext, err := json.Marshal(v.records[id])
		if err != nil {
			return fmt.Errorf("failed to marshal credential: %w", err)
		}
		sealed, err := encrypt(plaintext, v.key[:])
		if err != nil {
			return fmt.Errorf("failed to encrypt credential: %w", err)
		}
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(sealed))); err != nil {
			return fmt.Errorf("failed to write record length: %w", err)
		}
		buf.Write(sealed)
	}

	fileLock := flock.New(v.filePath + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire credential file lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire credential file lock: timeout after %v", lockTimeout)
	}
	defer fileLock.Unlock()

	tmp := v.filePath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmp, v.filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}
