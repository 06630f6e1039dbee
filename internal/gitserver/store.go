// SPDX-License-Identifier: MPL-2.0

package gitserver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// StoreDirName is the directory below the soa-cli home holding the files.
	StoreDirName = ".git"

	serverFile = ".git_server"
	tokenFile  = ".git_token"
	ownerFile  = ".git_own"
	loginFile  = ".git_login"

	// OwnerUser places repositories under the token owner.
	OwnerUser OwnerKind = "user"
	// OwnerOrg places repositories under an organization.
	OwnerOrg OwnerKind = "org"
)

type (
	// OwnerKind tells whether repositories belong to the user or an org.
	OwnerKind string

	// Store persists the Git hosting selection below the soa-cli home, one
	// value per file.
	Store struct {
		dir string
	}
)

// NewStore returns the Store of the soa-cli home.
func NewStore(home string) *Store {
	return &Store{dir: filepath.Join(home, StoreDirName)}
}

// Dir returns the directory holding the files.
func (s *Store) Dir() string { return s.dir }

// Server returns the stored service type. ok is false when none is stored.
func (s *Store) Server() (t Type, ok bool, err error) {
	v, ok, err := s.read(serverFile)
	if err != nil || !ok {
		return "", ok, err
	}
	t = Type(v)
	if err := t.Validate(); err != nil {
		return "", false, fmt.Errorf("%s: %w", filepath.Join(s.dir, serverFile), err)
	}
	return t, true, nil
}

// SetServer stores the service type.
func (s *Store) SetServer(t Type) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.write(serverFile, string(t), 0o644)
}

// Token returns the stored access token. ok is false when none is stored.
func (s *Store) Token() (string, bool, error) {
	return s.read(tokenFile)
}

// SetToken stores the access token readable by the user only.
func (s *Store) SetToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}
	return s.write(tokenFile, strings.TrimSpace(token), 0o600)
}

// Owner returns the stored repository owner kind and login.
func (s *Store) Owner() (kind OwnerKind, login string, ok bool, err error) {
	k, okKind, err := s.read(ownerFile)
	if err != nil {
		return "", "", false, err
	}
	l, okLogin, err := s.read(loginFile)
	if err != nil {
		return "", "", false, err
	}
	if !okKind || !okLogin {
		return "", "", false, nil
	}
	return OwnerKind(k), l, true, nil
}

// SetOwner stores the repository owner kind and login.
func (s *Store) SetOwner(kind OwnerKind, login string) error {
	if kind != OwnerUser && kind != OwnerOrg {
		return fmt.Errorf("invalid owner kind %q (valid: user, org)", kind)
	}
	if strings.TrimSpace(login) == "" {
		return errors.New("owner login must not be empty")
	}
	if err := s.write(ownerFile, string(kind), 0o644); err != nil {
		return err
	}
	return s.write(loginFile, strings.TrimSpace(login), 0o644)
}

// read returns the trimmed file content; a missing or blank file is not ok.
func (s *Store) read(name string) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", name, err)
	}
	v := strings.TrimSpace(string(data))
	return v, v != "", nil
}

// write replaces a file through a temporary file in the same directory.
func (s *Store) write(name, value string, perm os.FileMode) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.dir, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
