// Package vault is the document-store collaborator: a directory of
// notes read by reference, plus change notification for watched files.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a note reference does not resolve.
var ErrNotFound = errors.New("note not found")

// Vault reads note bodies from a root directory. References are
// vault-relative paths; ".md" is appended when the reference carries
// no extension, matching how note links are written.
type Vault struct {
	root string
}

// Open returns a Vault rooted at dir.
func Open(dir string) *Vault {
	return &Vault{root: dir}
}

// Root returns the vault root directory.
func (v *Vault) Root() string { return v.root }

// ReadText returns the text body of the referenced note.
func (v *Vault) ReadText(ref string) (string, error) {
	path, err := v.Resolve(ref)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return "", fmt.Errorf("read note %s: %w", ref, err)
	}
	return string(data), nil
}

// Resolve maps a note reference to an absolute path, rejecting
// references that escape the vault root.
func (v *Vault) Resolve(ref string) (string, error) {
	name := ref
	if filepath.Ext(name) == "" {
		name += ".md"
	}
	path := filepath.Join(v.root, filepath.FromSlash(name))

	rel, err := filepath.Rel(v.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes vault", ErrNotFound, ref)
	}
	return path, nil
}
