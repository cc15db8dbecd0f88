package docs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var errUnsafeName = errors.New("docs: unsafe path element")

// Storage keeps uploaded bytes on the local filesystem, one directory per
// company. Names are generated server side and validated again on every
// access, so a stored name can never escape its company directory.
type Storage struct {
	root string
}

// NewStorage creates the root directory if needed.
func NewStorage(root string) (*Storage, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("docs: storage root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("docs: create storage root: %w", err)
	}
	return &Storage{root: root}, nil
}

// Save writes the file under the company directory and returns the byte
// count. O_EXCL guards against stored-name collisions.
func (s *Storage) Save(companyID, storedName string, r io.Reader) (int64, error) {
	if err := validateElement(companyID); err != nil {
		return 0, err
	}
	if err := validateElement(storedName); err != nil {
		return 0, err
	}
	if r == nil {
		return 0, errors.New("docs: nil reader")
	}
	dir := filepath.Join(s.root, companyID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("docs: create company dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, storedName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, fmt.Errorf("docs: create file: %w", err)
	}
	n, err := io.Copy(f, r)
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(f.Name())
		return 0, fmt.Errorf("docs: write file: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(f.Name())
		return 0, fmt.Errorf("docs: close file: %w", closeErr)
	}
	return n, nil
}

// Open returns a reader for a stored file.
func (s *Storage) Open(companyID, storedName string) (io.ReadCloser, error) {
	if err := validateElement(companyID); err != nil {
		return nil, err
	}
	if err := validateElement(storedName); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, companyID, storedName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("docs: open file: %w", err)
	}
	return f, nil
}

// Remove deletes a stored file. Missing files are not an error so cleanup
// after a failed metadata write is idempotent.
func (s *Storage) Remove(companyID, storedName string) error {
	if err := validateElement(companyID); err != nil {
		return err
	}
	if err := validateElement(storedName); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, companyID, storedName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("docs: remove file: %w", err)
	}
	return nil
}

// validateElement rejects anything that could traverse out of the company
// directory. Both arguments come from trusted generators, but the check runs
// on every call regardless.
func validateElement(name string) error {
	if name == "" || name == "." || name == ".." {
		return errUnsafeName
	}
	if strings.ContainsAny(name, `/\`) {
		return errUnsafeName
	}
	if strings.Contains(name, "..") {
		return errUnsafeName
	}
	return nil
}
