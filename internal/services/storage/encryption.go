package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

// ageHeader is the prefix of every age file
const ageHeader = "age-encryption.org"

// sealData encrypts one snapshot file to a passphrase recipient
func sealData(data []byte, recipient *age.ScryptRecipient) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(data)+256))
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// openData decrypts a sealed snapshot file. A passphrase that does not
// match the file's seal yields ErrBadPassword.
func openData(data []byte, identity *age.ScryptIdentity) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		var mismatch *age.NoIdentityMatchError
		if errors.As(err, &mismatch) {
			return nil, ErrBadPassword
		}
		return nil, fmt.Errorf("open sealed file: %w", err)
	}
	return io.ReadAll(r)
}

// isSealed reports whether data carries the age header
func isSealed(data []byte) bool {
	return len(data) > len(ageHeader) && bytes.HasPrefix(data, []byte(ageHeader))
}
