package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// SignDetached writes an ASCII-armoured OpenPGP detached signature of data
// to w, using the first private key found in the armoured keyring.
func SignDetached(w io.Writer, data io.Reader, armoredKeyring io.Reader, passphrase []byte) error {
	entities, err := openpgp.ReadArmoredKeyRing(armoredKeyring)
	if err != nil {
		return fmt.Errorf("failed to read signing key: %w", err)
	}

	var signer *openpgp.Entity
	for _, e := range entities {
		if e.PrivateKey != nil {
			signer = e
			break
		}
	}
	if signer == nil {
		return errors.New("keyring contains no private key")
	}

	if signer.PrivateKey.Encrypted {
		if len(passphrase) == 0 {
			return errors.New("signing key is encrypted and no passphrase was given")
		}
		if err := signer.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("failed to decrypt signing key: %w", err)
		}
	}

	if err := openpgp.ArmoredDetachSign(w, signer, data, nil); err != nil {
		return fmt.Errorf("failed to sign report: %w", err)
	}
	return nil
}
