package credential

import (
	"fmt"

	"github.com/99designs/keyring"

	"github.com/nhle/taskclient/internal/model"
)

// backendsByName maps config names to keyring backend types.
var backendsByName = map[string]keyring.BackendType{
	"keychain":       keyring.KeychainBackend,
	"secret-service": keyring.SecretServiceBackend,
	"kwallet":        keyring.KWalletBackend,
	"wincred":        keyring.WinCredBackend,
	"pass":           keyring.PassBackend,
	"file":           keyring.FileBackend,
}

var defaultBackends = []keyring.BackendType{
	keyring.KeychainBackend,
	keyring.SecretServiceBackend,
	keyring.WinCredBackend,
	keyring.PassBackend,
	keyring.FileBackend,
}

// openKeyring returns a keyring configured from cfg.
func openKeyring(cfg model.CredentialConfig) (keyring.Keyring, error) {
	backends := defaultBackends
	if len(cfg.Backends) > 0 {
		backends = make([]keyring.BackendType, 0, len(cfg.Backends))
		for _, name := range cfg.Backends {
			b, ok := backendsByName[name]
			if !ok {
				return nil, fmt.Errorf("unknown keyring backend %q", name)
			}
			backends = append(backends, b)
		}
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              cfg.ServiceName,
		AllowedBackends:          backends,
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(cfg.ServiceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Open opens the configured system keyring and loads the stored session.
func Open(cfg model.CredentialConfig) (*Store, error) {
	ring, err := openKeyring(cfg)
	if err != nil {
		return nil, err
	}
	return New(ring)
}
