package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/inkwell/pkg/cryptox"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
)

// Secrets bundles the key material the services need.
type Secrets struct {
	Ring   *jwtx.KeyRing
	Pepper []byte
	Sealer *cryptox.Sealer
}

// LoadSecrets builds the signing key ring, the password pepper and the
// TOTP secret sealer.
//
// Without AUTH_SIGNING_KEYS (dev only) a random signing key is generated;
// every token is then invalidated by a restart. The same goes for an
// ephemeral master key and sealed TOTP secrets.
func LoadSecrets(cfg Config, logger *slog.Logger) (Secrets, error) {
	var (
		ring *jwtx.KeyRing
		err  error
	)
	if cfg.SigningKeys != "" {
		ring, err = jwtx.ParseKeyRing(cfg.SigningKeys)
		if err != nil {
			return Secrets{}, fmt.Errorf("parse AUTH_SIGNING_KEYS: %w", err)
		}
		kid, _ := ring.Active()
		logger.Info("signing keys loaded", "active_kid", kid, "num_keys", ring.Len())
	} else {
		secret, err := cryptox.GenerateToken(48)
		if err != nil {
			return Secrets{}, fmt.Errorf("generate signing key: %w", err)
		}
		ring, err = jwtx.NewKeyRing("dev", []byte(secret))
		if err != nil {
			return Secrets{}, err
		}
		logger.Warn("AUTH_SIGNING_KEYS not set, using an ephemeral signing key; tokens will not survive a restart")
	}

	pepper, err := cryptox.LoadOrGeneratePepper(cfg.PepperFile)
	if err != nil {
		return Secrets{}, err
	}

	sealer, err := cryptox.NewSealerFromFile(cfg.MasterKeyFile)
	if err != nil {
		return Secrets{}, err
	}
	if cfg.MasterKeyFile == "" {
		logger.Warn("AUTH_MASTER_KEY_FILE not set, TOTP secrets will not survive a restart")
	}

	return Secrets{Ring: ring, Pepper: pepper, Sealer: sealer}, nil
}
