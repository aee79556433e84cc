// Package keystore is the encrypted single-key store behind the local
// development wallet.
package keystore

import (
	"context"
	"crypto/ecdsa"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/constants"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/securefile"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

var ErrWalletExists = errors.New("keystore already exists")

type Wallet struct {
	Version    int    `json:"version"`
	AddressHex string `json:"address"`
	PrivKeyHex string `json:"priv_key_hex"`

	CreatedAt string `json:"created_at,omitempty"` // RFC3339
}

type Store struct {
	Path string
	Opt  securefile.Options
}

func (w *Wallet) Address() common.Address {
	return common.HexToAddress(w.AddressHex)
}

func (w *Wallet) privateKey() (*ecdsa.PrivateKey, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(w.PrivKeyHex, "0x"), "0X")
	if len(raw) != 64 {
		return nil, errors.Newf("invalid privkey hex length: got %d want 64", len(raw))
	}
	k, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, errors.Wrap(err, "to ecdsa")
	}
	return k, nil
}

// SignHash signs a 32-byte digest. The signature has V=0/1.
func (w *Wallet) SignHash(_ context.Context, digest32 []byte) ([]byte, error) {
	if err := wtypes.EnsureDigest32(digest32); err != nil {
		return nil, err
	}

	key, err := w.privateKey()
	if err != nil {
		return nil, err
	}
	return crypto.Sign(digest32, key)
}

// NewStore sets up a wallet store at path, or at the canonical config path
// when path is empty.
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		paths, err := securefile.ConfigPathCandidates(constants.AppName, constants.KeystoreFile)
		if err != nil {
			return nil, err
		}
		path = paths[0]
	}

	return &Store{
		Path: path,
		Opt: securefile.Options{
			// keep identical for read + write
			AADFunc: func(_ string) []byte { return []byte(constants.KeystoreAAD) },
		},
	}, nil
}

func (s *Store) Load(password []byte) (*Wallet, error) {
	w, err := securefile.ReadEncryptedJSON[Wallet](s.Path, password, s.Opt)
	if err != nil {
		return nil, errors.Wrapf(err, "load wallet %s", s.Path)
	}
	if _, err := w.privateKey(); err != nil {
		return nil, errors.Wrapf(err, "load wallet %s", s.Path)
	}
	return &w, nil
}

// Create persists a fresh random wallet. It refuses to overwrite.
func (s *Store) Create(password []byte) (*Wallet, error) {
	if _, err := os.Stat(s.Path); err == nil {
		return nil, errors.Wrapf(ErrWalletExists, "%s", s.Path)
	}
	nw, err := NewRandomWallet()
	if err != nil {
		return nil, err
	}
	if err := securefile.WriteEncryptedJSON(s.Path, *nw, password, s.Opt); err != nil {
		return nil, err
	}
	return nw, nil
}

// Ensure loads an existing encrypted wallet or creates a new one if missing.
func (s *Store) Ensure(password []byte) (*Wallet, error) {
	w, err := s.Load(password)
	if err == nil {
		return w, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return s.Create(password)
	}
	return nil, err
}

func NewRandomWallet() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate key")
	}
	return walletFromKey(key), nil
}

// FromPrivateKeyHex wraps an existing key; used by tests and imports.
func FromPrivateKeyHex(privHex string) (*Wallet, error) {
	w := &Wallet{PrivKeyHex: privHex}
	key, err := w.privateKey()
	if err != nil {
		return nil, err
	}
	return walletFromKey(key), nil
}

func walletFromKey(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		Version:    constants.SchemaV1,
		AddressHex: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivKeyHex: strings.TrimPrefix(hexutil.Encode(crypto.FromECDSA(key)), "0x"),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}
