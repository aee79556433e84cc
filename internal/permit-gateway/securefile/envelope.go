// Package securefile stores JSON documents encrypted under a password.
// Keys come from Argon2id and payloads are sealed with XChaCha20-Poly1305.
package securefile

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/constants"
)

const (
	envelopeVersion = 2
	modePassword    = "password"
	saltSize        = 16
)

// ErrInvalidPasswordOrCorrupt hides whether the password or the file is wrong.
var ErrInvalidPasswordOrCorrupt = errors.New("invalid password or corrupted file")

// KDFParams is the on-disk envelope: the Argon2id cost plus the sealed payload.
type KDFParams struct {
	Version int    `json:"version"`
	Mode    string `json:"mode,omitempty"`

	ArgonTime    uint32 `json:"argon_time,omitempty"`
	ArgonMemory  uint32 `json:"argon_memory_kib,omitempty"`
	ArgonThreads uint8  `json:"argon_threads,omitempty"`
	ArgonKeyLen  uint32 `json:"argon_key_len,omitempty"`
	SaltB64      string `json:"salt_b64,omitempty"`

	NonceB64 string `json:"nonce_b64"`
	CTB64    string `json:"ct_b64"`
}

var DefaultKDF = KDFParams{
	Version:      envelopeVersion,
	Mode:         modePassword,
	ArgonTime:    2,
	ArgonMemory:  64 * 1024,
	ArgonThreads: 1,
	ArgonKeyLen:  32,
}

type Options struct {
	KDF KDFParams

	FilePerm      os.FileMode
	DirectoryPerm os.FileMode

	// AADFunc binds extra data to the ciphertext. Readers must pass the same one.
	AADFunc func(path string) []byte
}

func (o Options) withDefaults() Options {
	if o.KDF.Version == 0 {
		o.KDF = DefaultKDF
	}
	if o.FilePerm == 0 {
		o.FilePerm = constants.FilePerm
	}
	if o.DirectoryPerm == 0 {
		o.DirectoryPerm = constants.DirectoryPerm
	}
	return o
}

func (o Options) aad(path string) []byte {
	if o.AADFunc == nil {
		return nil
	}
	return o.AADFunc(path)
}

func pickOptions(opt []Options) Options {
	if len(opt) == 0 {
		return Options{}.withDefaults()
	}
	return opt[0].withDefaults()
}

// WriteEncryptedJSON seals v under password and replaces path atomically.
func WriteEncryptedJSON[T any](path string, v T, password []byte, opt ...Options) error {
	o := pickOptions(opt)
	if err := checkPassword(password); err != nil {
		return errors.Wrap(err, "securefile write")
	}

	plain, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal json")
	}
	defer wipe(plain)

	env, err := seal(plain, password, o.KDF, o.aad(path))
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}

	if err := os.MkdirAll(filepath.Dir(path), o.DirectoryPerm); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	return writeAtomic(path, body, o.FilePerm)
}

// ReadEncryptedJSON opens a file written by WriteEncryptedJSON. A missing file
// surfaces as os.ErrNotExist.
func ReadEncryptedJSON[T any](path string, password []byte, opt ...Options) (T, error) {
	var out T
	o := pickOptions(opt)

	body, err := os.ReadFile(path)
	if err != nil {
		return out, errors.Wrap(err, "read file")
	}
	if err := checkPassword(password); err != nil {
		return out, errors.Wrap(err, "securefile read")
	}

	var env KDFParams
	if err := json.Unmarshal(body, &env); err != nil {
		return out, errors.Wrap(err, "unmarshal envelope")
	}
	plain, err := open(env, password, o.aad(path))
	if err != nil {
		return out, err
	}
	defer wipe(plain)

	if err := json.Unmarshal(plain, &out); err != nil {
		return out, errors.Wrap(err, "unmarshal json")
	}
	return out, nil
}

func seal(plain, password []byte, kdf KDFParams, aad []byte) (KDFParams, error) {
	salt, err := randomBytes(saltSize)
	if err != nil {
		return KDFParams{}, errors.Wrap(err, "salt")
	}
	nonce, err := randomBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return KDFParams{}, errors.Wrap(err, "nonce")
	}

	key := argon2.IDKey(password, salt, kdf.ArgonTime, kdf.ArgonMemory, kdf.ArgonThreads, kdf.ArgonKeyLen)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return KDFParams{}, errors.Wrap(err, "aead")
	}

	env := kdf
	env.Version = envelopeVersion
	env.Mode = modePassword
	env.SaltB64 = b64(salt)
	env.NonceB64 = b64(nonce)
	env.CTB64 = b64(aead.Seal(nil, nonce, plain, aad))
	return env, nil
}

func open(env KDFParams, password, aad []byte) ([]byte, error) {
	if env.Version != envelopeVersion {
		return nil, errors.Newf("unsupported envelope version %d", env.Version)
	}
	if env.Mode != "" && !strings.EqualFold(env.Mode, modePassword) {
		return nil, errors.Newf("unsupported envelope mode %q", env.Mode)
	}

	var salt, nonce, ct []byte
	for _, f := range []struct {
		name string
		in   string
		out  *[]byte
	}{
		{"salt", env.SaltB64, &salt},
		{"nonce", env.NonceB64, &nonce},
		{"ciphertext", env.CTB64, &ct},
	} {
		raw, err := base64.StdEncoding.DecodeString(f.in)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s", f.name)
		}
		*f.out = raw
	}

	key := argon2.IDKey(password, salt, env.ArgonTime, env.ArgonMemory, env.ArgonThreads, env.ArgonKeyLen)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "aead")
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrInvalidPasswordOrCorrupt
	}

	plain, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, ErrInvalidPasswordOrCorrupt
	}
	return plain, nil
}

// writeAtomic writes through a sibling temp file and renames it into place.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return errors.Wrap(err, "write tmp")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "rename")
	}
	return nil
}

func checkPassword(pw []byte) error {
	if len(pw) == 0 {
		return errors.New("empty password")
	}
	for _, b := range pw {
		if b != 0 {
			return nil
		}
	}
	return errors.New("zeroed password buffer")
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
