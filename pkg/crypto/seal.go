package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const sealAlgorithm = "argon2id-chacha20poly1305"

var (
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrInvalidSealed      = errors.New("invalid sealed data format")
	ErrUnsupportedSeal    = errors.New("unsupported seal algorithm")
	ErrDecryptFailed      = errors.New("could not decrypt sealed data: wrong passphrase or corrupted data")
)

// Sealer encrypts small secrets at rest with a key derived from a passphrase.
//
// Output format:
//
//	$argon2id-chacha20poly1305$v=19$m=19456,t=2,p=1$<salt>$<nonce>$<ciphertext>
//
// KDF parameters travel with the data, so Open keeps working after the
// defaults change.
type Sealer struct {
	Memory      uint32 // Memory cost in KiB
	Iterations  uint32 // Number of iterations (time cost)
	Parallelism uint8  // Number of parallel threads
	SaltLength  uint32 // Length of random salt. Ignored during Open()

	passphrase []byte
}

// NewSealer uses the lighter OWASP argon2id profile: a token file is
// opened on every CLI invocation.
//
// @ref https://cheatsheetseries.owasp.org/cheatsheets/Password_Storage_Cheat_Sheet.html
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}
	return &Sealer{
		Memory:      19 * 1024, // 19 MiB
		Iterations:  2,
		Parallelism: 1,
		SaltLength:  16,
		passphrase:  []byte(passphrase),
	}, nil
}

func (s *Sealer) deriveKey(salt []byte, memory, iterations uint32, parallelism uint8) []byte {
	return argon2.IDKey(s.passphrase, salt, iterations, memory, parallelism, chacha20poly1305.KeySize)
}

func (s *Sealer) Seal(plaintext []byte) (string, error) {
	salt := make([]byte, s.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := chacha20poly1305.New(s.deriveKey(salt, s.Memory, s.Iterations, s.Parallelism))
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, []byte(sealAlgorithm))

	encoded := fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s$%s",
		sealAlgorithm,
		argon2.Version,
		s.Memory,
		s.Iterations,
		s.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(nonce),
		base64.RawStdEncoding.EncodeToString(ciphertext))

	return encoded, nil
}

func (s *Sealer) Open(sealed string) ([]byte, error) {
	params, salt, nonce, ciphertext, err := decodeSealed(sealed)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(s.deriveKey(salt, params.Memory, params.Iterations, params.Parallelism))
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrInvalidSealed
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(sealAlgorithm))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// IsSealed reports whether data looks like Seal output
func IsSealed(data string) bool {
	return strings.HasPrefix(data, "$"+sealAlgorithm+"$")
}

func decodeSealed(encoded string) (*Sealer, []byte, []byte, []byte, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 7 {
		return nil, nil, nil, nil, ErrInvalidSealed
	}

	if parts[1] != sealAlgorithm {
		return nil, nil, nil, nil, ErrUnsupportedSeal
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, nil, nil, ErrUnsupportedSeal
	}

	params := &Sealer{}
	var p int
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &p); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if p <= 0 || p > 255 {
		return nil, nil, nil, nil, ErrInvalidSealed
	}
	params.Parallelism = uint8(p)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid salt encoding: %w", err)
	}

	nonce, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid nonce encoding: %w", err)
	}

	ciphertext, err := base64.RawStdEncoding.DecodeString(parts[6])
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid ciphertext encoding: %w", err)
	}

	return params, salt, nonce, ciphertext, nil
}
