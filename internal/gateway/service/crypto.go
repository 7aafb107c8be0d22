package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"strings"

	"github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	"gorm.io/datatypes"
)

const sealVersion = 1

// sealedConfig is the at rest form of a gateway config. The gateway name is
// bound as associated data so a row copied onto another gateway fails to open.
type sealedConfig struct {
	Version    int    `json:"version"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

type sealer struct {
	aead cipher.AEAD
}

// newSealer derives an AES-256-GCM key from secret. An empty secret yields a
// nil sealer whose methods report ErrEncryptionKeyMissing.
func newSealer(secret string) *sealer {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	key := sha256.Sum256([]byte(secret))
	// a 32 byte key and the default nonce size cannot fail here
	block, _ := aes.NewCipher(key[:])
	aead, _ := cipher.NewGCM(block)
	return &sealer{aead: aead}
}

func (s *sealer) Seal(gateway string, cfg map[string]any) (datatypes.JSON, error) {
	if s == nil {
		return nil, domain.ErrEncryptionKeyMissing
	}
	plain, err := json.Marshal(cfg)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return json.Marshal(sealedConfig{
		Version:    sealVersion,
		Nonce:      nonce,
		Ciphertext: s.aead.Seal(nil, nonce, plain, []byte(gateway)),
	})
}

func (s *sealer) Open(gateway string, stored datatypes.JSON) (map[string]any, error) {
	if s == nil {
		return nil, domain.ErrEncryptionKeyMissing
	}
	var sc sealedConfig
	if err := json.Unmarshal(stored, &sc); err != nil || sc.Version != sealVersion || len(sc.Nonce) != s.aead.NonceSize() {
		return nil, domain.ErrInvalidConfig
	}
	plain, err := s.aead.Open(nil, sc.Nonce, sc.Ciphertext, []byte(gateway))
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}
	out := map[string]any{}
	if err := json.Unmarshal(plain, &out); err != nil {
		return nil, domain.ErrInvalidConfig
	}
	return out, nil
}

// normalizeConfig trims keys and string values and drops empty entries.
func normalizeConfig(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if str, ok := v.(string); ok {
			str = strings.TrimSpace(str)
			if str == "" {
				continue
			}
			v = str
		}
		if k = strings.TrimSpace(k); k != "" && v != nil {
			out[k] = v
		}
	}
	return out
}
