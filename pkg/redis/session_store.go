package redis

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"time"
)

// ErrSessionNotFound is returned when no entry exists for a session
var ErrSessionNotFound = errors.New("session entry not found")

// SessionStore keeps AES-GCM sealed JSON documents in Redis, one per client session
type SessionStore struct {
	encryptionKey []byte
	namespace     string
}

var (
	setSessionValue    = Set
	getSessionValue    = Get
	marshalSessionJSON = json.Marshal
)

// NewSessionStore creates a session store whose keys are "<namespace>:<session id>"
func NewSessionStore(encryptionKeyHex, namespace string) (*SessionStore, error) {
	key, err := hex.DecodeString(encryptionKeyHex)
	if err != nil {
		return nil, errors.New("invalid encryption key hex")
	}
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes (64 hex chars)")
	}
	if namespace == "" {
		namespace = "session"
	}
	return &SessionStore{encryptionKey: key, namespace: namespace}, nil
}

// Key returns the Redis key for a session
func (s *SessionStore) Key(sessionID string) string {
	return s.namespace + ":" + sessionID
}

// Save seals v and stores it for the session
func (s *SessionStore) Save(ctx context.Context, sessionID string, v interface{}, expiration time.Duration) error {
	sealed, err := s.Seal(v)
	if err != nil {
		return err
	}
	return setSessionValue(ctx, s.Key(sessionID), sealed, expiration)
}

// Load reads and opens the session entry into v
func (s *SessionStore) Load(ctx context.Context, sessionID string, v interface{}) error {
	raw, err := getSessionValue(ctx, s.Key(sessionID))
	if err != nil {
		if IsNil(err) {
			return ErrSessionNotFound
		}
		return err
	}
	return s.Open(raw, v)
}

// Seal marshals v to JSON and encrypts it
func (s *SessionStore) Seal(v interface{}) (string, error) {
	jsonData, err := marshalSessionJSON(v)
	if err != nil {
		return "", err
	}
	return s.encrypt(jsonData)
}

// Open decrypts raw and unmarshals it into v
func (s *SessionStore) Open(raw string, v interface{}) error {
	plain, err := s.decrypt(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(plain, v)
}

func (s *SessionStore) encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, []byte(s.namespace))
	return hex.EncodeToString(ciphertext), nil
}

func (s *SessionStore) decrypt(ciphertextHex string) ([]byte, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, []byte(s.namespace))
}
