// Package chatcrypto derives a deterministic per-chat AES-256-GCM key
// and seals chat payloads with it, grounded on original_source's
// encrypt_message_for_storage/decrypt_message_from_storage in
// src/server/messages.rs, which is also where the envelope's JSON
// shape and legacy-plaintext fallback come from.
package chatcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// ErrKeyDerivation wraps any failure while deriving or reading a
// per-chat key.
var ErrKeyDerivation = errors.New("chatcrypto: key derivation failed")

// ChatID builds the deterministic identifier a 1:1 chat is filed
// under: "private:" + the two user ids in lexicographic order. This
// makes the identifier, and everything keyed by it, symmetric in the
// two participants.
func ChatID(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return "private:" + userA + "-" + userB
}

// GroupChatID builds the identifier a group chat is filed under.
func GroupChatID(groupID string) string {
	return "group:" + groupID
}

// DeriveKey derives the 32-byte AES-256 key for a chat from its
// participant ids and masterKey. Participants are sorted before
// mixing so the same chat yields the same key regardless of the order
// callers happen to enumerate the parties in.
func DeriveKey(masterKey []byte, participants []string) ([]byte, error) {
	sorted := append([]string(nil), participants...)
	sort.Strings(sorted)

	info := []byte("chatcore-chat-key:" + strings.Join(sorted, ","))
	r := hkdf.New(sha256.New, masterKey, nil, info)

	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, ErrKeyDerivation
	}
	return key, nil
}

// envelope is the on-disk shape of an encrypted message payload,
// matching original_source's serde_json envelope byte for byte.
type envelope struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
}

// Seal encrypts plaintext under key with AES-256-GCM and returns the
// JSON envelope to store in EncryptedMessage.payload.
func Seal(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
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

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	env := envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
	}
	out, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Open decrypts a payload previously produced by Seal. Rows written
// before encryption was enabled are stored as bare plaintext and fail
// to parse as the envelope; Open passes those through unchanged, the
// same legacy fallback original_source's decrypt_message_from_storage
// implements.
func Open(key []byte, payload string) (string, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return payload, nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", err
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", errors.New("chatcrypto: invalid nonce size")
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
