package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/DisCard-Technologies/discard-sub000/internal/model"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/scrypt"
)

const (
	// scrypt parameters for the local key file.
	// Security is prioritized over performance.
	//
	// N=2^18 (~256MB RAM, 0.5-2s) - maximum security while remaining
	// compatible with mobile devices; brute-force stays extremely expensive.
	scryptN      = 1 << 18
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 32
	nonceLen     = 12

	networkSolana = "solana"
	fileExt       = ".skw"
)

// FileKeystore is a Keystore backed by a password-encrypted local file.
// The password is held in memory for the life of the process; every
// GetLocalSigningKeypair call re-decrypts the file and returns a fresh
// copy of the key.
type FileKeystore struct {
	path     string
	password []byte
}

// NewFileKeystore creates a keystore over the given .skw file.
// The password is copied; the caller may zero its own copy.
func NewFileKeystore(path string, password []byte) (*FileKeystore, error) {
	if !strings.HasSuffix(path, fileExt) {
		return nil, fmt.Errorf("key file must have %s extension", fileExt)
	}
	pw := make([]byte, len(password))
	copy(pw, password)
	return &FileKeystore{path: path, password: pw}, nil
}

// GetLocalSigningKeypair decrypts the key file and returns the 64-byte
// signing key. Returns ErrNoKey when the file does not exist.
func (k *FileKeystore) GetLocalSigningKeypair() (solana.PrivateKey, error) {
	_, data, err := readKeyFile(k.path, k.password)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoKey
		}
		return nil, err
	}

	if len(data.PrivateKey) != 64 {
		clear(data.PrivateKey)
		return nil, fmt.Errorf("invalid private key length: %d", len(data.PrivateKey))
	}

	return solana.PrivateKey(data.PrivateKey), nil
}

// Address reads the public address from the file header without decryption
func (k *FileKeystore) Address() (string, error) {
	keyFile, err := readKeyFileHeader(k.path)
	if err != nil {
		return "", err
	}
	return keyFile.Address, nil
}

// Close wipes the in-memory password copy
func (k *FileKeystore) Close() {
	clear(k.password)
}

// Rekey re-encrypts the key file under a new password with a fresh salt
// and nonce. Passwords must be []byte (caller should zero them after use).
func Rekey(path string, oldPassword, newPassword []byte) error {
	keyFile, data, err := readKeyFile(path, oldPassword)
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}
	defer clear(data.PrivateKey)

	if err := writeKeyFile(path, keyFile.Network, keyFile.Address, data, newPassword); err != nil {
		return fmt.Errorf("failed to re-encrypt key file: %w", err)
	}
	return nil
}

// Generate creates a new signing keypair and writes the encrypted key file.
// Fails if the file already exists and is not empty.
func Generate(path string, password []byte) (address string, err error) {
	if !strings.HasSuffix(path, fileExt) {
		return "", fmt.Errorf("key file must have %s extension", fileExt)
	}

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return "", fmt.Errorf("key file already exists: %w", os.ErrExist)
	}

	wallet := solana.NewWallet()
	defer clear(wallet.PrivateKey)

	address = wallet.PublicKey().String()

	data := &model.SigningKeyData{
		PrivateKey: wallet.PrivateKey,
		CreatedAt:  time.Now().Format(time.RFC3339),
	}

	if err := writeKeyFile(path, networkSolana, address, data, password); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}

	return address, nil
}

// writeKeyFile encrypts the key data and writes the .skw file
// password must be []byte for security (caller should zero it after use)
func writeKeyFile(path, network, address string, data *model.SigningKeyData, password []byte) error {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal key data: %w", err)
	}
	defer clear(plaintext) // wipe plaintext bytes from memory

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	keyFile := model.KeyFile{
		Network:    network,
		Address:    address,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}

	fileData, err := json.MarshalIndent(keyFile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key file: %w", err)
	}

	// UTF-8 BOM for proper display in Windows
	utf8BOM := []byte{0xEF, 0xBB, 0xBF}
	fileDataWithBOM := append(utf8BOM, fileData...)

	if err := os.WriteFile(path, fileDataWithBOM, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// readKeyFile reads and decrypts the .skw file
// password must be []byte for security (caller should zero it after use)
func readKeyFile(path string, password []byte) (*model.KeyFile, *model.SigningKeyData, error) {
	keyFile, err := readKeyFileHeader(path)
	if err != nil {
		return nil, nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(keyFile.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(keyFile.Nonce)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(keyFile.CipherText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, nil, errors.New("invalid password")
	}
	defer clear(plaintext) // wipe decrypted bytes from memory

	var data model.SigningKeyData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal key data: %w", err)
	}

	return keyFile, &data, nil
}

// readKeyFileHeader reads the plaintext part of the .skw file
func readKeyFileHeader(path string) (*model.KeyFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("key file does not exist: %w", os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() == 0 {
		return nil, errors.New("key file is empty")
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Skip UTF-8 BOM if present
	if len(fileData) >= 3 && fileData[0] == 0xEF && fileData[1] == 0xBB && fileData[2] == 0xBF {
		fileData = fileData[3:]
	}

	var keyFile model.KeyFile
	if err := json.Unmarshal(fileData, &keyFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key file: %w", err)
	}

	return &keyFile, nil
}

func newGCM(password, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
