package admin_models

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/reservation/logger"
	"golang.org/x/crypto/argon2"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialChecker is the staff console's opaque credential check.
type CredentialChecker interface {
	Verify(ctx context.Context, username, password string) error
}

// HashPassword derives the stored form of a password with argon2id.
func HashPassword(password string, salt []byte) string {
	hashed := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(hashed)
}

// NewSalt returns 16 random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

func matches(password, storedHash, saltHex string) bool {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	candidate := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}

// PgAdminStore checks credentials against the admins table.
type PgAdminStore struct {
	DB *pgxpool.Pool
}

func NewPgAdminStore(db *pgxpool.Pool) *PgAdminStore {
	return &PgAdminStore{DB: db}
}

func (s *PgAdminStore) Verify(ctx context.Context, username, password string) error {
	var storedHash, salt string
	err := s.DB.QueryRow(ctx, `SELECT password_hash, salt FROM admins WHERE username = $1`, username).Scan(&storedHash, &salt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("failed to load staff record: %w", err)
	}
	if !matches(password, storedHash, salt) {
		return ErrInvalidCredentials
	}
	return nil
}

// Seed inserts or replaces a staff record.
func (s *PgAdminStore) Seed(ctx context.Context, username, password string) error {
	salt, err := NewSalt()
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO admins (username, password_hash, salt) VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, salt = EXCLUDED.salt`,
		username, HashPassword(password, salt), hex.EncodeToString(salt))
	if err != nil {
		return fmt.Errorf("failed to seed staff record: %w", err)
	}
	logger.InfoLogger.Infof("Staff record %s seeded", username)
	return nil
}

type memoryRecord struct {
	hash string
	salt string
}

// MemoryAdminStore holds staff records in process.
type MemoryAdminStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

func NewMemoryAdminStore() *MemoryAdminStore {
	return &MemoryAdminStore{records: make(map[string]memoryRecord)}
}

func (s *MemoryAdminStore) Seed(_ context.Context, username, password string) error {
	salt, err := NewSalt()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[username] = memoryRecord{hash: HashPassword(password, salt), salt: hex.EncodeToString(salt)}
	return nil
}

func (s *MemoryAdminStore) Verify(_ context.Context, username, password string) error {
	s.mu.RLock()
	rec, ok := s.records[username]
	s.mu.RUnlock()
	if !ok || !matches(password, rec.hash, rec.salt) {
		return ErrInvalidCredentials
	}
	return nil
}

var (
	_ CredentialChecker = (*PgAdminStore)(nil)
	_ CredentialChecker = (*MemoryAdminStore)(nil)
)
