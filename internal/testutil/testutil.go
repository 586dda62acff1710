package testutil

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"bookseed/internal/entity"

	"github.com/google/uuid"
)

// ErrUserExists is what MemoryRepository reports for a second CreateUser with
// the same name when RejectExistingUsers is set.
var ErrUserExists = errors.New("user already exists")

// TestAdminUser is an admin principal for store and service tests.
var TestAdminUser = entity.AdminUser{
	Username: "seed-admin",
	Password: "seed-password",
	Database: "admin",
	Roles:    []entity.Role{{Role: "root", DB: "admin"}},
}

// TestBooks is a small ordered book set for tests.
var TestBooks = []entity.Book{
	{ID: 1, Title: "Red Mars"},
	{ID: 2, Title: "Green Mars"},
	{ID: 3, Title: "Blue Mars"},
}

// MemoryRepository is an in-memory repository with collection semantics:
// inserts append, nothing is unique.
type MemoryRepository struct {
	mu    sync.Mutex
	Users []entity.AdminUser
	Docs  map[entity.Namespace][]entity.Book

	RejectExistingUsers bool
	InsertErr           error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{Docs: make(map[entity.Namespace][]entity.Book)}
}

func (m *MemoryRepository) CreateUser(ctx context.Context, u entity.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RejectExistingUsers {
		for _, existing := range m.Users {
			if existing.Username == u.Username && existing.Database == u.Database {
				return ErrUserExists
			}
		}
	}
	m.Users = append(m.Users, u)
	return nil
}

func (m *MemoryRepository) InsertBooks(ctx context.Context, ns entity.Namespace, books []entity.Book) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return 0, m.InsertErr
	}
	m.Docs[ns] = append(m.Docs[ns], books...)
	return len(books), nil
}

func (m *MemoryRepository) CountBooks(ctx context.Context, ns entity.Namespace) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Docs[ns])), nil
}

func (m *MemoryRepository) ListBooks(ctx context.Context, ns entity.Namespace) ([]entity.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.Book, len(m.Docs[ns]))
	copy(out, m.Docs[ns])
	return out, nil
}

// MongoURI returns MONGO_TEST_URI or skips the test.
func MongoURI(t testing.TB) string {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("Skipping test: MONGO_TEST_URI not set")
	}
	return uri
}

// PostgresDSN returns PG_TEST_DSN or skips the test.
func PostgresDSN(t testing.TB) string {
	t.Helper()
	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("Skipping test: PG_TEST_DSN not set")
	}
	return dsn
}

// UniqueName returns prefix plus a short random suffix usable as a database,
// collection or role name.
func UniqueName(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return prefix + "_" + suffix
}
