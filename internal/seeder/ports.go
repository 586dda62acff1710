package seeder

import (
	"context"

	"bookseed/internal/entity"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=seeder

// Repository defines the storage operations the seeder drives. Implementations
// surface engine errors unchanged.
type Repository interface {
	CreateUser(ctx context.Context, u entity.AdminUser) error
	InsertBooks(ctx context.Context, ns entity.Namespace, books []entity.Book) (int, error)
	CountBooks(ctx context.Context, ns entity.Namespace) (int64, error)
	ListBooks(ctx context.Context, ns entity.Namespace) ([]entity.Book, error)
}
