package seeder

import (
	"context"
	"fmt"
	"time"

	"bookseed/internal/entity"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Report describes one completed or partially completed run.
type Report struct {
	RunID       string
	UserCreated bool
	Inserted    int
	Started     time.Time
	Finished    time.Time
}

// Verification compares the target collection against the plan.
type Verification struct {
	Expected   int
	Count      int64
	Books      []entity.Book
	Matches    bool
	Duplicates int
}

// Service runs a seed plan against a repository.
type Service struct {
	repo   Repository
	plan   Plan
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new seeder service.
func NewService(repo Repository, plan Plan, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		plan:   plan,
		logger: logger.With().Str("component", "seeder").Logger(),
		now:    time.Now,
	}
}

// Plan returns the plan the service was built with.
func (s *Service) Plan() Plan {
	return s.plan
}

// Run creates the admin user and then inserts the plan's books. There is no
// existence check and no rollback: a failed insert leaves the user in place,
// and a second run inserts the books again.
func (s *Service) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunID:   uuid.NewString(),
		Started: s.now(),
	}
	log := s.logger.With().Str("run_id", report.RunID).Logger()

	log.Info().
		Str("user", s.plan.Admin.Username).
		Str("db", s.plan.Admin.Database).
		Msg("creating admin user")
	if err := s.repo.CreateUser(ctx, s.plan.Admin); err != nil {
		report.Finished = s.now()
		log.Error().Err(err).Msg("create admin user failed")
		return report, fmt.Errorf("create admin user: %w", err)
	}
	report.UserCreated = true

	log.Info().
		Stringer("namespace", s.plan.Target).
		Int("books", len(s.plan.Books)).
		Msg("inserting books")
	n, err := s.repo.InsertBooks(ctx, s.plan.Target, s.plan.Books)
	report.Inserted = n
	report.Finished = s.now()
	if err != nil {
		log.Error().Err(err).Int("inserted", n).Msg("insert books failed")
		return report, fmt.Errorf("insert books: %w", err)
	}

	log.Info().
		Int("inserted", n).
		Dur("took", report.Finished.Sub(report.Started)).
		Msg("seed complete")
	return report, nil
}

// Verify reads the target collection back and reports whether it holds
// exactly the plan's books in plan order.
func (s *Service) Verify(ctx context.Context) (Verification, error) {
	v := Verification{Expected: len(s.plan.Books)}

	count, err := s.repo.CountBooks(ctx, s.plan.Target)
	if err != nil {
		return v, fmt.Errorf("count books: %w", err)
	}
	v.Count = count

	books, err := s.repo.ListBooks(ctx, s.plan.Target)
	if err != nil {
		return v, fmt.Errorf("list books: %w", err)
	}
	v.Books = books
	v.Matches = sameBooks(s.plan.Books, books)
	v.Duplicates = duplicates(s.plan.Books, books)

	s.logger.Debug().
		Int64("count", v.Count).
		Bool("matches", v.Matches).
		Int("duplicates", v.Duplicates).
		Msg("verified")
	return v, nil
}

func sameBooks(want, got []entity.Book) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

// duplicates counts stored copies of planned books beyond the first.
func duplicates(plan, stored []entity.Book) int {
	planned := make(map[entity.Book]bool, len(plan))
	for _, b := range plan {
		planned[b] = true
	}
	seen := make(map[entity.Book]int, len(stored))
	for _, b := range stored {
		if planned[b] {
			seen[b]++
		}
	}
	total := 0
	for _, n := range seen {
		if n > 1 {
			total += n - 1
		}
	}
	return total
}
