package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"bookseed/internal/config"
	"bookseed/internal/entity"
	"bookseed/internal/seeder"
	"bookseed/internal/testutil"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCLI(t *testing.T, repo *testutil.MemoryRepository) (*app, *bytes.Buffer) {
	t.Helper()
	for _, k := range []string{"SEED_TARGET", "MONGO_URI", "DB_DSN", "SEED_TIMEOUT", "SEED_PLAN", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "disabled")
	chdir(t, t.TempDir())

	var out bytes.Buffer
	a := newApp(&out, io.Discard)
	a.open = func(ctx context.Context, cfg config.Config, logger zerolog.Logger) (seeder.Repository, func(), error) {
		return repo, func() {}, nil
	}
	return a, &out
}

func execute(a *app, args ...string) error {
	cmd := newRootCmd(a)
	if args == nil {
		// nil args make cobra fall back to os.Args
		args = []string{}
	}
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestPlanCommand(t *testing.T) {
	a, out := setupCLI(t, testutil.NewMemoryRepository())

	require.NoError(t, execute(a, "plan"))
	assert.Contains(t, out.String(), "application.book")
	assert.Contains(t, out.String(), `"The Martian"`)
	assert.Contains(t, out.String(), `"Edison''s Conquest of Mars "`)
	assert.Contains(t, out.String(), "root@admin")
}

func TestPlanCommand_HidesPassword(t *testing.T) {
	a, out := setupCLI(t, testutil.NewMemoryRepository())
	path := filepath.Join(t.TempDir(), "plan.yaml")
	content := `
admin: {user: ops, pwd: s3cret-value, db: admin, roles: [{role: root, db: admin}]}
target: {database: lib, collection: shelf}
books: [{id: 1, title: Dune}]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	require.NoError(t, execute(a, "plan", "--plan", path))
	assert.Contains(t, out.String(), "lib.shelf")
	assert.NotContains(t, out.String(), "s3cret-value")
}

func TestRunCommand(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	a, out := setupCLI(t, repo)
	ns := entity.Namespace{Database: "application", Collection: "book"}

	require.NoError(t, execute(a, "run"))
	assert.Contains(t, out.String(), "Seed report")
	require.Len(t, repo.Users, 1)
	assert.Equal(t, "mongo", repo.Users[0].Username)
	assert.Len(t, repo.Docs[ns], 5)

	t.Run("root command runs the seed too", func(t *testing.T) {
		require.NoError(t, execute(a))
		assert.Len(t, repo.Docs[ns], 10)
	})
}

func TestVerifyCommand(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	a, out := setupCLI(t, repo)

	t.Run("empty collection fails", func(t *testing.T) {
		err := execute(a, "verify")
		assert.ErrorIs(t, err, errMismatch)
	})

	t.Run("seeded collection passes", func(t *testing.T) {
		require.NoError(t, execute(a, "run"))
		out.Reset()

		require.NoError(t, execute(a, "verify"))
		assert.Contains(t, out.String(), "Blue Mars")
	})

	t.Run("second seed fails verification", func(t *testing.T) {
		require.NoError(t, execute(a, "run"))

		err := execute(a, "verify")
		assert.ErrorIs(t, err, errMismatch)
		assert.Contains(t, err.Error(), "10 documents")
	})
}

func TestRootCommand_Errors(t *testing.T) {
	t.Run("unknown target flag", func(t *testing.T) {
		a, _ := setupCLI(t, testutil.NewMemoryRepository())
		err := execute(a, "plan", "--target", "cassandra")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("connection failure", func(t *testing.T) {
		a, _ := setupCLI(t, testutil.NewMemoryRepository())
		refused := errors.New("connection refused")
		a.open = func(ctx context.Context, cfg config.Config, logger zerolog.Logger) (seeder.Repository, func(), error) {
			return nil, nil, refused
		}
		err := execute(a, "run")
		assert.ErrorIs(t, err, refused)
		assert.Contains(t, err.Error(), "connect mongo")
	})

	t.Run("existing admin user surfaces", func(t *testing.T) {
		repo := testutil.NewMemoryRepository()
		repo.RejectExistingUsers = true
		a, _ := setupCLI(t, repo)

		require.NoError(t, execute(a, "run"))
		err := execute(a, "run")
		assert.ErrorIs(t, err, testutil.ErrUserExists)
	})

	t.Run("failed insert keeps the admin user", func(t *testing.T) {
		repo := testutil.NewMemoryRepository()
		repo.InsertErr = errors.New("disk full")
		a, _ := setupCLI(t, repo)

		err := execute(a, "run")
		assert.ErrorIs(t, err, repo.InsertErr)
		assert.Contains(t, err.Error(), "insert books")
		require.Len(t, repo.Users, 1)
		assert.Equal(t, "mongo", repo.Users[0].Username)
		assert.Empty(t, repo.Docs[entity.Namespace{Database: "application", Collection: "book"}])
	})

	t.Run("target flag selects postgres", func(t *testing.T) {
		a, _ := setupCLI(t, testutil.NewMemoryRepository())
		var got string
		a.open = func(ctx context.Context, cfg config.Config, logger zerolog.Logger) (seeder.Repository, func(), error) {
			got = cfg.Target
			return testutil.NewMemoryRepository(), func() {}, nil
		}
		require.NoError(t, execute(a, "run", "--target", "postgres"))
		assert.Equal(t, config.TargetPostgres, got)
	})
}

func TestRunMain(t *testing.T) {
	setup := func(t *testing.T) (*app, *bytes.Buffer) {
		t.Helper()
		a, _ := setupCLI(t, testutil.NewMemoryRepository())
		t.Setenv("LOG_LEVEL", "error")
		t.Setenv("LOG_FORMAT", "json")
		var logs bytes.Buffer
		a.errOut = &logs
		return a, &logs
	}

	t.Run("success exits zero", func(t *testing.T) {
		a, logs := setup(t)
		assert.Equal(t, 0, runMain(context.Background(), a, []string{"plan"}))
		assert.Empty(t, logs.String())
	})

	t.Run("failure names the command", func(t *testing.T) {
		a, logs := setup(t)
		require.Equal(t, 1, runMain(context.Background(), a, []string{"verify"}))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
		assert.Equal(t, "command failed", entry["message"])
		assert.Equal(t, "verify", entry["command"])
		assert.Contains(t, entry["error"], "collection does not match plan")
	})
}
