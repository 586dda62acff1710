package seeder

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"bookseed/internal/entity"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultPlan []byte

// ErrInvalidPlan is returned when a plan file is missing required fields.
var ErrInvalidPlan = errors.New("invalid seed plan")

var validate = validator.New()

// Plan is everything one seeding run writes: the admin principal, the target
// namespace and the ordered documents.
type Plan struct {
	Admin  entity.AdminUser
	Target entity.Namespace
	Books  []entity.Book
}

type planFile struct {
	Admin struct {
		User  string `yaml:"user" validate:"required"`
		Pwd   string `yaml:"pwd" validate:"required"`
		DB    string `yaml:"db" validate:"required"`
		Roles []struct {
			Role string `yaml:"role" validate:"required"`
			DB   string `yaml:"db" validate:"required"`
		} `yaml:"roles" validate:"required,min=1,dive"`
	} `yaml:"admin"`
	Target struct {
		Database   string `yaml:"database" validate:"required"`
		Collection string `yaml:"collection" validate:"required"`
	} `yaml:"target"`
	Books []struct {
		ID    int    `yaml:"id"`
		Title string `yaml:"title"`
	} `yaml:"books"`
}

// DefaultPlan returns the plan compiled into the binary.
func DefaultPlan() (Plan, error) {
	return ParsePlan(defaultPlan)
}

// LoadPlan reads a plan from a YAML file. An empty path selects the default plan.
func LoadPlan(path string) (Plan, error) {
	if path == "" {
		return DefaultPlan()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan %s: %w", path, err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates a YAML plan. Books are taken as-is.
func ParsePlan(data []byte) (Plan, error) {
	var f planFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := validate.Struct(f); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	p := Plan{
		Admin: entity.AdminUser{
			Username: f.Admin.User,
			Password: f.Admin.Pwd,
			Database: f.Admin.DB,
			Roles:    make([]entity.Role, 0, len(f.Admin.Roles)),
		},
		Target: entity.Namespace{
			Database:   f.Target.Database,
			Collection: f.Target.Collection,
		},
		Books: make([]entity.Book, 0, len(f.Books)),
	}
	for _, r := range f.Admin.Roles {
		p.Admin.Roles = append(p.Admin.Roles, entity.Role{Role: r.Role, DB: r.DB})
	}
	for _, b := range f.Books {
		p.Books = append(p.Books, entity.Book{ID: b.ID, Title: b.Title})
	}
	return p, nil
}
