package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "caseflow/internal/errors"
	"caseflow/internal/model"
	"caseflow/internal/repository"
)

// SeedUser describes a staff account created by seeding.
type SeedUser struct {
	Username string
	Password string
	FullName string
	Email    string
	Role     model.Role
	Team     string
}

// DefaultUsers are the staff accounts a fresh installation starts with.
var DefaultUsers = []SeedUser{
	{Username: "admin", Password: "admin123", FullName: "Administrator", Email: "admin@system.com", Role: model.RoleSupervisor},
	{Username: "registrar1", Password: "reg123", FullName: "Main Registrar", Email: "registrar@system.com", Role: model.RoleRegistrar},
	{Username: "assistant1", Password: "ass123", FullName: "Registrar Assistant", Email: "assistant@system.com", Role: model.RoleRegistrarAssistant},
	{Username: "lawyer1", Password: "law123", FullName: "Legal Advisor", Email: "lawyer@system.com", Role: model.RoleLawyer},
}

// UserService exposes user administration operations.
type UserService interface {
	CreateUser(ctx context.Context, in SeedUser) (*model.User, error)
	// SeedUsers creates every user that does not exist yet and returns the ones it created.
	SeedUsers(ctx context.Context, users []SeedUser) ([]model.User, error)
}

type userService struct {
	repo repository.UserRepository
	log  *zap.Logger
}

// NewUserService builds a UserService.
func NewUserService(repo repository.UserRepository, log *zap.Logger) UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &userService{repo: repo, log: log.Named("users")}
}

func (s *userService) CreateUser(ctx context.Context, in SeedUser) (*model.User, error) {
	if in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", apperrors.ErrValidation)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, in.Role)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     in.Username,
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Active:       true,
	}
	if in.Team != "" {
		team := in.Team
		user.Team = &team
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user %s: %w", in.Username, err)
	}
	return user, nil
}

func (s *userService) SeedUsers(ctx context.Context, users []SeedUser) ([]model.User, error) {
	var created []model.User
	for _, su := range users {
		_, err := s.repo.FindByUsername(ctx, su.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return created, fmt.Errorf("check user %s: %w", su.Username, err)
		}
		u, err := s.CreateUser(ctx, su)
		if errors.Is(err, apperrors.ErrConflict) {
			continue
		}
		if err != nil {
			return created, err
		}
		s.log.Info("seeded user", zap.String("username", u.Username), zap.String("role", string(u.Role)))
		created = append(created, *u)
	}
	return created, nil
}
