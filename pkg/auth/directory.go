package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
	"github.com/dd0wney/cluso-commgraph/pkg/validation"
)

var (
	// ErrInvalidCredentials covers an unknown user, a wrong password and an
	// inactive account alike.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrPasswordHashFailed = errors.New("failed to hash password")
)

// AdminUsername is the account created at bootstrap.
const AdminUsername = "admin"

// BcryptCost is the cost factor for password hashes.
const BcryptCost = 12

// Directory manages accounts stored as User nodes.
type Directory struct {
	store  graphstore.Store
	logger logging.Logger
	cost   int

	// dummyHash is compared against when the user does not exist so that
	// unknown and known usernames take similar time.
	dummyHash []byte
}

// NewDirectory creates a directory. cost <= 0 uses BcryptCost.
func NewDirectory(store graphstore.Store, logger logging.Logger, cost int) (*Directory, error) {
	if cost <= 0 {
		cost = BcryptCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordHashFailed, err)
	}
	return &Directory{
		store:     store,
		logger:    logging.OrNop(logger).With(logging.Component("auth")),
		cost:      cost,
		dummyHash: dummy,
	}, nil
}

// Create adds an account. A taken username is schema.ErrUserExists.
func (d *Directory) Create(ctx context.Context, req validation.UserCreate) (schema.User, error) {
	if req.Role == "" {
		req.Role = schema.RoleAnalyst
	}
	if err := validation.ValidateUserCreate(&req); err != nil {
		return schema.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), d.cost)
	if err != nil {
		return schema.User{}, fmt.Errorf("%w: %v", ErrPasswordHashFailed, err)
	}

	user := schema.User{
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		Role:         req.Role,
		IsActive:     true,
	}
	err = graphstore.WithSession(ctx, d.store, func(s graphstore.Session) error {
		return s.CreateUser(ctx, user)
	})
	if err != nil {
		return schema.User{}, err
	}

	d.logger.Info("user created", logging.Username(user.Username), logging.String("role", user.Role))
	return user, nil
}

// Get returns the account or schema.ErrNotFound.
func (d *Directory) Get(ctx context.Context, username string) (schema.User, error) {
	var user schema.User
	err := graphstore.WithSession(ctx, d.store, func(s graphstore.Session) error {
		var err error
		user, err = s.GetUser(ctx, username)
		return err
	})
	return user, err
}

// List returns every account.
func (d *Directory) List(ctx context.Context) ([]schema.User, error) {
	var users []schema.User
	err := graphstore.WithSession(ctx, d.store, func(s graphstore.Session) error {
		var err error
		users, err = s.ListUsers(ctx)
		return err
	})
	return users, err
}

// Authenticate checks a username and password. Every mismatch is
// ErrInvalidCredentials.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (schema.User, error) {
	user, err := d.Get(ctx, username)
	if schema.IsNotFound(err) {
		_ = bcrypt.CompareHashAndPassword(d.dummyHash, []byte(password))
		return schema.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return schema.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return schema.User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return schema.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// EnsureAdmin creates the admin account when no admin exists. An empty
// password is replaced by a generated one, which is returned so the caller
// can report it once.
func (d *Directory) EnsureAdmin(ctx context.Context, password string) (generated string, created bool, err error) {
	users, err := d.List(ctx)
	if err != nil {
		return "", false, err
	}
	for _, u := range users {
		if u.Role == schema.RoleAdmin {
			return "", false, nil
		}
	}

	if password == "" {
		password = uuid.NewString()
		generated = password
	}
	_, err = d.Create(ctx, validation.UserCreate{
		Username: AdminUsername,
		FullName: "Administrator",
		Password: password,
		Role:     schema.RoleAdmin,
	})
	if err != nil {
		return "", false, fmt.Errorf("bootstrap admin: %w", err)
	}
	return generated, true, nil
}
