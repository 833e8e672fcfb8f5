package core

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"chatpalace/internal/apperr"
	"chatpalace/internal/config"
	"chatpalace/internal/store"
)

type UserService struct {
	dbStore *store.SQLiteStore
	logger  *zap.Logger
}

func NewUserService(db *store.SQLiteStore, logger *zap.Logger) *UserService {
	return &UserService{dbStore: db, logger: logger}
}

// Register creates a new user with a bcrypt-hashed password. The
// username must be unique across all users.
func (s *UserService) Register(username, profileImage, password, passwordRepeat string) (*store.User, error) {
	if username == "" || password == "" {
		return nil, apperr.InvalidArg("username and password are required")
	}
	if passwordRepeat != "" && password != passwordRepeat {
		return nil, apperr.InvalidArg("passwords do not match")
	}

	existing, err := s.dbStore.GetUserByUsername(username)
	if err != nil {
		s.logger.Error("failed to check username uniqueness", zap.String("username", username), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to register user", err)
	}
	if existing != nil {
		return nil, apperr.AlreadyExists("username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), config.AppConfig.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := store.User{
		Username:     username,
		ProfileImage: profileImage,
		PasswordHash: string(hash),
	}
	if err := s.dbStore.CreateUser(&user); err != nil {
		s.logger.Error("failed to create user", zap.String("username", username), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to register user", err)
	}
	return &user, nil
}

// Login verifies the credentials. Unknown username and wrong password
// are indistinguishable to the caller.
func (s *UserService) Login(username, password string) (*store.User, error) {
	user, err := s.dbStore.GetUserByUsername(username)
	if err != nil {
		s.logger.Error("failed to look up user for login", zap.String("username", username), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "login failed", err)
	}
	if user == nil {
		return nil, apperr.Unauthorized("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid username or password")
	}
	return user, nil
}

// EditUser overwrites the supplied fields and leaves omitted (empty)
// ones untouched. The password is re-hashed only when a non-blank new
// one is supplied; otherwise the stored hash stays.
func (s *UserService) EditUser(id, username, profileImage, password string) error {
	var newUsername, newImage, hash *string
	if username != "" {
		other, err := s.dbStore.GetUserByUsername(username)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, "failed to update user", err)
		}
		if other != nil && other.ID != id {
			return apperr.AlreadyExists("username already exists")
		}
		newUsername = &username
	}
	if profileImage != "" {
		newImage = &profileImage
	}
	if strings.TrimSpace(password) != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), config.AppConfig.BcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		hs := string(h)
		hash = &hs
	}

	affected, err := s.dbStore.UpdateUser(id, newUsername, newImage, hash)
	if err != nil {
		s.logger.Error("failed to update user", zap.String("userID", id), zap.Error(err))
		return apperr.Wrap(apperr.CodeInternal, "failed to update user", err)
	}
	if affected == 0 {
		return apperr.Internal("failed to update user")
	}
	return nil
}

func (s *UserService) GetUser(id string) (*store.User, error) {
	user, err := s.dbStore.GetUserByID(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to fetch user", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func (s *UserService) ListUsers() ([]store.User, error) {
	users, err := s.dbStore.ListUsers()
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to list users", err)
	}
	return users, nil
}
