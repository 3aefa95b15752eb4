package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"quill/internal/models"
	"quill/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 30
	passwordMinLen = 6
	passwordMaxLen = 72 // bcrypt input limit, bytes
)

type UserService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewUserService(db *gorm.DB, log logrus.FieldLogger) *UserService {
	return &UserService{db: db, log: log}
}

func validateRegistration(username, email, password string) error {
	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		return fmt.Errorf("%w: username is required", ErrValidation)
	case n < usernameMinLen || n > usernameMaxLen:
		return fmt.Errorf("%w: username must be %d to %d characters", ErrValidation, usernameMinLen, usernameMaxLen)
	}
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !utils.ValidEmail(email) {
		return fmt.Errorf("%w: email address is not valid", ErrValidation)
	}
	if len(password) < passwordMinLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, passwordMinLen)
	}
	if len(password) > passwordMaxLen {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, passwordMaxLen)
	}
	return nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// Register creates a user. The existence checks give a precise message; the unique
// indexes on username and email settle any race between check and insert.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = utils.NormalizeEmail(email)
	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Avatar:   utils.GetRandomEmoji(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: this email address is already registered", ErrConflict)
		}
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: this username is already taken", ErrConflict)
		}

		if err := tx.Create(&user).Error; err != nil {
			if isDuplicate(err) {
				return fmt.Errorf("%w: username or email is already registered", ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	return &user, nil
}

// Authenticate never says which half of the credentials was wrong.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", utils.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: email or password is incorrect", ErrAuth)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, fmt.Errorf("%w: email or password is incorrect", ErrAuth)
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}
