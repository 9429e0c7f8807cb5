package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"trendsetter/storage"
	"trendsetter/storage/models"
	"trendsetter/utils"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const MinBcryptCost = 10

var ErrInvalidCredentials = errors.New("invalid credentials")

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[\p{L}0-9_.]{3,30}$`)
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt ignores anything longer
	maxFullNameLength = 100
	maxBioLength      = 500
)

type RegisterInput struct {
	Email    string
	Password string
	Username string
	FullName string
}

type ProfilePatch struct {
	Username  *string
	FullName  *string
	Bio       *string
	AvatarUrl *string
}

type Service struct {
	store      storage.Store
	bcryptCost int
	clock      utils.Clock
}

func NewService(store storage.Store, bcryptCost int, clock utils.Clock) *Service {
	if bcryptCost < MinBcryptCost {
		bcryptCost = MinBcryptCost
	}
	return &Service{
		store:      store,
		bcryptCost: bcryptCost,
		clock:      clock,
	}
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = normalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	input.FullName = strings.TrimSpace(input.FullName)
	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	hashedPassword, err := HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &models.User{
		Email:     input.Email,
		Password:  hashedPassword,
		Username:  input.Username,
		FullName:  input.FullName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.WithField("user_id", user.Id.Hex()).Info("User registered")
	return user, nil
}

// VerifyCredentials returns ErrInvalidCredentials both for an unknown email
// and for a wrong password.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := CheckPasswordHash(user.Password, password); err != nil {
		log.WithField("user_id", user.Id.Hex()).Debug("Password check failed")
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	objectId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	return s.store.GetUserById(ctx, objectId)
}

// Update applies the whitelisted profile fields. Blank username and full name
// values leave the stored ones unchanged; bio may be cleared.
func (s *Service) Update(ctx context.Context, id string, patch ProfilePatch) (*models.User, error) {
	objectId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	update := models.ProfileUpdate{AvatarUrl: patch.AvatarUrl}
	if patch.Username != nil && strings.TrimSpace(*patch.Username) != "" {
		username := strings.TrimSpace(*patch.Username)
		if !usernameRegex.MatchString(username) {
			return nil, utils.NewValidationError("Username must be 3-30 letters, numbers, dots or underscores")
		}
		update.Username = &username
	}
	if patch.FullName != nil && strings.TrimSpace(*patch.FullName) != "" {
		fullName := strings.TrimSpace(*patch.FullName)
		if len(fullName) > maxFullNameLength {
			return nil, utils.NewValidationError("Full name must be at most %d characters", maxFullNameLength)
		}
		update.FullName = &fullName
	}
	if patch.Bio != nil {
		bio := strings.TrimSpace(*patch.Bio)
		if len(bio) > maxBioLength {
			return nil, utils.NewValidationError("Bio must be at most %d characters", maxBioLength)
		}
		update.Bio = &bio
	}

	return s.store.UpdateUserProfile(ctx, objectId, update)
}

func HashPassword(password string, cost int) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

func CheckPasswordHash(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func validateRegistration(input RegisterInput) error {
	if input.Email == "" || input.Password == "" || input.Username == "" || input.FullName == "" {
		return utils.NewValidationError("Email, password, username and full name are required")
	}
	if !emailRegex.MatchString(input.Email) {
		return utils.NewValidationError("Invalid email format")
	}
	if !usernameRegex.MatchString(input.Username) {
		return utils.NewValidationError("Username must be 3-30 letters, numbers, dots or underscores")
	}
	if len(input.Password) < minPasswordLength || len(input.Password) > maxPasswordLength {
		return utils.NewValidationError("Password must be %d-%d characters", minPasswordLength, maxPasswordLength)
	}
	if len(input.FullName) > maxFullNameLength {
		return utils.NewValidationError("Full name must be at most %d characters", maxFullNameLength)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
