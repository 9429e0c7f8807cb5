package accounts_test

import (
	"context"
	"strings"
	"testing"
	"time"
	"trendsetter/accounts"
	"trendsetter/storage"
	"trendsetter/utils"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestService() (*accounts.Service, *utils.StubClock) {
	clock := utils.NewStubClock()
	return accounts.NewService(storage.NewMemoryManager(), accounts.MinBcryptCost, clock), clock
}

func getTestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func randomInput() accounts.RegisterInput {
	return accounts.RegisterInput{
		Email:    strings.ToLower(gofakeit.LetterN(10)) + "@example.com",
		Password: gofakeit.Password(true, true, true, false, false, 12),
		Username: "user_" + gofakeit.LetterN(8),
		FullName: gofakeit.Name(),
	}
}

func TestRegister(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	service, clock := newTestService()

	input := randomInput()
	input.Email = "  " + strings.ToUpper(input.Email) + " "
	user, err := service.Register(ctx, input)
	require.NoError(t, err)
	require.False(t, user.Id.IsZero())
	require.Equal(t, strings.ToLower(strings.TrimSpace(input.Email)), user.Email)
	require.Equal(t, input.Username, user.Username)
	require.Equal(t, clock.Now(), user.CreatedAt)
	require.NotEqual(t, input.Password, user.Password)
	require.NoError(t, accounts.CheckPasswordHash(user.Password, input.Password))
	require.Empty(t, user.Followers)
	require.Zero(t, user.FollowersCount)
}

func TestRegisterValidation(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	service, _ := newTestService()

	tests := []struct {
		name   string
		modify func(input *accounts.RegisterInput)
	}{
		{"missing email", func(input *accounts.RegisterInput) { input.Email = "" }},
		{"missing password", func(input *accounts.RegisterInput) { input.Password = "" }},
		{"missing username", func(input *accounts.RegisterInput) { input.Username = "" }},
		{"missing full name", func(input *accounts.RegisterInput) { input.FullName = "  " }},
		{"bad email", func(input *accounts.RegisterInput) { input.Email = "bad" }},
		{"short username", func(input *accounts.RegisterInput) { input.Username = "ab" }},
		{"username with spaces", func(input *accounts.RegisterInput) { input.Username = "bad name" }},
		{"short password", func(input *accounts.RegisterInput) { input.Password = "12345" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := randomInput()
			tt.modify(&input)
			_, err := service.Register(ctx, input)
			require.ErrorIs(t, err, utils.ErrValidation)
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	service, _ := newTestService()

	existing := randomInput()
	_, err := service.Register(ctx, existing)
	require.NoError(t, err)

	sameEmail := randomInput()
	sameEmail.Email = existing.Email
	_, err = service.Register(ctx, sameEmail)
	require.ErrorIs(t, err, storage.ErrDuplicateEmail)

	sameUsername := randomInput()
	sameUsername.Username = existing.Username
	_, err = service.Register(ctx, sameUsername)
	require.ErrorIs(t, err, storage.ErrDuplicateUsername)

	both := randomInput()
	both.Email = existing.Email
	both.Username = existing.Username
	_, err = service.Register(ctx, both)
	require.ErrorIs(t, err, storage.ErrDuplicateEmail)
}

func TestVerifyCredentials(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	service, _ := newTestService()

	input := randomInput()
	registered, err := service.Register(ctx, input)
	require.NoError(t, err)

	user, err := service.VerifyCredentials(ctx, strings.ToUpper(input.Email), input.Password)
	require.NoError(t, err)
	require.Equal(t, registered.Id, user.Id)

	_, wrongPasswordErr := service.VerifyCredentials(ctx, input.Email, input.Password+"x")
	require.ErrorIs(t, wrongPasswordErr, accounts.ErrInvalidCredentials)

	_, unknownEmailErr := service.VerifyCredentials(ctx, "nobody@example.com", input.Password)
	require.ErrorIs(t, unknownEmailErr, accounts.ErrInvalidCredentials)
	require.Equal(t, wrongPasswordErr.Error(), unknownEmailErr.Error())
}

func TestGetByID(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	service, _ := newTestService()

	registered, err := service.Register(ctx, randomInput())
	require.NoError(t, err)

	user, err := service.GetByID(ctx, registered.Id.Hex())
	require.NoError(t, err)
	require.Equal(t, registered.Username, user.Username)

	_, err = service.GetByID(ctx, "not-an-id")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = service.GetByID(ctx, primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	service, _ := newTestService()

	registered, err := service.Register(ctx, randomInput())
	require.NoError(t, err)
	other, err := service.Register(ctx, randomInput())
	require.NoError(t, err)

	bio := "Street style addict"
	fullName := "New Name"
	blank := ""
	user, err := service.Update(ctx, registered.Id.Hex(), accounts.ProfilePatch{
		Username: &blank,
		FullName: &fullName,
		Bio:      &bio,
	})
	require.NoError(t, err)
	require.Equal(t, registered.Username, user.Username)
	require.Equal(t, fullName, user.FullName)
	require.Equal(t, bio, user.Bio)
	require.Equal(t, registered.Email, user.Email)

	user, err = service.Update(ctx, registered.Id.Hex(), accounts.ProfilePatch{Bio: &blank})
	require.NoError(t, err)
	require.Empty(t, user.Bio)

	_, err = service.Update(ctx, registered.Id.Hex(), accounts.ProfilePatch{Username: &other.Username})
	require.ErrorIs(t, err, storage.ErrDuplicateUsername)

	invalid := "x"
	_, err = service.Update(ctx, registered.Id.Hex(), accounts.ProfilePatch{Username: &invalid})
	require.ErrorIs(t, err, utils.ErrValidation)

	_, err = service.Update(ctx, primitive.NewObjectID().Hex(), accounts.ProfilePatch{Bio: &bio})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := accounts.HashPassword("super-secret", accounts.MinBcryptCost)
	require.NoError(t, err)
	require.NoError(t, accounts.CheckPasswordHash(hash, "super-secret"))
	require.Error(t, accounts.CheckPasswordHash(hash, "wrong"))
}
