package utils

import (
	"context"
	"crypto/rand"
	"os"
	"strconv"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/SharathcAcharya/EduCore-sub001/storage"
)

var bgContext = context.Background()

// AccessToken identifies an authenticated participant: an admin, a
// teacher or a student. SchoolID scopes every request to one school.
type AccessToken struct {
	ID       uint   `json:"ID"`
	Role     string `json:"role"` // admin | teacher | student
	SchoolID uint   `json:"schoolID"`
	Name     string `json:"name"`
}

type ForgotPasswordToken struct {
	ID    uint   `json:"ID"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

type RefreshTokenInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func CreateForgotPasswordToken(id uint, role, email string) (string, error) {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("EMAIL_TOKEN_SECRET"), 10*time.Minute)

	claims := ForgotPasswordToken{
		ID:    id,
		Role:  role,
		Email: email,
	}

	token, err := signer.Sign(claims)
	if err != nil {
		return "", err
	}

	return string(token), nil
}

// CreateTokenPair signs an access/refresh pair and registers the refresh
// token in Redis so it can be revoked.
func CreateTokenPair(id uint, role string, schoolID uint, name string) (*jwt.TokenPair, error) {
	accessTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 24*time.Hour)
	refreshTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("REFRESH_TOKEN_SECRET"), 365*24*time.Hour)

	refreshClaims := jwt.Claims{Subject: role + ":" + strconv.FormatUint(uint64(id), 10)}

	accessTokenClaims := AccessToken{
		ID:       id,
		Role:     role,
		SchoolID: schoolID,
		Name:     name,
	}

	accessToken, err := accessTokenSigner.Sign(accessTokenClaims)
	if err != nil {
		return nil, err
	}

	refreshToken, err := refreshTokenSigner.Sign(refreshClaims)
	if err != nil {
		return nil, err
	}

	var tokenPair jwt.TokenPair
	tokenPair.AccessToken = accessToken
	tokenPair.RefreshToken = refreshToken

	if storage.Redis != nil {
		storage.Redis.Set(bgContext, string(refreshToken), refreshClaims.Subject, 365*24*time.Hour+5*time.Minute)
	}

	return &tokenPair, nil
}

// RefreshToken rotates a refresh token: the presented token must still be
// in the Redis allow-list, is consumed, and a fresh pair is issued. The
// route layer resolves the subject back into an account.
func RefreshToken(ctx iris.Context, lookup func(role string, id uint) (*AccessToken, error)) {
	token := jwt.GetVerifiedToken(ctx)
	tokenStr := string(token.Token)
	subject, tokenErr := storage.Redis.Get(bgContext, tokenStr).Result()

	if tokenErr != nil {
		CreateNotFound(ctx)
		return
	}

	role, idStr, found := cutSubject(subject)
	if !found {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	storage.Redis.Del(bgContext, tokenStr)
	id, parseErr := strconv.ParseUint(idStr, 10, 32)
	if parseErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	claims, lookupErr := lookup(role, uint(id))
	if lookupErr != nil {
		CreateNotFound(ctx)
		return
	}

	tokenPair, tokenPairErr := CreateTokenPair(claims.ID, claims.Role, claims.SchoolID, claims.Name)
	if tokenPairErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

func cutSubject(subject string) (role, id string, ok bool) {
	for i := 0; i < len(subject); i++ {
		if subject[i] == ':' {
			return subject[:i], subject[i+1:], true
		}
	}
	return "", "", false
}

// GenerateShortToken returns a URL-safe random string of n*2 hex chars.
func GenerateShortToken(n int) string {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return ""
	}
	const hex = "0123456789abcdef"
	out := make([]byte, n*2)
	for i, v := range b {
		out[i*2] = hex[v>>4]
		out[i*2+1] = hex[v&0x0f]
	}
	return string(out)
}
