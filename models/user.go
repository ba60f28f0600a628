package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;not null" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// userCacheEntry keeps the hash, which User hides from JSON.
type userCacheEntry struct {
	User
	Password string `json:"password"`
}

type NewUser struct {
	Username string   `json:"username" validate:"required,max=100"`
	Password string   `json:"password" validate:"required,min=8"`
	Role     UserRole `json:"role" validate:"required"`
}

type LoginInfo struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}

var (
	errInvalidLogin = errors.New("invalid username or password")
	errUserDisabled = errors.New("user is disabled")
)

/*
caches:
	User:$username
*/

func userCacheKey(username string) string {
	return "User:" + username
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, utils.NewValidationError("invalid role %q", input.Role)
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		Username: strings.TrimSpace(input.Username),
		Password: hashed,
		Role:     input.Role,
		IsActive: utils.NewTrue(),
	}
	if err := config.GetDB().WithContext(ctx).Create(&user).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.NewValidationError("username %q is taken", user.Username)
		}
		return nil, utils.WrapRemote("create user", err)
	}
	return &user, nil
}

func findUserByUsername(ctx context.Context, username string) (*User, error) {
	var cached userCacheEntry
	exists, err := config.GetRedisObject(ctx, userCacheKey(username), &cached)
	if err != nil {
		config.LogError(config.GetLogger(), "user.go", "findUserByUsername", "GetRedisObject", username, err)
	}
	if exists {
		cached.User.Password = cached.Password
		return &cached.User, nil
	}

	var user User
	if err := config.GetDB().WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidLogin
		}
		return nil, utils.WrapRemote("fetch user", err)
	}
	if err := config.SetRedisObject(ctx, userCacheKey(username), userCacheEntry{User: user, Password: user.Password}, utils.GetCacheLifespan()); err != nil {
		config.LogError(config.GetLogger(), "user.go", "findUserByUsername", "SetRedisObject", username, err)
	}
	return &user, nil
}

// Login checks the credentials and issues a bearer token.
func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {
	user, err := findUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, errInvalidLogin
	}
	if !utils.DereferencePtr(user.IsActive, false) {
		return nil, errUserDisabled
	}

	token, err := utils.JwtGenerate(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &LoginInfo{Token: token, Username: user.Username, Role: user.Role}, nil
}

// IsInvalidLogin reports a credential failure, so handlers can answer 401.
func IsInvalidLogin(err error) bool {
	return errors.Is(err, errInvalidLogin) || errors.Is(err, errUserDisabled)
}
