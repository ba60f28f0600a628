package models_test

import (
	"testing"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
)

func TestLogin(t *testing.T) {
	ctx := setupTestDB(t)
	t.Setenv("API_SECRET", "test-secret")

	user, err := models.CreateUser(ctx, &models.NewUser{Username: "chef", Password: "s3cret-pass", Role: models.UserRoleOperator})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Password == "s3cret-pass" {
		t.Fatalf("password stored in clear text")
	}
	if _, err := models.CreateUser(ctx, &models.NewUser{Username: "chef", Password: "another-pass", Role: models.UserRoleAdmin}); !utils.IsValidationError(err) {
		t.Fatalf("duplicate username: expected validation error, got %v", err)
	}

	info, err := models.Login(ctx, "chef", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if info.Role != models.UserRoleOperator || info.Token == "" {
		t.Fatalf("unexpected login info %+v", info)
	}
	token, err := utils.JwtValidate(info.Token)
	if err != nil || !token.Valid {
		t.Fatalf("issued token does not validate: %v", err)
	}
	claims := token.Claims.(*utils.JwtCustomClaim)
	if claims.ID != user.ID || claims.Username != "chef" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := models.Login(ctx, "chef", "wrong"); !models.IsInvalidLogin(err) {
		t.Fatalf("wrong password: expected invalid login, got %v", err)
	}
	if _, err := models.Login(ctx, "nobody", "s3cret-pass"); !models.IsInvalidLogin(err) {
		t.Fatalf("unknown user: expected invalid login, got %v", err)
	}

	if err := config.GetDB().Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("disable user: %v", err)
	}
	if _, err := models.Login(ctx, "chef", "s3cret-pass"); !models.IsInvalidLogin(err) {
		t.Fatalf("disabled user: expected invalid login, got %v", err)
	}
}
