package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateUser(t *testing.T) {
	user, err := CreateUser("fox", "fox@example.com", "hunter2secret")
	assert.NoError(t, err)
	assert.Equal(t, ROLE_USER, user.Role)
	assert.Equal(t, STATUS_ACTIVE, user.Status)
	assert.NotEqual(t, "hunter2secret", user.Password, "password must be stored hashed")
	assert.True(t, user.CheckPassword("hunter2secret"))
	assert.False(t, user.CheckPassword("wrong"))
}

func TestCreateUserMagicLinkOnly(t *testing.T) {
	user, err := CreateUser("fox", "fox@example.com", "")
	assert.NoError(t, err)
	assert.Empty(t, user.Password)
	assert.False(t, user.CheckPassword(""), "empty stored password never verifies")
}

func TestCreateUserInvalidEmail(t *testing.T) {
	_, err := CreateUser("fox", "not-an-email", "")
	assert.Error(t, err)
}

func TestGenerateLoginToken(t *testing.T) {
	a, err := GenerateLoginToken()
	assert.NoError(t, err)
	assert.Len(t, a, 48)

	b, err := GenerateLoginToken()
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
