package model

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid simple", "alice", nil},
		{"valid with numbers", "user123", nil},
		{"valid with underscore", "my_user", nil},
		{"valid with hyphen", "my-user", nil},
		{"valid anonymous style", "CrimsonOtter", nil},
		{"valid max length", strings.Repeat("a", MaxUsernameLength), nil},
		{"empty", "", ErrUsernameEmpty},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), ErrUsernameTooLong},
		{"contains space", "has space", ErrUsernameInvalidChars},
		{"contains comma", "a,b", ErrUsernameInvalidChars},
		{"contains bracket", "[HOST]", ErrUsernameInvalidChars},
		{"unicode letter", "ñoño", ErrUsernameInvalidChars},
		{"newline", "user\nname", ErrUsernameInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if err != tt.wantErr {
				t.Errorf("ValidateUsername(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword(""); err != ErrPasswordEmpty {
		t.Errorf("ValidatePassword(\"\") = %v, want ErrPasswordEmpty", err)
	}
	if err := ValidatePassword("pw1"); err != nil {
		t.Errorf("ValidatePassword(pw1) = %v", err)
	}
}

func TestUserAnonymous(t *testing.T) {
	anon := User{Username: "RedFox"}
	if !anon.Anonymous() {
		t.Error("user without password hash should be anonymous")
	}
	reg := User{Username: "alice", PasswordHash: "abc$def"}
	if reg.Anonymous() {
		t.Error("user with password hash should not be anonymous")
	}
}

func TestAuthResultString(t *testing.T) {
	tests := []struct {
		r    AuthResult
		want string
	}{
		{AuthSuccess, "success"},
		{AuthUsernameTaken, "username_taken"},
		{AuthUserNotFound, "user_not_found"},
		{AuthAlreadyOnline, "already_online"},
		{AuthWrongPassword, "wrong_password"},
		{AuthInvalid, "invalid"},
		{AuthResult(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("AuthResult(%d).String() = %q, want %q", tt.r, got, tt.want)
		}
	}
}
