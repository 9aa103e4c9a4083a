package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStrength_RuleOrder(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantMsg  string
	}{
		{
			// Short passwords report only the length reason, even when other
			// rules also fail.
			name:     "too short reports length first",
			password: "abc",
			wantMsg:  "password must be at least 12 characters long",
		},
		{
			name:     "eleven characters still too short",
			password: "Str0ngP@ss!",
			wantMsg:  "password must be at least 12 characters long",
		},
		{
			name:     "missing lowercase",
			password: "STR0NGP@SSWORD!",
			wantMsg:  "password must contain a lowercase letter",
		},
		{
			name:     "missing uppercase",
			password: "str0ngp@ssword!",
			wantMsg:  "password must contain an uppercase letter",
		},
		{
			name:     "missing digit",
			password: "StrongP@ssword!",
			wantMsg:  "password must contain a digit",
		},
		{
			name:     "missing special character",
			password: "Str0ngPassword1",
			wantMsg:  "password must contain a special character",
		},
		{
			// Lowercase is checked before uppercase when both are missing.
			name:     "digits only reports lowercase first",
			password: "123456789012345",
			wantMsg:  "password must contain a lowercase letter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckStrength(tt.password)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestCheckStrength_StrongPasswordPasses(t *testing.T) {
	assert.NoError(t, CheckStrength("Str0ngP@ssword!"))
}

func TestHashPassword_VerifyMatch(t *testing.T) {
	digest, err := HashPassword("Str0ngP@ssword!")
	require.NoError(t, err)

	assert.True(t, digest.Verify("Str0ngP@ssword!"))
	assert.False(t, digest.Verify("Str0ngP@ssword?"))
	assert.False(t, digest.Verify(""))
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword("Str0ngP@ssword!")
	require.NoError(t, err)
	b, err := HashPassword("Str0ngP@ssword!")
	require.NoError(t, err)

	// Fresh random salts must produce distinct digests for the same input.
	assert.NotEqual(t, a.hash, b.hash)
}
