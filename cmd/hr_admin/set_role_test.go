package main

import (
	"encoding/json"
	"testing"

	"github.com/jonathan/hr-portal/internal/backend/backendtest"
	"github.com/jonathan/hr-portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRole(t *testing.T) {
	fake := backendtest.New(t)
	useFake(t, fake)
	user := fake.AddUser("ana@example.com", "password1")
	fake.Seed("profiles", map[string]any{"id": user.ID, "role": "employee", "first_name": "Ana"})

	out, err := execute(runSetRole, "ANA@example.com", "hr")
	require.NoError(t, err)

	var profile types.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, "hr", profile.Role)
	assert.Equal(t, "Ana", profile.FirstName)

	assert.Equal(t, "hr", fake.Rows("profiles")[0]["role"])
}

func TestSetRole_Missing(t *testing.T) {
	fake := backendtest.New(t)
	useFake(t, fake)
	user := fake.AddUser("noprofile@example.com", "password1")

	_, err := execute(runSetRole, "ghost@example.com", "hr")
	assert.ErrorContains(t, err, "user not found: ghost@example.com")

	_, err = execute(runSetRole, "noprofile@example.com", "hr")
	assert.ErrorContains(t, err, "profile not found for user "+user.ID)
}

func TestSetRole_NeedsServiceKey(t *testing.T) {
	fake := backendtest.New(t)
	useFake(t, fake)
	t.Setenv("BACKEND_SERVICE_ROLE_KEY", "")

	_, err := execute(runSetRole, "ana@example.com", "hr")
	assert.ErrorContains(t, err, "missing service role key")
	assert.Empty(t, fake.Requests())
}

func TestSetRole_Usage(t *testing.T) {
	out, err := execute(runSetRole, "ana@example.com")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out, "Usage:")
}
