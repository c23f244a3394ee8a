package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseZone(t *testing.T) {
	z, ok := ParseZone("  london & south ")
	assert.True(t, ok)
	assert.Equal(t, ZoneLondonSouth, z)

	_, ok = ParseZone("Midlands")
	assert.False(t, ok)
}

func TestRoleSatisfies(t *testing.T) {
	assert.True(t, RoleSuperAdmin.Satisfies(RoleAdmin))
	assert.True(t, RoleAdmin.Satisfies(RoleAdmin))
	assert.False(t, RoleAdmin.Satisfies(RoleSuperAdmin))
}

func TestMatchHasTeams(t *testing.T) {
	a, b, empty := "Leeds", "Warwick", ""
	assert.True(t, (&Match{Team1: &a, Team2: &b}).HasTeams())
	assert.False(t, (&Match{Team1: &a}).HasTeams())
	assert.False(t, (&Match{Team1: &a, Team2: &empty}).HasTeams())
}

func TestUniversityCompetesIn(t *testing.T) {
	u := University{Sports: []string{"Kabaddi", "football"}}
	assert.True(t, u.CompetesIn("kabaddi"))
	assert.False(t, u.CompetesIn("netball"))
}
