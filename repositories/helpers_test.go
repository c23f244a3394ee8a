package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereBuilder(t *testing.T) {
	var w whereBuilder
	assert.Equal(t, "", w.sql())

	w.add("zone = $%d", "North & Central")
	w.add("competing = $%d", true)
	assert.Equal(t, " WHERE zone = $1 AND competing = $2", w.sql())
	assert.Equal(t, []interface{}{"North & Central", true}, w.args)
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\% kabaddi\_team%`, likePattern(" 100% kabaddi_team "))
}

func TestAsPQErrorUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "universities_name_key"})
	pqErr, ok := asPQError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "universities_name_key", pqErr.Constraint)

	_, ok = asPQError(errors.New("plain"))
	assert.False(t, ok)
}

func TestUniversityErrorMapping(t *testing.T) {
	r := &postgresUniversityRepository{}
	assert.ErrorIs(t, r.handleUniversityError(&pq.Error{Code: "23505", Constraint: "universities_name_key"}), ErrUniversityNameConflict)
	assert.ErrorIs(t, r.handleUniversityError(&pq.Error{Code: "23503"}), ErrUniversityInUse)
	assert.NoError(t, r.handleUniversityError(nil))
}

func TestAdminRequestErrorMapping(t *testing.T) {
	r := &postgresAdminRequestRepository{}
	err := r.handleError(&pq.Error{Code: "23505", Constraint: "admin_requests_pending_email_key"})
	assert.ErrorIs(t, err, ErrAdminRequestDuplicate)
}
