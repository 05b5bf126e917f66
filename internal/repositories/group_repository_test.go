package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

func TestAdminGateAllowsAdmin(t *testing.T) {
	require.NoError(t, adminGate(models.RoleAdmin, nil))
}

func TestAdminGateRejectsMember(t *testing.T) {
	assert.ErrorIs(t, adminGate(models.RoleMember, nil), ErrNotAdmin)
}

// After the last admin leaves, every roster change fails the admin check: the
// actor's role lookup yields ErrNotAMember once their membership row is gone,
// and a remaining plain member is still just a member.
func TestAdminGateAfterLastAdminLeft(t *testing.T) {
	assert.ErrorIs(t, adminGate("", ErrNotAMember), ErrNotAdmin)
	assert.ErrorIs(t, adminGate(models.RoleMember, nil), ErrNotAdmin)
}

func TestAdminGatePassesThroughLookupErrors(t *testing.T) {
	err := adminGate("", assert.AnError)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAdmin)
}
