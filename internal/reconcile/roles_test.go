package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

func TestMapRoleRoundTrip(t *testing.T) {
	for _, entry := range roleTable {
		internal := MapRole(string(entry.external), ToInternal)
		assert.Equal(t, string(entry.internal), internal)
		assert.Equal(t, string(entry.external), MapRole(internal, ToExternal))
	}
}

func TestMapRoleNormalizesInputAndPassesUnknown(t *testing.T) {
	assert.Equal(t, "psicopedagogo", MapRole(" Psychopedagogue ", ToInternal))
	assert.Equal(t, "super_admin", MapRole("SUPERADMIN", ToExternal))
	assert.Equal(t, "Coordinator", MapRole("Coordinator", ToInternal))
	assert.Equal(t, "", MapRole("", ToExternal))

	assert.Equal(t, models.RoleSubdirector, InternalRole("sub_director"))
	assert.Equal(t, models.ExternalAcademicHead, ExternalRole(models.RoleJefeAcademico))
}
