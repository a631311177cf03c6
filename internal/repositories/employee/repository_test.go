package employee

import (
	"context"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/models"
)

func TestRepository_Lifecycle(t *testing.T) {
	repo := NewRepository(testutil.NewDB(t), testutil.Logger())
	ctx := context.Background()

	registered, err := repo.Register(ctx, " Priya@Example.com ", models.RegisterEmployeeRequest{Name: "Priya"})
	require.NoError(t, err)
	assert.Equal(t, "priya@example.com", registered.Email)
	assert.Equal(t, models.RoleViewer, registered.Role)
	assert.Equal(t, models.EmployeeStatusPending, registered.Status)

	_, err = repo.Register(ctx, "PRIYA@example.com", models.RegisterEmployeeRequest{Name: "Again"})
	assert.Equal(t, 409, httperror.GetStatusCode(err))

	byEmail, err := repo.GetByEmail(ctx, "PRIYA@EXAMPLE.COM")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, registered.ID, byEmail.ID)

	editor := models.RoleEditor
	note := "welcome"
	reviewed, err := repo.Review(ctx, registered.ID, models.EmployeeStatusApproved, models.ReviewEmployeeRequest{Role: &editor, Note: &note}, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.EmployeeStatusApproved, reviewed.Status)
	assert.Equal(t, models.RoleEditor, reviewed.Role)
	assert.Equal(t, "admin@example.com", *reviewed.ReviewedBy)
	assert.NotNil(t, reviewed.ReviewedAt)

	promoted, err := repo.UpdateRole(ctx, registered.ID, models.RoleAdmin, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	pending, total, err := repo.List(ctx, models.EmployeeStatusPending, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, pending)

	_, total, err = repo.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, err = repo.Review(ctx, "00000000-0000-0000-0000-000000000000", models.EmployeeStatusRejected, models.ReviewEmployeeRequest{}, "admin@example.com")
	assert.Equal(t, 404, httperror.GetStatusCode(err))

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
