package employee

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID   = "0b0f3a52-8f0e-4c52-9a6a-0c1d2e3f4a5b"
	pendingID = "6f1c2b1e-3a5d-4c8e-9f00-1a2b3c4d5e6f"
)

type reviewCall struct {
	id       string
	status   models.EmployeeStatus
	req      models.ReviewEmployeeRequest
	reviewer string
}

type fakeStore struct {
	employees  map[string]*models.Employee
	registered []string
	reviews    []reviewCall
	roles      []models.Role
	listStatus models.EmployeeStatus
}

func (s *fakeStore) Register(_ context.Context, email string, req models.RegisterEmployeeRequest) (*models.Employee, error) {
	for _, e := range s.employees {
		if e.Email == email {
			return nil, httperror.NewHTTPError(http.StatusConflict, "an employee with this email is already registered")
		}
	}
	s.registered = append(s.registered, email)
	return &models.Employee{ID: "new", Email: email, Name: req.Name, Role: models.RoleViewer, Status: models.EmployeeStatusPending}, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*models.Employee, error) {
	return s.employees[id], nil
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (*models.Employee, error) {
	for _, e := range s.employees {
		if e.Email == email {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) List(_ context.Context, status models.EmployeeStatus, _, _ int) ([]models.Employee, int, error) {
	s.listStatus = status
	out := []models.Employee{}
	for _, e := range s.employees {
		if status == "" || e.Status == status {
			out = append(out, *e)
		}
	}
	return out, len(out), nil
}

func (s *fakeStore) Review(_ context.Context, id string, status models.EmployeeStatus, req models.ReviewEmployeeRequest, reviewer string) (*models.Employee, error) {
	s.reviews = append(s.reviews, reviewCall{id: id, status: status, req: req, reviewer: reviewer})
	e := s.employees[id]
	e.Status = status
	if req.Role != nil {
		e.Role = *req.Role
	}
	return e, nil
}

func (s *fakeStore) UpdateRole(_ context.Context, id string, role models.Role, _ string) (*models.Employee, error) {
	s.roles = append(s.roles, role)
	e := s.employees[id]
	e.Role = role
	return e, nil
}

type fakeEvents struct {
	registered, reviewed int
}

func (e *fakeEvents) EmployeeRegistered(context.Context, *models.Employee) { e.registered++ }
func (e *fakeEvents) EmployeeReviewed(context.Context, *models.Employee)   { e.reviewed++ }

type fixture struct {
	store  *fakeStore
	events *fakeEvents
}

func setup(t *testing.T, caller string, role models.Role) (*fixture, func(t *testing.T, method, path, body string) (int, []byte)) {
	f := &fixture{
		store: &fakeStore{employees: map[string]*models.Employee{
			adminID:   {ID: adminID, Email: "admin@example.org", Role: models.RoleAdmin, Status: models.EmployeeStatusApproved},
			pendingID: {ID: pendingID, Email: "new@example.org", Role: models.RoleViewer, Status: models.EmployeeStatusPending},
		}},
		events: &fakeEvents{},
	}

	gate := &testutil.Gate{Role: role, Bootstrap: []string{"root@example.org"}}
	container := testutil.NewContainer(t)
	testutil.Provide[Store](t, container, f.store)
	testutil.Provide[Events](t, container, f.events)
	testutil.Provide[Bootstrap](t, container, gate)

	e := testutil.NewEcho(caller, container)
	Register(e.Group("/api/v1/employees"), gate)

	return f, func(t *testing.T, method, path, body string) (int, []byte) {
		rec := testutil.Do(t, e, method, path, body)
		return rec.Code, rec.Body.Bytes()
	}
}

func TestSelfRegister(t *testing.T) {
	f, do := setup(t, "someone@example.org", "")

	code, body := do(t, http.MethodPost, "/api/v1/employees/register", `{"name":"Some One","requested_role":"editor"}`)
	require.Equal(t, http.StatusCreated, code, string(body))
	assert.Equal(t, []string{"someone@example.org"}, f.store.registered)
	assert.Equal(t, 1, f.events.registered)

	var employee models.Employee
	require.NoError(t, json.Unmarshal(body, &employee))
	assert.Equal(t, models.EmployeeStatusPending, employee.Status)

	code, _ = do(t, http.MethodPost, "/api/v1/employees/register", `{"requested_role":"editor"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSelfRegisterDuplicate(t *testing.T) {
	_, do := setup(t, "new@example.org", "")

	code, _ := do(t, http.MethodPost, "/api/v1/employees/register", `{"name":"Again"}`)
	assert.Equal(t, http.StatusConflict, code)
}

func TestMe(t *testing.T) {
	t.Run("registered", func(t *testing.T) {
		_, do := setup(t, "new@example.org", "")

		code, body := do(t, http.MethodGet, "/api/v1/employees/me", "")
		require.Equal(t, http.StatusOK, code)
		var employee models.Employee
		require.NoError(t, json.Unmarshal(body, &employee))
		assert.Equal(t, models.EmployeeStatusPending, employee.Status)
	})

	t.Run("unknown", func(t *testing.T) {
		_, do := setup(t, "stranger@example.org", "")

		code, _ := do(t, http.MethodGet, "/api/v1/employees/me", "")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("bootstrap admin without entry", func(t *testing.T) {
		_, do := setup(t, "root@example.org", "")

		code, body := do(t, http.MethodGet, "/api/v1/employees/me", "")
		require.Equal(t, http.StatusOK, code)
		var employee models.Employee
		require.NoError(t, json.Unmarshal(body, &employee))
		assert.Equal(t, models.RoleAdmin, employee.Role)
		assert.Equal(t, models.EmployeeStatusApproved, employee.Status)
	})
}

func TestReview(t *testing.T) {
	t.Run("approve with role override", func(t *testing.T) {
		f, do := setup(t, "admin@example.org", models.RoleAdmin)

		code, body := do(t, http.MethodPost, "/api/v1/employees/"+pendingID+"/approve", `{"role":"editor","note":"welcome"}`)
		require.Equal(t, http.StatusOK, code, string(body))

		require.Len(t, f.store.reviews, 1)
		r := f.store.reviews[0]
		assert.Equal(t, pendingID, r.id)
		assert.Equal(t, models.EmployeeStatusApproved, r.status)
		assert.Equal(t, "admin@example.org", r.reviewer)
		assert.Equal(t, models.RoleEditor, *r.req.Role)
		assert.Equal(t, 1, f.events.reviewed)
	})

	t.Run("reject without body", func(t *testing.T) {
		f, do := setup(t, "admin@example.org", models.RoleAdmin)

		code, _ := do(t, http.MethodPost, "/api/v1/employees/"+pendingID+"/reject", "")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, models.EmployeeStatusRejected, f.store.reviews[0].status)
	})

	t.Run("disable", func(t *testing.T) {
		f, do := setup(t, "admin@example.org", models.RoleAdmin)

		code, _ := do(t, http.MethodPost, "/api/v1/employees/"+pendingID+"/disable", "")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, models.EmployeeStatusDisabled, f.store.reviews[0].status)
	})

	t.Run("cannot review yourself", func(t *testing.T) {
		f, do := setup(t, "admin@example.org", models.RoleAdmin)

		code, _ := do(t, http.MethodPost, "/api/v1/employees/"+adminID+"/disable", "")
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Empty(t, f.store.reviews)
	})

	t.Run("unknown employee", func(t *testing.T) {
		_, do := setup(t, "admin@example.org", models.RoleAdmin)

		code, _ := do(t, http.MethodPost, "/api/v1/employees/11111111-2222-3333-4444-555555555555/approve", "")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("editors cannot review", func(t *testing.T) {
		f, do := setup(t, "editor@example.org", models.RoleEditor)

		code, _ := do(t, http.MethodPost, "/api/v1/employees/"+pendingID+"/approve", "")
		assert.Equal(t, http.StatusForbidden, code)
		assert.Empty(t, f.store.reviews)
	})
}

func TestUpdateRole(t *testing.T) {
	f, do := setup(t, "admin@example.org", models.RoleAdmin)

	code, _ := do(t, http.MethodPut, "/api/v1/employees/"+pendingID+"/role", `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []models.Role{models.RoleAdmin}, f.store.roles)

	code, _ = do(t, http.MethodPut, "/api/v1/employees/"+pendingID+"/role", `{"role":"owner"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestList(t *testing.T) {
	f, do := setup(t, "admin@example.org", models.RoleAdmin)

	code, body := do(t, http.MethodGet, "/api/v1/employees?status=pending", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.EmployeeStatusPending, f.store.listStatus)

	var resp models.EmployeeListResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 1, resp.TotalCount)

	code, _ = do(t, http.MethodGet, "/api/v1/employees?status=sleeping", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
