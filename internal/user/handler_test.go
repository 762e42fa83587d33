package user_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AnvithShetty10/expense-share/internal/user"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
	Meta *struct {
		Total      int `json:"total_items"`
		TotalPages int `json:"total_pages"`
	} `json:"meta"`
}

func serve(t *testing.T, store *MockStore, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	h := user.NewHandler(user.NewService(store))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec, body
}

func TestHandler_GetByID(t *testing.T) {
	alice := newUser("alice")
	store := new(MockStore)
	store.On("GetByID", mock.Anything, alice.ID).Return(alice, nil)

	rec, body := serve(t, store, http.MethodGet, "/"+alice.ID.String())

	assert.Equal(t, http.StatusOK, rec.Code)
	var got user.UserResponse
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.Equal(t, alice.ID.String(), got.ID)
	assert.NotContains(t, string(body.Data), "password")
}

func TestHandler_GetByID_Errors(t *testing.T) {
	store := new(MockStore)
	missing := uuid.New()
	store.On("GetByID", mock.Anything, missing).Return(nil, nil)

	rec, body := serve(t, store, http.MethodGet, "/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, body.Success)

	rec, body = serve(t, store, http.MethodGet, "/"+missing.String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestHandler_List(t *testing.T) {
	store := new(MockStore)
	store.On("List", mock.Anything, "bo", 2, 0).Return([]*user.User{newUser("bob"), newUser("bobby")}, 3, nil)

	rec, body := serve(t, store, http.MethodGet, "/?search=bo&page_size=2")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 3, body.Meta.Total)
	assert.Equal(t, 2, body.Meta.TotalPages)

	var got []user.UserResponse
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.Len(t, got, 2)
}
