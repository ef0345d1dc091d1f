package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleGetUserProfileRejectsRequestWithNoUserIDInContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	rec := httptest.NewRecorder()

	HandleGetUserProfile(rec, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
