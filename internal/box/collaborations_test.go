package box

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCollaboration(t *testing.T) {
	var gotURI string

	var gotBody collaborationRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"collab-1","role":"viewer"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "unused", srv.Client(), testLogger())

	err := client.AddCollaboration(context.Background(), "tok", "888", "ops@example.org")
	require.NoError(t, err)

	assert.Equal(t, "/collaborations?notify=false", gotURI)
	assert.Equal(t, "folder", gotBody.Item.Type)
	assert.Equal(t, "888", gotBody.Item.ID)
	assert.Equal(t, "ops@example.org", gotBody.AccessibleBy.Login)
	assert.Equal(t, "viewer", gotBody.Role)
}

func TestAddCollaborationConflictIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Box reports an already-granted collaborator as a conflict.
		http.Error(w, `{"code":"user_already_collaborator"}`, http.StatusConflict)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "unused", srv.Client(), testLogger())

	err := client.AddCollaboration(context.Background(), "tok", "888", "ops@example.org")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}
