package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/cexll/tasksync/internal/api"
	"github.com/cexll/tasksync/internal/auth"
	"github.com/cexll/tasksync/internal/service"
	"github.com/cexll/tasksync/internal/store"
)

const testPassword = "Secr3t!pw"

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.SeedRoles(context.Background()))

	svc := service.New(service.Options{
		Store:       st,
		Tokens:      auth.NewTokenIssuer("0123456789abcdef0123", time.Hour),
		Hasher:      auth.NewHasher(bcrypt.MinCost),
		ResetSecret: "reset-secret",
		ResetTTL:    15 * time.Minute,
	})
	srv := httptest.NewServer(api.NewRouter(svc, api.Options{Logger: zaptest.NewLogger(t)}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientAgainstServer(t *testing.T) {
	ctx := context.Background()
	srv := newAPIServer(t)

	ada := New(srv.URL + api.BasePath)
	res, err := ada.Register(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, res.Token, ada.Token())
	assert.Equal(t, "Ada", res.User.Name)

	bob := New(srv.URL + api.BasePath)
	_, err = bob.Register(ctx, "Bob", "bob@example.com", testPassword)
	require.NoError(t, err)

	list, err := ada.CreateList(ctx, ListInput{Name: "Groceries"})
	require.NoError(t, err)
	todo, err := ada.CreateTodo(ctx, list.ID, TodoInput{Task: "Milk", Priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, "high", todo.Priority)

	todo, err = ada.ToggleTodo(ctx, list.ID, todo.ID)
	require.NoError(t, err)
	assert.True(t, todo.IsCompleted)

	_, err = bob.GetList(ctx, list.ID)
	require.Error(t, err)
	assert.True(t, IsForbidden(err))

	share, err := ada.ShareList(ctx, list.ID, MemberInput{Email: "bob@example.com", Role: "viewer"})
	require.NoError(t, err)
	assert.Equal(t, "viewer", share.Role)

	got, err := bob.GetList(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, got.TodoItems, 1)
	assert.Equal(t, "viewer", got.Role)

	_, err = bob.CreateTodo(ctx, list.ID, TodoInput{Task: "Nope"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.NotEmpty(t, apiErr.Detail)

	group, err := ada.CreateGroup(ctx, "Family", "")
	require.NoError(t, err)
	_, err = ada.Invite(ctx, group.ID, MemberInput{Email: "bob@example.com", Role: "Contributor"})
	require.NoError(t, err)
	role, err := bob.MyGroupRole(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RoleContributor, role.Role.Name)

	detail, err := ada.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Members, 2)

	require.NoError(t, ada.Logout(ctx))
	_, err = ada.Profile(ctx)
	assert.True(t, IsUnauthorized(err))
}

func TestClientRetriesIdempotentRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Roles fetched","status":200,"data":[{"id":"r1","name":"Owner","permissions":["view"]}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetry(2, time.Millisecond), WithLogger(zaptest.NewLogger(t)))
	roles, err := c.Roles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientRetriesHTTPClientTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"Roles fetched","status":200,"data":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL,
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		WithRetry(2, time.Millisecond),
		WithLogger(zaptest.NewLogger(t)),
	)
	_, err := c.Roles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientStopsWhenCallerDeadlinePasses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL, WithRetry(3, time.Millisecond)).Roles(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientDoesNotRetryPost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetry(2, time.Millisecond))
	_, err := c.CreateList(context.Background(), ListInput{Name: "x"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"Failed to fetch list","status":404,"data":{"error":"todo list not found"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetry(3, time.Millisecond))
	_, err := c.GetList(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Failed to fetch list (404): todo list not found", err.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientSuccessFalseEnvelopeIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Nope","status":409,"data":{"error":"conflict"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Groups(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "conflict", apiErr.Detail)
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","status":200,"data":{"id":"u1","name":"Ada","email":"ada@example.com"}}`))
	}))
	defer srv.Close()

	u, err := New(srv.URL+"/", WithToken("tok")).Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "Bearer tok", gotAuth.Load())
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", errors.New(`Get "http://x": EOF`), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"gateway", &APIError{Status: http.StatusGatewayTimeout}, true},
		{"not found", &APIError{Status: http.StatusNotFound}, false},
		{"canceled", context.Canceled, false},
		{"client timeout", fmt.Errorf("Get \"http://x\": %w (Client.Timeout exceeded while awaiting headers)", context.DeadlineExceeded), true},
		{"permanent", &permanentError{err: errors.New("EOF while decoding")}, false},
		{"other", errors.New("something else"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}
