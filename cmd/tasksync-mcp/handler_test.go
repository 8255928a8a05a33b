package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/cexll/tasksync/internal/api"
	"github.com/cexll/tasksync/internal/auth"
	"github.com/cexll/tasksync/internal/client"
	"github.com/cexll/tasksync/internal/service"
	"github.com/cexll/tasksync/internal/session"
	"github.com/cexll/tasksync/internal/store"
)

const testPassword = "Secr3t!pw"

// newSignedInClient starts an API server and registers a user on it.
func newSignedInClient(t *testing.T) (*client.Client, client.AuthResult) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "mcp.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.SeedRoles(context.Background()); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	svc := service.New(service.Options{
		Store:       st,
		Tokens:      auth.NewTokenIssuer("0123456789abcdef0123", time.Hour),
		Hasher:      auth.NewHasher(bcrypt.MinCost),
		ResetSecret: "reset-secret",
		ResetTTL:    15 * time.Minute,
	})
	srv := httptest.NewServer(api.NewRouter(svc, api.Options{Logger: zaptest.NewLogger(t)}))
	t.Cleanup(srv.Close)

	c := client.New(srv.URL + api.BasePath)
	res, err := c.Register(context.Background(), "Ada", "ada@example.com", testPassword)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return c, res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("expected content in result")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestToolsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newSignedInClient(t)
	tools := NewTools(c, zaptest.NewLogger(t))

	res, _, err := tools.ListTodoLists(ctx, &mcp.CallToolRequest{}, ListTodoListsParams{})
	if err != nil || res.IsError {
		t.Fatalf("list_todo_lists failed: %v %s", err, resultText(t, res))
	}
	var lists []client.TodoList
	if err := json.Unmarshal([]byte(resultText(t, res)), &lists); err != nil {
		t.Fatalf("decode lists: %v", err)
	}
	if len(lists) != 1 || lists[0].Name != store.DefaultListName {
		t.Fatalf("expected the default list, got %+v", lists)
	}
	listID := lists[0].ID

	res, _, err = tools.AddTodo(ctx, &mcp.CallToolRequest{}, AddTodoParams{
		ListID: listID, Task: "Write report", Priority: "high", DueDate: "2030-05-01",
	})
	if err != nil || res.IsError {
		t.Fatalf("add_todo failed: %v %s", err, resultText(t, res))
	}
	var todo client.Todo
	if err := json.Unmarshal([]byte(resultText(t, res)), &todo); err != nil {
		t.Fatalf("decode todo: %v", err)
	}
	if todo.EndDate == nil || todo.EndDate.Format("2006-01-02") != "2030-05-01" {
		t.Fatalf("expected due date to be stored, got %v", todo.EndDate)
	}

	// Completing twice leaves the todo completed.
	for range 2 {
		res, _, err = tools.CompleteTodo(ctx, &mcp.CallToolRequest{}, CompleteTodoParams{ListID: listID, TodoID: todo.ID})
		if err != nil || res.IsError {
			t.Fatalf("complete_todo failed: %v %s", err, resultText(t, res))
		}
	}

	res, _, err = tools.GetTodoList(ctx, &mcp.CallToolRequest{}, GetTodoListParams{ListID: listID})
	if err != nil || res.IsError {
		t.Fatalf("get_todo_list failed: %v %s", err, resultText(t, res))
	}
	var list client.TodoList
	if err := json.Unmarshal([]byte(resultText(t, res)), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.TodoItems) != 1 || !list.TodoItems[0].IsCompleted {
		t.Fatalf("expected one completed todo, got %+v", list.TodoItems)
	}

	reopen := false
	res, _, _ = tools.CompleteTodo(ctx, &mcp.CallToolRequest{}, CompleteTodoParams{ListID: listID, TodoID: todo.ID, Completed: &reopen})
	if res.IsError || strings.Contains(resultText(t, res), `"is_completed": true`) {
		t.Fatalf("expected todo to be reopened, got %s", resultText(t, res))
	}
}

func TestToolsReturnErrorResults(t *testing.T) {
	ctx := context.Background()
	c, _ := newSignedInClient(t)
	tools := NewTools(c, zaptest.NewLogger(t))

	tests := []struct {
		name string
		call func() (*mcp.CallToolResult, any, error)
		want string
	}{
		{"missing list id", func() (*mcp.CallToolResult, any, error) {
			return tools.GetTodoList(ctx, nil, GetTodoListParams{})
		}, "list_id is required"},
		{"missing task", func() (*mcp.CallToolResult, any, error) {
			return tools.AddTodo(ctx, nil, AddTodoParams{ListID: "x"})
		}, "task is required"},
		{"bad due date", func() (*mcp.CallToolResult, any, error) {
			return tools.AddTodo(ctx, nil, AddTodoParams{ListID: "x", Task: "t", DueDate: "soon"})
		}, "YYYY-MM-DD"},
		{"unknown list", func() (*mcp.CallToolResult, any, error) {
			return tools.GetTodoList(ctx, nil, GetTodoListParams{ListID: "does-not-exist"})
		}, "Error:"},
		{"missing todo id", func() (*mcp.CallToolResult, any, error) {
			return tools.CompleteTodo(ctx, nil, CompleteTodoParams{ListID: "x"})
		}, "todo_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := tt.call()
			if err != nil {
				t.Fatalf("expected an error result, got error %v", err)
			}
			if !res.IsError {
				t.Fatalf("expected IsError, got %s", resultText(t, res))
			}
			if text := resultText(t, res); !strings.Contains(text, tt.want) {
				t.Fatalf("expected %q in %q", tt.want, text)
			}
		})
	}
}

func TestUnauthorizedHintsAtLogin(t *testing.T) {
	c, _ := newSignedInClient(t)
	c.SetToken("expired")
	tools := NewTools(c, nil)

	res, _, err := tools.ListTodoLists(context.Background(), nil, ListTodoListsParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "tasksync login") {
		t.Fatalf("expected login hint, got %s", resultText(t, res))
	}
}

func TestServerListsTools(t *testing.T) {
	c, _ := newSignedInClient(t)
	server := newServer(c, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Run(ctx, serverTransport) }()

	mc := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
	cs, err := mc.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	got := map[string]bool{}
	for _, tool := range tools.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"list_todo_lists", "get_todo_list", "add_todo", "complete_todo"} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestNewClientUsesSavedSession(t *testing.T) {
	_, res := newSignedInClient(t)
	home := t.TempDir()

	if _, err := newClient(config{Home: home}, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected an error without a session")
	}

	if err := session.NewFileStore(home).Save(session.FromAuth(res, "http://api.example.test/api/v1")); err != nil {
		t.Fatalf("save session: %v", err)
	}
	c, err := newClient(config{Home: home}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	if c.BaseURL() != "http://api.example.test/api/v1" || c.Token() != res.Token {
		t.Fatalf("client not built from session: %s %s", c.BaseURL(), c.Token())
	}

	c, err = newClient(config{Home: home, Token: "override", ServerURL: "http://other.test"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	if c.Token() != "override" || c.BaseURL() != "http://other.test" {
		t.Fatalf("expected env override, got %s %s", c.BaseURL(), c.Token())
	}
}
