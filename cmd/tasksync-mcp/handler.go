package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/cexll/tasksync/internal/client"
)

// ListTodoListsParams takes no arguments.
type ListTodoListsParams struct{}

// GetTodoListParams selects one list.
type GetTodoListParams struct {
	ListID string `json:"list_id" jsonschema:"ID of the todo list"`
}

// AddTodoParams defines the input for add_todo.
type AddTodoParams struct {
	ListID      string `json:"list_id" jsonschema:"ID of the todo list to add to"`
	Task        string `json:"task" jsonschema:"Short description of the todo"`
	Description string `json:"description,omitempty" jsonschema:"Optional longer description"`
	Priority    string `json:"priority,omitempty" jsonschema:"One of low, medium, normal, high, urgent, critical"`
	DueDate     string `json:"due_date,omitempty" jsonschema:"Optional due date as YYYY-MM-DD"`
}

// CompleteTodoParams marks a todo done or open again.
type CompleteTodoParams struct {
	ListID    string `json:"list_id" jsonschema:"ID of the todo list"`
	TodoID    string `json:"todo_id" jsonschema:"ID of the todo"`
	Completed *bool  `json:"completed,omitempty" jsonschema:"Set false to reopen the todo; defaults to true"`
}

// Tools serves the TaskSync tools on behalf of one signed-in user.
type Tools struct {
	client *client.Client
	logger *zap.Logger
}

func NewTools(c *client.Client, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{client: c, logger: logger}
}

// Register adds every tool to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_todo_lists",
		Description: "List the signed-in user's todo lists, newest first, with todo counts",
	}, t.ListTodoLists)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_todo_list",
		Description: "Get one todo list with all of its todos",
	}, t.GetTodoList)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_todo",
		Description: "Add a todo to a list",
	}, t.AddTodo)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_todo",
		Description: "Mark a todo as completed, or reopen it",
	}, t.CompleteTodo)
}

func (t *Tools) ListTodoLists(ctx context.Context, _ *mcp.CallToolRequest, _ ListTodoListsParams) (*mcp.CallToolResult, any, error) {
	lists, err := t.client.Lists(ctx)
	if err != nil {
		return t.fail("list_todo_lists", err), nil, nil
	}
	return t.ok(lists), nil, nil
}

func (t *Tools) GetTodoList(ctx context.Context, _ *mcp.CallToolRequest, params GetTodoListParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.ListID) == "" {
		return t.fail("get_todo_list", fmt.Errorf("list_id is required")), nil, nil
	}
	list, err := t.client.GetList(ctx, params.ListID)
	if err != nil {
		return t.fail("get_todo_list", err), nil, nil
	}
	return t.ok(list), nil, nil
}

func (t *Tools) AddTodo(ctx context.Context, _ *mcp.CallToolRequest, params AddTodoParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.ListID) == "" {
		return t.fail("add_todo", fmt.Errorf("list_id is required")), nil, nil
	}
	if strings.TrimSpace(params.Task) == "" {
		return t.fail("add_todo", fmt.Errorf("task is required")), nil, nil
	}
	in := client.TodoInput{
		Task:        params.Task,
		Description: params.Description,
		Priority:    params.Priority,
	}
	if params.DueDate != "" {
		due, err := time.Parse("2006-01-02", params.DueDate)
		if err != nil {
			return t.fail("add_todo", fmt.Errorf("due_date must be YYYY-MM-DD")), nil, nil
		}
		in.EndDate = &due
	}
	todo, err := t.client.CreateTodo(ctx, params.ListID, in)
	if err != nil {
		return t.fail("add_todo", err), nil, nil
	}
	t.logger.Info("todo added", zap.String("list_id", params.ListID), zap.String("todo_id", todo.ID))
	return t.ok(todo), nil, nil
}

func (t *Tools) CompleteTodo(ctx context.Context, _ *mcp.CallToolRequest, params CompleteTodoParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.ListID) == "" || strings.TrimSpace(params.TodoID) == "" {
		return t.fail("complete_todo", fmt.Errorf("list_id and todo_id are required")), nil, nil
	}
	done := true
	if params.Completed != nil {
		done = *params.Completed
	}
	// Explicit value rather than toggle, so repeats are idempotent.
	todo, err := t.client.UpdateTodo(ctx, params.ListID, params.TodoID, client.TodoPatch{IsCompleted: &done})
	if err != nil {
		return t.fail("complete_todo", err), nil, nil
	}
	return t.ok(todo), nil, nil
}

func (t *Tools) ok(v any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return t.fail("encode", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}

func (t *Tools) fail(tool string, err error) *mcp.CallToolResult {
	t.logger.Warn("tool call failed", zap.String("tool", tool), zap.Error(err))
	text := fmt.Sprintf("Error: %v", err)
	if client.IsUnauthorized(err) {
		text += `. Sign in again with "tasksync login".`
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
