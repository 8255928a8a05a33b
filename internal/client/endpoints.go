package client

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, nil, body, out)
}

func seg(s string) string {
	return url.PathEscape(s)
}

// Info returns the service description from the API root.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	return out, c.get(ctx, "/", &out)
}

// Health checks the server and its database.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

// Register creates an account. The returned token is also installed on c.
func (c *Client) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.send(ctx, http.MethodPost, "/register", map[string]string{
		"name": name, "email": email, "password": password,
	}, &out)
	if err == nil {
		c.SetToken(out.Token)
	}
	return out, err
}

// Login signs in. The returned token is also installed on c.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.send(ctx, http.MethodPost, "/login", map[string]string{
		"email": email, "password": password,
	}, &out)
	if err == nil {
		c.SetToken(out.Token)
	}
	return out, err
}

// Logout ends the server session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.send(ctx, http.MethodPost, "/logout", nil, nil)
	c.SetToken("")
	return err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.send(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

func (c *Client) VerifyResetCode(ctx context.Context, email, code string) (ResetToken, error) {
	var out ResetToken
	return out, c.send(ctx, http.MethodPost, "/auth/verify-reset-code", map[string]string{
		"email": email, "code": code,
	}, &out)
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.send(ctx, http.MethodPost, "/auth/reset-password", map[string]string{
		"token": token, "new_password": newPassword,
	}, nil)
}

func (c *Client) Profile(ctx context.Context) (User, error) {
	var out User
	return out, c.get(ctx, "/user", &out)
}

func (c *Client) UpdateProfile(ctx context.Context, patch ProfilePatch) (User, error) {
	var out User
	return out, c.send(ctx, http.MethodPatch, "/user", patch, &out)
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.send(ctx, http.MethodPatch, "/user/change-password", map[string]string{
		"current_password": current, "new_password": next,
	}, nil)
}

func (c *Client) UpdateProfilePicture(ctx context.Context, pictureURL string) (User, error) {
	var out User
	return out, c.send(ctx, http.MethodPatch, "/user/profile-picture", map[string]string{
		"profile_picture": pictureURL,
	}, &out)
}

// SearchUsers finds other users by name or email.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	var out []User
	return out, c.do(ctx, http.MethodGet, "/users/search", url.Values{"q": {query}}, nil, &out)
}

// Lists returns every list the caller owns, was shared, or sees via a group.
func (c *Client) Lists(ctx context.Context) ([]TodoList, error) {
	var out []TodoList
	return out, c.get(ctx, "/lists", &out)
}

func (c *Client) CreateList(ctx context.Context, in ListInput) (TodoList, error) {
	var out TodoList
	return out, c.send(ctx, http.MethodPost, "/list", in, &out)
}

// GetList returns a list with its todos and shares.
func (c *Client) GetList(ctx context.Context, listID string) (TodoList, error) {
	var out TodoList
	return out, c.get(ctx, "/list/"+seg(listID), &out)
}

func (c *Client) UpdateList(ctx context.Context, listID string, patch ListPatch) (TodoList, error) {
	var out TodoList
	return out, c.send(ctx, http.MethodPatch, "/list/"+seg(listID), patch, &out)
}

func (c *Client) DeleteList(ctx context.Context, listID string) error {
	return c.send(ctx, http.MethodDelete, "/list/"+seg(listID), nil, nil)
}

func (c *Client) Shares(ctx context.Context, listID string) ([]Share, error) {
	var out []Share
	return out, c.get(ctx, "/list/"+seg(listID)+"/shares", &out)
}

// ShareList shares a list with a user identified by id or email.
func (c *Client) ShareList(ctx context.Context, listID string, in MemberInput) (Share, error) {
	var out Share
	return out, c.send(ctx, http.MethodPost, "/list/"+seg(listID)+"/share", in, &out)
}

func (c *Client) UpdateShareRole(ctx context.Context, listID, userID, role string) (Share, error) {
	var out Share
	return out, c.send(ctx, http.MethodPatch, "/list/"+seg(listID)+"/share/"+seg(userID),
		map[string]string{"role": role}, &out)
}

func (c *Client) Unshare(ctx context.Context, listID, userID string) error {
	return c.send(ctx, http.MethodDelete, "/list/"+seg(listID)+"/share/"+seg(userID), nil, nil)
}

func (c *Client) Todos(ctx context.Context, listID string) ([]Todo, error) {
	var out []Todo
	return out, c.get(ctx, "/list/"+seg(listID)+"/todos", &out)
}

func (c *Client) CreateTodo(ctx context.Context, listID string, in TodoInput) (Todo, error) {
	var out Todo
	return out, c.send(ctx, http.MethodPost, "/list/"+seg(listID)+"/todo", in, &out)
}

func (c *Client) GetTodo(ctx context.Context, listID, todoID string) (Todo, error) {
	var out Todo
	return out, c.get(ctx, "/list/"+seg(listID)+"/todo/"+seg(todoID), &out)
}

func (c *Client) UpdateTodo(ctx context.Context, listID, todoID string, patch TodoPatch) (Todo, error) {
	var out Todo
	return out, c.send(ctx, http.MethodPatch, "/list/"+seg(listID)+"/todo/"+seg(todoID), patch, &out)
}

func (c *Client) ToggleTodo(ctx context.Context, listID, todoID string) (Todo, error) {
	var out Todo
	return out, c.send(ctx, http.MethodPost, "/list/"+seg(listID)+"/todo/"+seg(todoID)+"/toggle", nil, &out)
}

func (c *Client) DeleteTodo(ctx context.Context, listID, todoID string) error {
	return c.send(ctx, http.MethodDelete, "/list/"+seg(listID)+"/todo/"+seg(todoID), nil, nil)
}

func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var out []Role
	return out, c.get(ctx, "/roles", &out)
}

func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var out []Group
	return out, c.get(ctx, "/groups", &out)
}

func (c *Client) CreateGroup(ctx context.Context, name, description string) (Group, error) {
	var out Group
	return out, c.send(ctx, http.MethodPost, "/groups/new", map[string]string{
		"name": name, "description": description,
	}, &out)
}

// GetGroup returns a group with its members and lists.
func (c *Client) GetGroup(ctx context.Context, groupID string) (Group, error) {
	var out Group
	return out, c.get(ctx, "/groups/"+seg(groupID), &out)
}

func (c *Client) UpdateGroup(ctx context.Context, groupID string, name, description *string) (Group, error) {
	body := map[string]string{}
	if name != nil {
		body["name"] = *name
	}
	if description != nil {
		body["description"] = *description
	}
	var out Group
	return out, c.send(ctx, http.MethodPatch, "/groups/"+seg(groupID), body, &out)
}

func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.send(ctx, http.MethodDelete, "/groups/"+seg(groupID), nil, nil)
}

func (c *Client) MyGroupRole(ctx context.Context, groupID string) (GroupRole, error) {
	var out GroupRole
	return out, c.get(ctx, "/groups/"+seg(groupID)+"/role", &out)
}

// Invite adds a user to a group. The server defaults the role to Viewer.
func (c *Client) Invite(ctx context.Context, groupID string, in MemberInput) (User, error) {
	var out User
	return out, c.send(ctx, http.MethodPost, "/groups/"+seg(groupID)+"/invite", in, &out)
}

func (c *Client) ChangeMemberRole(ctx context.Context, groupID string, in MemberInput) (Membership, error) {
	var out Membership
	return out, c.send(ctx, http.MethodPost, "/groups/"+seg(groupID)+"/role/mapping", in, &out)
}

func (c *Client) RemoveMember(ctx context.Context, groupID, userID string) error {
	return c.send(ctx, http.MethodDelete, "/groups/"+seg(groupID)+"/members/"+seg(userID), nil, nil)
}
