package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nhle/taskclient/internal/credential"
)

// User is an account on the task service.
type User struct {
	ID    string
	Name  string
	Email string
}

type registerBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, name, email, password string) (*User, error) {
	const op = "register"

	switch {
	case strings.TrimSpace(name) == "":
		return nil, invalid(op, "Name is required.")
	case strings.TrimSpace(email) == "":
		return nil, invalid(op, "Email is required.")
	case password == "":
		return nil, invalid(op, "Password is required.")
	}

	var payload userPayload
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/users/register",
		body:   registerBody{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Password: password},
		result: &payload,
	})
	if err != nil {
		return nil, err
	}

	id := payload.ID
	if id == "" {
		id = payload.DocumentID
	}
	return &User{ID: id, Name: payload.Name, Email: payload.Email}, nil
}

// Login exchanges an email and password for a credential. The caller
// decides whether to store it.
func (c *Client) Login(ctx context.Context, email, password string) (*credential.Credential, error) {
	const op = "login"

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid(op, "Email and password are required.")
	}

	var payload loginPayload
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/users/login",
		body:   loginBody{Email: email, Password: password},
		result: &payload,
	})
	if err != nil {
		return nil, err
	}
	if payload.Token == "" {
		return nil, &Error{Kind: KindServerFault, Op: op, Err: fmt.Errorf("login response without token")}
	}

	cred := &credential.Credential{Token: payload.Token, Name: payload.Name, Email: payload.Email}
	if payload.User != nil {
		if cred.Name == "" {
			cred.Name = payload.User.Name
		}
		if cred.Email == "" {
			cred.Email = payload.User.Email
		}
	}
	if cred.Email == "" {
		cred.Email = email
	}
	return cred, nil
}
