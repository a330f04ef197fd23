// Package remote implements the JSON client for the optional collaborator
// server. Everything here is best-effort from the ledger's point of view: the
// local store never waits on, or fails because of, a remote call. The wire
// shapes mirror the flat-resource API the server exposes.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/monikanaramsetti/spendwise/internal/core"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
)

var (
	// ErrUserNotFound means no account matches the email.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken rejects a sign-up against an existing account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials rejects a sign-in with a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is the account record as the server stores it. The password travels in
// the clear because the server is a flat JSON resource store; credential
// comparison happens in this client.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ReportData is the slice of remote state the reporting page consumes.
type ReportData struct {
	Transactions []core.Transaction `json:"transactions"`
	Budgets      Budgets            `json:"budgets"`
	SavingsGoals []core.SavingsGoal `json:"savingsGoals"`
}

type Budgets struct {
	Daily   core.Money `json:"daily"`
	Monthly core.Money `json:"monthly"`
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the collaborator server. A nil *Client is a valid
// "no server configured" client: every method fails fast with an error the
// callers already treat as best-effort.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *applog.Logger
}

func New(cfg Config, logger *applog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.WithComponent(applog.ComponentRemote),
	}
}

// LookupByEmail fetches the full account list and matches the email
// case-insensitively. The server has no query endpoint; the list is small.
func (c *Client) LookupByEmail(ctx context.Context, email string) (*User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(email))
	for _, u := range users {
		if strings.ToLower(u.Email) == needle {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// SignIn resolves an email/password pair to an identity.
func (c *Client) SignIn(ctx context.Context, email, password string) (core.Identity, error) {
	user, err := c.LookupByEmail(ctx, email)
	if err != nil {
		return core.Identity{}, err
	}
	if user.Password != password {
		return core.Identity{}, ErrInvalidCredentials
	}
	return core.Identity{UserID: user.ID, UserName: user.Name, UserEmail: user.Email}, nil
}

// CreateUser registers an account, enforcing email uniqueness with a lookup
// first. Returns the created record with the server-assigned ID.
func (c *Client) CreateUser(ctx context.Context, name, email, password string) (*User, error) {
	if _, err := c.LookupByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	in := User{Name: name, Email: email, Password: password}
	var out User
	if err := c.do(ctx, http.MethodPost, "/users", in, &out); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "User created", applog.FieldUserID, out.ID)
	return &out, nil
}

// PersistProfile pushes the identity's name and email to the account record.
// The password is read back first so the replace-style PUT does not wipe it.
func (c *Client) PersistProfile(ctx context.Context, identity core.Identity) error {
	var current User
	if err := c.do(ctx, http.MethodGet, "/users/"+identity.UserID, nil, &current); err != nil {
		return err
	}
	current.Name = identity.UserName
	current.Email = identity.UserEmail
	return c.do(ctx, http.MethodPut, "/users/"+identity.UserID, current, nil)
}

// PushGoal upserts one savings goal under the user's remote goal collection.
func (c *Client) PushGoal(ctx context.Context, userID string, goal core.SavingsGoal) error {
	payload := struct {
		core.SavingsGoal
		UserID string `json:"userId"`
	}{SavingsGoal: goal, UserID: userID}
	return c.do(ctx, http.MethodPut, "/users/"+userID+"/goals/"+goal.ID, payload, nil)
}

// PushReport uploads a derived report document for the user's month.
func (c *Client) PushReport(ctx context.Context, userID string, payload any) error {
	return c.do(ctx, http.MethodPost, "/users/"+userID+"/reports", payload, nil)
}

// FetchReportData pulls the transactions, budgets and goals the reporting
// views are built from.
func (c *Client) FetchReportData(ctx context.Context, userID string) (*ReportData, error) {
	var out ReportData
	if err := c.do(ctx, http.MethodGet, "/users/"+userID+"/reportData", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, res.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
