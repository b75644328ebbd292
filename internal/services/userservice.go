package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eduka/notification-service/internal/config"
	"github.com/eduka/notification-service/pkg/resilience"
	"go.uber.org/zap"
)

// User is the slice of the user-management record this service cares about.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"isActive"`
}

// UserResult is the outcome of a user validation. Found and Valid are only
// definitive when Degraded is false; a Degraded result is the fallback's
// assumption made while the user service is unhealthy, and callers must treat
// it as such rather than as a real answer.
type UserResult struct {
	Valid    bool
	Found    bool
	User     *User
	Degraded bool
}

// Fallback produces the degraded-mode answer when the circuit is open or the
// retry budget is exhausted. The policy (fail open vs fail closed) is the
// caller's choice and is never assumed by the client.
type Fallback func(err error) UserResult

// FailOpen assumes the user is valid when user management is unreachable.
func FailOpen(err error) UserResult {
	return UserResult{Valid: true, Degraded: true}
}

// FailClosed rejects when user management is unreachable.
func FailClosed(err error) UserResult {
	return UserResult{Degraded: true}
}

// UserClient calls the external user-management service with a circuit
// breaker, bounded retries, and an explicit fallback.
type UserClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
	fallback   Fallback
	logger     *zap.Logger
}

func NewUserClient(cfg config.UserServiceConfig, breaker *resilience.Breaker, fallback Fallback, logger *zap.Logger) *UserClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &UserClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		fallback:   fallback,
		logger:     logger,
	}
}

// ValidateUser checks that the user exists and is active. A remote 404 is a
// definitive negative: the call succeeded, the circuit stays healthy. Network
// errors, timeouts and 5xx responses count against the circuit; once the
// circuit gives up, the fallback's answer is returned with Degraded set.
func (u *UserClient) ValidateUser(ctx context.Context, userID string) (UserResult, error) {
	result, err := u.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return u.fetch(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			u.logger.Warn("user service circuit open, using fallback",
				zap.String("user_id", userID))
		} else {
			u.logger.Warn("user service unavailable, using fallback",
				zap.String("user_id", userID),
				zap.Error(err))
		}
		return u.fallback(err), nil
	}
	return result.(UserResult), nil
}

func (u *UserClient) fetch(ctx context.Context, userID string) (UserResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/users/%s", u.baseURL, userID), nil)
	if err != nil {
		return UserResult{}, err
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return UserResult{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Definitive "no such user", not a service failure.
		return UserResult{Found: false}, nil
	case resp.StatusCode >= 500:
		return UserResult{}, fmt.Errorf("user service returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return UserResult{}, fmt.Errorf("unexpected status %d from user service", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return UserResult{}, fmt.Errorf("decode user response: %w", err)
	}
	return UserResult{Valid: user.IsActive, Found: true, User: &user}, nil
}
