package dispatcharr

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/teamarr/teamarr/internal/authcore"
)

// M3UAccount is a Dispatcharr M3U playlist account.
type M3UAccount struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // idle | fetching | parsing | error | success | disabled
	UpdatedAt time.Time `json:"updated_at"`
}

// ListM3UAccounts lists every configured M3U account.
func (c *Client) ListM3UAccounts(ctx context.Context) ([]M3UAccount, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/m3u/accounts/", nil)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var accounts []M3UAccount
	if err := decode(resp, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetAccount fetches a single M3U account by ID.
func (c *Client) GetAccount(ctx context.Context, accountID int64) (*M3UAccount, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/m3u/accounts/"+strconv.FormatInt(accountID, 10)+"/", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, nil
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var a M3UAccount
	if err := decode(resp, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// TriggerRefresh kicks off an async M3U account refresh. It implements
// authcore.AccountGateway so RefreshAccounts can fan this out across every
// configured account.
func (c *Client) TriggerRefresh(ctx context.Context, accountID int64) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/m3u/refresh/"+strconv.FormatInt(accountID, 10)+"/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if ok(resp) {
		return nil
	}
	return classify(resp)
}

// GetAccountState implements authcore.AccountGateway: it polls one
// account's current refresh status and last-updated timestamp.
func (c *Client) GetAccountState(ctx context.Context, accountID int64) (authcore.AccountStatus, time.Time, error) {
	account, err := c.GetAccount(ctx, accountID)
	if err != nil {
		return "", time.Time{}, err
	}
	if account == nil {
		return "", time.Time{}, nil
	}
	return authcore.AccountStatus(account.Status), account.UpdatedAt, nil
}
