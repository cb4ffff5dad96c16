// Package rpc carries the JSON-over-HTTP calls between agents, the gateway
// and banks. Channel security (mutual auth, certificates) is provided by
// the deployment's transport layer and is not handled here.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/interpay/interbank/internal/callgate"
	"github.com/interpay/interbank/internal/models"
)

// ErrUnreachable marks transport-level failures (connection refused,
// timeout). Callers use it to tell "peer is down" apart from a business
// refusal.
var ErrUnreachable = errors.New("peer unreachable")

// Per-call deadlines. A stalled participant must never hang its caller.
const (
	CallTimeout         = 5 * time.Second
	RegistrationTimeout = 10 * time.Second
	PingTimeout         = 2 * time.Second
)

// Credentials are attached as headers on every outbound call so the far
// side's call gate can authenticate the principal.
type Credentials struct {
	ClientID string
	Password string
	BankName string
}

type peer struct {
	baseURL string
	httpc   *http.Client
	creds   *Credentials
}

func (p *peer) do(ctx context.Context, method, path string, timeout time.Duration, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body *bytes.Buffer
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.creds != nil {
		req.Header.Set(callgate.HeaderClientID, p.creds.ClientID)
		req.Header.Set(callgate.HeaderPassword, p.creds.Password)
		req.Header.Set(callgate.HeaderBankName, p.creds.BankName)
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s rejected: %s", path, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// BankClient is the gateway's handle on one registered bank.
type BankClient struct {
	peer
}

// NewBankClient dials a bank at host:port.
func NewBankClient(addr string) *BankClient {
	return &BankClient{peer{baseURL: "http://" + addr, httpc: &http.Client{}}}
}

func (c *BankClient) PrepareTransaction(ctx context.Context, req models.PrepareRequest) (models.PrepareResponse, error) {
	var resp models.PrepareResponse
	err := c.do(ctx, http.MethodPost, "/prepare", CallTimeout, req, &resp)
	return resp, err
}

func (c *BankClient) CommitTransaction(ctx context.Context, req models.CommitRequest) (models.StatusResponse, error) {
	var resp models.StatusResponse
	err := c.do(ctx, http.MethodPost, "/commit", CallTimeout, req, &resp)
	return resp, err
}

func (c *BankClient) Registration(ctx context.Context, req models.RegistrationRequest) (models.StatusResponse, error) {
	var resp models.StatusResponse
	err := c.do(ctx, http.MethodPost, "/register", RegistrationTimeout, req, &resp)
	return resp, err
}

func (c *BankClient) MakePayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResponse, error) {
	var resp models.PaymentResponse
	err := c.do(ctx, http.MethodPost, "/pay", CallTimeout, req, &resp)
	return resp, err
}

func (c *BankClient) CheckBalance(ctx context.Context, accountID string) (models.BalanceResponse, error) {
	var resp models.BalanceResponse
	path := "/balance?account_id=" + url.QueryEscape(accountID)
	err := c.do(ctx, http.MethodGet, path, CallTimeout, nil, &resp)
	return resp, err
}

// GatewayClient is used by agents and banks to reach the coordinator.
type GatewayClient struct {
	peer
}

// NewGatewayClient dials the gateway, optionally attaching credentials to
// every call.
func NewGatewayClient(addr string, creds *Credentials) *GatewayClient {
	return &GatewayClient{peer{baseURL: "http://" + addr, httpc: &http.Client{}, creds: creds}}
}

func (c *GatewayClient) Registration(ctx context.Context, req models.RegistrationRequest) (models.StatusResponse, error) {
	var resp models.StatusResponse
	err := c.do(ctx, http.MethodPost, "/register", RegistrationTimeout, req, &resp)
	return resp, err
}

func (c *GatewayClient) MakePayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResponse, error) {
	var resp models.PaymentResponse
	err := c.do(ctx, http.MethodPost, "/payments", RegistrationTimeout, req, &resp)
	return resp, err
}

func (c *GatewayClient) CheckBalance(ctx context.Context, clientID string) (models.BalanceResponse, error) {
	var resp models.BalanceResponse
	path := "/balance?client_id=" + url.QueryEscape(clientID)
	err := c.do(ctx, http.MethodGet, path, CallTimeout, nil, &resp)
	return resp, err
}

func (c *GatewayClient) Ping(ctx context.Context) error {
	var resp models.Ping
	if err := c.do(ctx, http.MethodPost, "/ping", PingTimeout, models.Ping{Alive: true}, &resp); err != nil {
		return err
	}
	if !resp.Alive {
		return fmt.Errorf("%w: gateway reported not alive", ErrUnreachable)
	}
	return nil
}
