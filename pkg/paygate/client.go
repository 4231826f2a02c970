package paygate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"datashare/internal/config"
	"datashare/internal/constants"
	apperrors "datashare/internal/errors"
	"datashare/internal/models"
)

const (
	tokenCacheKey     = "access_token"
	idempotencyHeader = "Idempotency-Key"
)

// Client represents a payment gateway API client
type Client struct {
	httpClient *resty.Client
	cfg        config.PaymentConfig
	tokenCache *cache.Cache
	logger     *logrus.Logger
}

// APIResponse represents the response envelope of the payment gateway
type APIResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// NewClient creates a new payment gateway client
func NewClient(cfg config.PaymentConfig, logger *logrus.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetTimeout(constants.DefaultTimeout * time.Second).
		SetRetryCount(constants.DefaultRetryCount).
		SetRetryWaitTime(constants.DefaultRetryWaitTime * time.Second).
		SetRetryMaxWaitTime(constants.DefaultRetryMaxWaitTime * time.Second)

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		tokenCache: cache.New(constants.CacheExpiration*time.Minute, constants.CacheCleanupInterval*time.Minute),
		logger:     logger,
	}
}

// Login obtains an access token for the gateway API
func (c *Client) Login(ctx context.Context) (string, error) {
	// Check if we already have a valid token
	if token, found := c.tokenCache.Get(tokenCacheKey); found {
		return token.(string), nil
	}

	c.logger.Infof("Authenticating with payment gateway at %s", c.cfg.APIURL)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"api_key":    c.cfg.APIKey,
			"api_secret": c.cfg.APISecret,
		}).
		Post("/auth/token")
	if err != nil {
		return "", &apperrors.PaymentGatewayError{Operation: "login", Message: err.Error()}
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Errorf("Gateway login failed - Status: %d, Response: %s", resp.StatusCode(), string(resp.Body()))
		return "", &apperrors.PaymentGatewayError{Operation: "login", Status: resp.StatusCode(), Message: "authentication rejected"}
	}

	var token tokenResponse
	if err := decodeEnvelope(resp, "login", &token); err != nil {
		return "", err
	}

	if token.Token == "" {
		return "", &apperrors.PaymentGatewayError{Operation: "login", Status: resp.StatusCode(), Message: "no access token received"}
	}

	c.tokenCache.Set(tokenCacheKey, token.Token, cache.DefaultExpiration)
	c.logger.Info("Successfully authenticated with payment gateway")
	return token.Token, nil
}

// Charge captures a payment
func (c *Client) Charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentReceipt, error) {
	c.logger.Infof("Capturing %s %s for user %d (reference %s)", req.Amount.StringFixed(2), req.Currency, req.UserID, req.Reference)

	var receipt models.PaymentReceipt
	if err := c.post(ctx, "charge", "/charges", req.Reference, req, &receipt, true); err != nil {
		return nil, err
	}

	if receipt.Reference == "" {
		receipt.Reference = req.Reference
	}
	return &receipt, nil
}

// Refund reverses a captured payment
func (c *Client) Refund(ctx context.Context, reference string) error {
	c.logger.Infof("Refunding payment %s", reference)
	return c.post(ctx, "refund", fmt.Sprintf("/charges/%s/refund", reference), "refund-"+reference, nil, nil, true)
}

// post sends an authenticated request, logging in again once on 401.
// idempotencyKey lets the gateway collapse transport-level resends of one call.
func (c *Client) post(ctx context.Context, operation, path, idempotencyKey string, body, out interface{}, retryAuth bool) error {
	token, err := c.Login(ctx)
	if err != nil {
		return err
	}

	req := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader(idempotencyHeader, idempotencyKey)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Post(path)
	if err != nil {
		c.logger.Errorf("Gateway %s request failed: %v", operation, err)
		return &apperrors.PaymentGatewayError{Operation: operation, Message: err.Error()}
	}

	c.logger.Debugf("Gateway %s response status: %d", operation, resp.StatusCode())

	if resp.StatusCode() == http.StatusUnauthorized && retryAuth {
		c.tokenCache.Delete(tokenCacheKey)
		return c.post(ctx, operation, path, idempotencyKey, body, out, false)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Errorf("Gateway %s failed with status code %d, response body: %s", operation, resp.StatusCode(), string(resp.Body()))
		return &apperrors.PaymentGatewayError{Operation: operation, Status: resp.StatusCode(), Message: envelopeMessage(resp)}
	}

	return decodeEnvelope(resp, operation, out)
}

func decodeEnvelope(resp *resty.Response, operation string, out interface{}) error {
	if len(resp.Body()) == 0 {
		return &apperrors.PaymentGatewayError{Operation: operation, Status: resp.StatusCode(), Message: "empty response from gateway"}
	}

	var apiResp APIResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return &apperrors.PaymentGatewayError{Operation: operation, Status: resp.StatusCode(), Message: fmt.Sprintf("failed to parse response: %v", err)}
	}

	if !apiResp.Success {
		return &apperrors.PaymentGatewayError{Operation: operation, Status: resp.StatusCode(), Message: apiResp.Msg}
	}

	if out == nil || len(apiResp.Obj) == 0 {
		return nil
	}

	if err := json.Unmarshal(apiResp.Obj, out); err != nil {
		return &apperrors.PaymentGatewayError{Operation: operation, Status: resp.StatusCode(), Message: fmt.Sprintf("failed to parse obj: %v", err)}
	}
	return nil
}

func envelopeMessage(resp *resty.Response) string {
	var apiResp APIResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err == nil && apiResp.Msg != "" {
		return apiResp.Msg
	}
	return http.StatusText(resp.StatusCode())
}
