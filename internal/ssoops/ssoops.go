// Package ssoops implements the optional identity-operations module:
// Identity Center email verification and password reset. These operations
// are not part of the public SDK surface, so the module speaks the
// identitystore control-plane JSON protocol directly with sigv4-signed
// requests. Builds that include the module (build tag ssoops on the serve
// command) register it under the identity-ops capability.
package ssoops

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"

	"github.com/grnet/mcp-aws-orgs/internal/awsapi"
	"github.com/grnet/mcp-aws-orgs/internal/capability"
)

const (
	serviceName = "identitystore"

	targetVerifyEmail    = "AWSIdentityStore.VerifyEmail"
	targetUpdatePassword = "AWSIdentityStore.UpdatePassword"
)

func init() {
	capability.Register(capability.IdentityOps, awsapi.IdentityOpsFactory(New))
}

// Client performs signed identity-operations calls for one institution.
type Client struct {
	creds      aws.CredentialsProvider
	region     string
	endpoint   string
	httpClient *http.Client
	signer     *v4.Signer
}

// New builds an identity-ops client from static institution credentials.
// It satisfies awsapi.IdentityOpsFactory.
func New(accessKeyID, secretAccessKey, region string) (awsapi.IdentityOps, error) {
	if accessKeyID == "" || secretAccessKey == "" {
		return nil, fmt.Errorf("ssoops: missing credentials")
	}
	if region == "" {
		region = awsapi.DefaultSSORegion
	}
	return &Client{
		creds:      aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
		region:     region,
		endpoint:   fmt.Sprintf("https://identitystore.%s.amazonaws.com/", region),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		signer:     v4.NewSigner(),
	}, nil
}

// VerifyEmail triggers an email verification for the user.
func (c *Client) VerifyEmail(ctx context.Context, identityStoreID, userID string) (map[string]any, error) {
	return c.call(ctx, targetVerifyEmail, map[string]any{
		"IdentityStoreId": identityStoreID,
		"UserId":          userID,
	})
}

// UpdatePassword triggers a password reset for the user. Mode "EMAIL"
// sends a reset link, "OTP" generates a one-time password.
func (c *Client) UpdatePassword(ctx context.Context, identityStoreID, userID, mode string) (map[string]any, error) {
	if mode == "" {
		mode = "EMAIL"
	}
	return c.call(ctx, targetUpdatePassword, map[string]any{
		"IdentityStoreId": identityStoreID,
		"UserId":          userID,
		"PasswordMode":    strings.ToUpper(mode),
	})
}

func (c *Client) call(ctx context.Context, target string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ssoops: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ssoops: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("X-Amz-Target", target)

	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("ssoops: resolve credentials: %w", err)
	}
	hash := sha256.Sum256(body)
	if err := c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(hash[:]), serviceName, c.region, time.Now()); err != nil {
		return nil, fmt.Errorf("ssoops: sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ssoops: %s: %w", target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("ssoops: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, data)
	}

	result := map[string]any{"status": "ok"}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("ssoops: decode response: %w", err)
		}
	}
	return result, nil
}

// apiError converts a control-plane failure into a smithy APIError so the
// envelope layer classifies it like any other provider fault.
func apiError(status int, body []byte) error {
	var fault struct {
		Type    string `json:"__type"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &fault)

	code := fault.Type
	if i := strings.LastIndexByte(code, '#'); i >= 0 {
		code = code[i+1:]
	}
	if code == "" {
		code = fmt.Sprintf("HTTP%d", status)
	}
	msg := fault.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &smithy.GenericAPIError{Code: code, Message: msg}
}
