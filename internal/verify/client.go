// Package verify submits contract sources to an Etherscan-compatible block
// explorer and polls until the verification settles.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/hyblock/hyblock-contracts/pkg/types"
	"go.uber.org/zap"
)

// DefaultBaseURL is the Etherscan v2 multichain endpoint.
const DefaultBaseURL = "https://api.etherscan.io/v2/api"

const (
	statusPending         = "Pending in queue"
	statusPass            = "Pass - Verified"
	statusAlreadyVerified = "already verified"
)

// Client talks to the explorer's contract verification API.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	maxAttempts  int
	httpClient   *http.Client
	logger       *zap.Logger
}

// Config holds verification client configuration.
type Config struct {
	BaseURL string
	APIKey  string

	// PollInterval is the delay between checkverifystatus calls.
	PollInterval time.Duration

	// MaxAttempts bounds the number of status polls.
	MaxAttempts int

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Request describes one contract to verify.
type Request struct {
	ChainID *big.Int
	Address common.Address

	// ContractName is the fully qualified name, e.g. contracts/HYBLOCK.sol:HYBLOCKToken.
	ContractName string

	// CompilerVersion is solc's long version without the leading "v".
	CompilerVersion string

	// StandardJSONInput is the solc standard-json input from the build info.
	StandardJSONInput []byte

	// ConstructorArgs is the ABI-encoded constructor argument blob.
	ConstructorArgs []byte
}

// Result is the outcome of a successful verification.
type Result struct {
	GUID            string
	Message         string
	AlreadyVerified bool
	Attempts        int
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// NewClient creates a verification client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.APIKey == "" {
		return nil, errors.New("explorer API key cannot be empty")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 20
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		httpClient:   httpClient,
		logger:       cfg.Logger,
	}, nil
}

// Submit sends the standard-json source for verification and returns the GUID.
// A contract that is already verified yields an empty GUID and a Result with
// AlreadyVerified set.
func (c *Client) Submit(ctx context.Context, req *Request) (*Result, error) {
	err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("apikey", c.apiKey)
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", req.Address.Hex())
	form.Set("sourceCode", string(req.StandardJSONInput))
	form.Set("codeformat", "solidity-standard-json-input")
	form.Set("contractname", req.ContractName)
	form.Set("compilerversion", "v"+strings.TrimPrefix(req.CompilerVersion, "v"))
	// The explorer API spells this parameter with the typo.
	form.Set("constructorArguements", common.Bytes2Hex(req.ConstructorArgs))

	endpoint := c.endpoint(req.ChainID, nil)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Info("verification-submitting",
		zap.String("address", req.Address.Hex()),
		zap.String("contract", req.ContractName),
		zap.String("compiler", req.CompilerVersion),
		zap.Int("constructor-args-bytes", len(req.ConstructorArgs)))

	resp, err := c.do(httpReq)
	if err != nil {
		SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if resp.Status != "1" {
		if isAlreadyVerified(resp.Result) {
			SubmissionsTotal.WithLabelValues("already-verified").Inc()
			return &Result{Message: resp.Result, AlreadyVerified: true}, nil
		}
		SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, &types.VerificationError{Message: resp.Result}
	}

	SubmissionsTotal.WithLabelValues("accepted").Inc()
	c.logger.Info("verification-submitted",
		zap.String("address", req.Address.Hex()),
		zap.String("guid", resp.Result))

	return &Result{GUID: resp.Result, Message: resp.Message}, nil
}

// Status reports the verification state for a GUID. done is false while the
// explorer still has it queued.
func (c *Client) Status(ctx context.Context, chainID *big.Int, guid string) (done bool, result *Result, err error) {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "checkverifystatus")
	params.Set("guid", guid)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(chainID, params), nil)
	if err != nil {
		return false, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return false, nil, err
	}

	c.logger.Debug("verification-status",
		zap.String("guid", guid),
		zap.String("status", resp.Status),
		zap.String("result", resp.Result))

	switch {
	case resp.Result == statusPending:
		return false, nil, nil
	case resp.Result == statusPass:
		return true, &Result{GUID: guid, Message: resp.Result}, nil
	case isAlreadyVerified(resp.Result):
		return true, &Result{GUID: guid, Message: resp.Result, AlreadyVerified: true}, nil
	case resp.Status == "1":
		return true, &Result{GUID: guid, Message: resp.Result}, nil
	default:
		return true, nil, &types.VerificationError{GUID: guid, Message: resp.Result}
	}
}

// Verify submits req and polls its status until it passes, fails or the
// attempt limit is reached.
func (c *Client) Verify(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	submitted, err := c.Submit(ctx, req)
	if err != nil {
		VerificationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	if submitted.AlreadyVerified {
		VerificationsTotal.WithLabelValues("already-verified").Inc()
		c.logger.Info("contract-already-verified", zap.String("address", req.Address.Hex()))
		return submitted, nil
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for verification %s: %w", submitted.GUID, ctx.Err())
		case <-ticker.C:
		}

		done, result, err := c.Status(ctx, req.ChainID, submitted.GUID)
		if err != nil {
			var verr *types.VerificationError
			if errors.As(err, &verr) {
				VerificationsTotal.WithLabelValues("failed").Inc()
				c.logger.Error("verification-failed",
					zap.String("guid", submitted.GUID),
					zap.String("reason", verr.Message))
				return nil, err
			}

			c.logger.Warn("verification-status-poll-failed",
				zap.String("guid", submitted.GUID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		if !done {
			continue
		}

		result.Attempts = attempt
		VerificationsTotal.WithLabelValues("verified").Inc()
		VerificationDuration.Observe(time.Since(start).Seconds())
		c.logger.Info("contract-verified",
			zap.String("address", req.Address.Hex()),
			zap.String("guid", submitted.GUID),
			zap.Int("attempts", attempt))
		return result, nil
	}

	VerificationsTotal.WithLabelValues("timeout").Inc()
	return nil, &types.VerificationError{
		GUID:    submitted.GUID,
		Message: fmt.Sprintf("still pending after %d status checks", c.maxAttempts),
	}
}

func (c *Client) endpoint(chainID *big.Int, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if chainID != nil {
		params.Set("chainid", chainID.String())
	}
	params.Set("apikey", c.apiKey)
	return c.baseURL + "?" + params.Encode()
}

func (c *Client) do(req *http.Request) (*apiResponse, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hyblock-contracts/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var out apiResponse
	err = json.Unmarshal(body, &out)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &out, nil
}

func validateRequest(req *Request) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}
	if req.Address == (common.Address{}) {
		return errors.New("contract address cannot be empty")
	}
	if req.ContractName == "" {
		return errors.New("contract name cannot be empty")
	}
	if req.CompilerVersion == "" {
		return errors.New("compiler version cannot be empty")
	}
	if len(req.StandardJSONInput) == 0 {
		return errors.New("standard-json input cannot be empty")
	}
	return nil
}

func isAlreadyVerified(result string) bool {
	return strings.Contains(strings.ToLower(result), statusAlreadyVerified)
}
