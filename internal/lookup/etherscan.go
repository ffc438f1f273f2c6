package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const etherscanBaseURL = "https://api.etherscan.io/api"

// EtherscanLookup answers code-presence queries through the Etherscan proxy
// API. Used as a fallback when no JSON-RPC node is configured. The free tier
// is tightly rate limited, so every request goes through a limiter.
type EtherscanLookup struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewEtherscanLookup creates a rate-limited Etherscan lookup.
func NewEtherscanLookup(apiKey string, requestsPerSecond int) (*EtherscanLookup, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("etherscan api key cannot be empty")
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 4
	}

	return &EtherscanLookup{
		apiKey:  apiKey,
		baseURL: etherscanBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}, nil
}

type etherscanProxyResponse struct {
	// Status/Message form the envelope Etherscan uses for quota and key
	// failures; the explanation text lands in Result.
	Status  string `json:"status"`
	Message string `json:"message"`
	JSONRPC string `json:"jsonrpc"`
	Result  string `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// IsContract calls eth_getCode through the Etherscan proxy module.
func (e *EtherscanLookup) IsContract(ctx context.Context, address string) (bool, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return false, err
	}

	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_getCode")
	params.Set("address", address)
	params.Set("tag", "latest")
	params.Set("apikey", e.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("etherscan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("etherscan returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed etherscanProxyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return false, fmt.Errorf("etherscan error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	// Rate-limit and bad-key failures arrive as status "0" with the reason in
	// the result string, not as a JSON-RPC error.
	if parsed.Status == "0" || parsed.Message == "NOTOK" {
		return false, fmt.Errorf("etherscan rejected request: %s", parsed.Result)
	}
	if !strings.HasPrefix(parsed.Result, "0x") {
		return false, fmt.Errorf("etherscan returned unexpected result %q", parsed.Result)
	}

	// An externally-owned account reports empty code.
	return parsed.Result != "0x", nil
}
