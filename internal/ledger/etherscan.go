package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carpool/internal/domain"
)

// EtherscanClient talks to Etherscan-compatible explorers (Etherscan,
// BscScan, PolygonScan).
type EtherscanClient struct {
	httpClient *http.Client
	chain      domain.Chain
	baseURL    string
	apiKey     string
	retries    int
}

// NewEtherscanClient constructs a client for one EVM chain.
func NewEtherscanClient(httpClient *http.Client, chain domain.Chain, baseURL, apiKey string, retries int) *EtherscanClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(10 * time.Second)
	}
	return &EtherscanClient{
		httpClient: httpClient,
		chain:      chain,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		retries:    retries,
	}
}

// Chain returns the chain served by this client.
func (c *EtherscanClient) Chain() domain.Chain { return c.chain }

type etherscanEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type etherscanTx struct {
	Hash         string `json:"hash"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	TimeStamp    string `json:"timeStamp"`
	TokenDecimal string `json:"tokenDecimal"`
	IsError      string `json:"isError"`
}

// errNoClosestBlock is the explorer's answer for a timestamp with no block
// on the requested side, typically one in the future.
var errNoClosestBlock = errors.New("no closest block")

const latestBlock = "99999999"

// Transfers lists transfers into q.Address within the time range. The time
// range is translated into a block range first. A range that has not started
// yet holds no transfers.
func (c *EtherscanClient) Transfers(ctx context.Context, q TransferQuery) ([]domain.LedgerTransfer, error) {
	now := time.Now()
	if q.From.After(now) {
		return []domain.LedgerTransfer{}, nil
	}

	startBlock, err := c.blockByTime(ctx, q.From, "after")
	if errors.Is(err, errNoClosestBlock) {
		// No block mined since From.
		return []domain.LedgerTransfer{}, nil
	}
	if err != nil {
		return nil, err
	}

	endBlock := latestBlock
	if q.To.Before(now) {
		endBlock, err = c.blockByTime(ctx, q.To, "before")
		if errors.Is(err, errNoClosestBlock) {
			endBlock, err = latestBlock, nil
		}
		if err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("module", "account")
	params.Set("address", q.Address)
	params.Set("startblock", startBlock)
	params.Set("endblock", endBlock)
	params.Set("sort", "asc")
	if q.TokenContract != "" {
		params.Set("action", "tokentx")
		params.Set("contractaddress", q.TokenContract)
	} else {
		params.Set("action", "txlist")
	}

	var txs []etherscanTx
	if err := c.call(ctx, params, &txs); err != nil {
		return nil, err
	}

	transfers := make([]domain.LedgerTransfer, 0, len(txs))
	for _, tx := range txs {
		if tx.IsError == "1" {
			continue
		}
		decimals := q.TokenDecimals
		if tx.TokenDecimal != "" {
			if d, err := strconv.Atoi(tx.TokenDecimal); err == nil {
				decimals = d
			}
		} else if q.TokenContract == "" {
			decimals = 18
		}
		value, err := ToDisplayUnits(tx.Value, decimals)
		if err != nil {
			return nil, err
		}
		ts, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timestamp %q", ErrMalformedResponse, tx.TimeStamp)
		}
		transfers = append(transfers, domain.LedgerTransfer{
			Hash:      tx.Hash,
			From:      tx.From,
			To:        tx.To,
			Value:     value,
			Timestamp: ts,
		})
	}

	return transfers, nil
}

// blockByTime resolves the block closest to t.
func (c *EtherscanClient) blockByTime(ctx context.Context, t time.Time, closest string) (string, error) {
	params := url.Values{}
	params.Set("module", "block")
	params.Set("action", "getblocknobytime")
	params.Set("timestamp", strconv.FormatInt(t.Unix(), 10))
	params.Set("closest", closest)

	var block string
	if err := c.call(ctx, params, &block); err != nil {
		return "", err
	}
	if _, err := strconv.ParseUint(block, 10, 64); err != nil {
		return "", fmt.Errorf("%w: invalid block number %q", ErrMalformedResponse, block)
	}
	return block, nil
}

// call performs a GET with retries and decodes the result field into out.
func (c *EtherscanClient) call(ctx context.Context, params url.Values, out any) error {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	endpoint := c.baseURL + "?" + params.Encode()

	return retry(ctx, c.retries+1, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		if err := classifyStatus(resp); err != nil {
			return err
		}

		var env etherscanEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}

		if env.Status != "1" {
			// An empty history is reported as status 0.
			if strings.HasPrefix(env.Message, "No transactions found") {
				return json.Unmarshal([]byte("[]"), out)
			}
			var reason string
			_ = json.Unmarshal(env.Result, &reason)
			if strings.Contains(reason, "No closest block found") {
				return errNoClosestBlock
			}
			if strings.Contains(strings.ToLower(reason), "rate limit") {
				return fmt.Errorf("%w: %s", ErrUnavailable, reason)
			}
			return fmt.Errorf("%w: %s %s", ErrMalformedResponse, env.Message, reason)
		}

		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return nil
	})
}
