package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carpool/internal/domain"
)

// maxTronPages bounds pagination through an account's history. A history
// longer than that is reported as unavailable.
const maxTronPages = 10

// TronGridClient lists TRC-20 transfers through the TronGrid API.
type TronGridClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retries    int
}

// NewTronGridClient constructs a TronGrid client.
func NewTronGridClient(httpClient *http.Client, baseURL, apiKey string, retries int) *TronGridClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(10 * time.Second)
	}
	return &TronGridClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		retries:    retries,
	}
}

// Chain returns the chain served by this client.
func (c *TronGridClient) Chain() domain.Chain { return domain.ChainTron }

type tronPage struct {
	Success bool `json:"success"`
	Data    []struct {
		TransactionID  string `json:"transaction_id"`
		From           string `json:"from"`
		To             string `json:"to"`
		Value          string `json:"value"`
		BlockTimestamp int64  `json:"block_timestamp"`
		TokenInfo      struct {
			Decimals int `json:"decimals"`
		} `json:"token_info"`
	} `json:"data"`
	Meta struct {
		Fingerprint string `json:"fingerprint"`
	} `json:"meta"`
}

// Transfers lists TRC-20 transfers received by q.Address within the time range.
func (c *TronGridClient) Transfers(ctx context.Context, q TransferQuery) ([]domain.LedgerTransfer, error) {
	params := url.Values{}
	params.Set("only_to", "true")
	params.Set("limit", "200")
	params.Set("order_by", "block_timestamp,asc")
	params.Set("min_timestamp", strconv.FormatInt(q.From.UnixMilli(), 10))
	params.Set("max_timestamp", strconv.FormatInt(q.To.UnixMilli(), 10))
	if q.TokenContract != "" {
		params.Set("contract_address", q.TokenContract)
	}

	var transfers []domain.LedgerTransfer
	for page := 0; ; page++ {
		if page == maxTronPages {
			// More history remains past the page bound.
			return nil, fmt.Errorf("%w: trongrid history truncated after %d pages", ErrUnavailable, maxTronPages)
		}

		var p tronPage
		endpoint := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20?%s", c.baseURL, url.PathEscape(q.Address), params.Encode())
		if err := c.get(ctx, endpoint, &p); err != nil {
			return nil, err
		}
		if !p.Success {
			return nil, fmt.Errorf("%w: trongrid reported failure", ErrMalformedResponse)
		}

		for _, tx := range p.Data {
			decimals := tx.TokenInfo.Decimals
			if decimals == 0 {
				decimals = q.TokenDecimals
			}
			value, err := ToDisplayUnits(tx.Value, decimals)
			if err != nil {
				return nil, err
			}
			transfers = append(transfers, domain.LedgerTransfer{
				Hash:      tx.TransactionID,
				From:      tx.From,
				To:        tx.To,
				Value:     value,
				Timestamp: tx.BlockTimestamp / 1000,
			})
		}

		if p.Meta.Fingerprint == "" {
			break
		}
		params.Set("fingerprint", p.Meta.Fingerprint)
	}

	return transfers, nil
}

func (c *TronGridClient) get(ctx context.Context, endpoint string, out any) error {
	return retry(ctx, c.retries+1, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("TRON-PRO-API-KEY", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		if err := classifyStatus(resp); err != nil {
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return nil
	})
}
