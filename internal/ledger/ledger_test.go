package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"carpool/internal/domain"
)

func TestToDisplayUnits(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals int
		want     float64
	}{
		{name: "usdt six decimals", value: "49999900", decimals: 6, want: 49.9999},
		{name: "eighteen decimals", value: "1500000000000000000", decimals: 18, want: 1.5},
		{name: "no decimals", value: "42", decimals: 0, want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDisplayUnits(tt.value, tt.decimals)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestToDisplayUnits_Invalid(t *testing.T) {
	if _, err := ToDisplayUnits("12abc", 6); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestSameAddress(t *testing.T) {
	if !SameAddress(domain.ChainEthereum, "0xAbC", "0xabc") {
		t.Error("expected evm addresses to compare case-insensitively")
	}
	if SameAddress(domain.ChainTron, "TAbc", "Tabc") {
		t.Error("expected tron addresses to compare case-sensitively")
	}
}

func TestRegistry_UnknownChain(t *testing.T) {
	r := NewRegistry(NewTronGridClient(nil, "http://localhost", "", 0))

	if _, err := r.Get(domain.ChainTron); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Get(domain.ChainBSC); !errors.Is(err, ErrUnknownChain) {
		t.Errorf("expected ErrUnknownChain, got %v", err)
	}
}

func TestEtherscanClient_Transfers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("action") {
		case "getblocknobytime":
			if q.Get("closest") == "after" {
				fmt.Fprint(w, `{"status":"1","message":"OK","result":"100"}`)
			} else {
				fmt.Fprint(w, `{"status":"1","message":"OK","result":"200"}`)
			}
		case "tokentx":
			if q.Get("startblock") != "100" || q.Get("endblock") != "200" {
				t.Errorf("unexpected block range %s-%s", q.Get("startblock"), q.Get("endblock"))
			}
			if q.Get("contractaddress") != "0xtoken" {
				t.Errorf("unexpected contract %s", q.Get("contractaddress"))
			}
			if q.Get("apikey") != "secret" {
				t.Errorf("expected api key to be sent")
			}
			fmt.Fprint(w, `{"status":"1","message":"OK","result":[
				{"hash":"0xh1","from":"0xsender","to":"0xwallet","value":"49999900","timeStamp":"1700000000","tokenDecimal":"6"}
			]}`)
		default:
			t.Errorf("unexpected action %s", q.Get("action"))
		}
	}))
	defer server.Close()

	client := NewEtherscanClient(server.Client(), domain.ChainEthereum, server.URL, "secret", 0)

	transfers, err := client.Transfers(context.Background(), TransferQuery{
		Address:       "0xwallet",
		TokenContract: "0xtoken",
		TokenDecimals: 6,
		From:          time.Now().Add(-96 * time.Hour),
		To:            time.Now().Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(transfers))
	}
	if transfers[0].Hash != "0xh1" || math.Abs(transfers[0].Value-49.9999) > 1e-9 {
		t.Errorf("unexpected transfer: %+v", transfers[0])
	}
	if transfers[0].Timestamp != 1700000000 {
		t.Errorf("unexpected timestamp %d", transfers[0].Timestamp)
	}
}

func TestEtherscanClient_NoTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") == "getblocknobytime" {
			fmt.Fprint(w, `{"status":"1","message":"OK","result":"1"}`)
			return
		}
		fmt.Fprint(w, `{"status":"0","message":"No transactions found","result":[]}`)
	}))
	defer server.Close()

	client := NewEtherscanClient(server.Client(), domain.ChainBSC, server.URL, "", 0)

	transfers, err := client.Transfers(context.Background(), TransferQuery{
		Address: "0xwallet",
		From:    time.Now().Add(-time.Hour),
		To:      time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transfers) != 0 {
		t.Errorf("expected no transfers, got %d", len(transfers))
	}
}

func TestEtherscanClient_WindowNotStarted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"status":"0","message":"NOTOK","result":"Error! No closest block found"}`)
	}))
	defer server.Close()

	client := NewEtherscanClient(server.Client(), domain.ChainEthereum, server.URL, "", 0)

	transfers, err := client.Transfers(context.Background(), TransferQuery{
		Address: "0xwallet",
		From:    time.Now().Add(24 * time.Hour),
		To:      time.Now().Add(96 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transfers) != 0 {
		t.Errorf("expected no transfers, got %d", len(transfers))
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no explorer calls for a future window, got %d", calls)
	}
}

func TestEtherscanClient_NoClosestBlock(t *testing.T) {
	tests := []struct {
		name      string
		noneAfter bool
		wantEnd   string
		wantCalls int32
	}{
		// From is in the past but no block has been mined since.
		{name: "no block after start", noneAfter: true, wantCalls: 1},
		{name: "no block before end", wantEnd: latestBlock, wantCalls: 3},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				q := r.URL.Query()
				switch {
				case q.Get("action") == "getblocknobytime" && (q.Get("closest") == "after") == tc.noneAfter:
					fmt.Fprint(w, `{"status":"0","message":"NOTOK","result":"Error! No closest block found"}`)
				case q.Get("action") == "getblocknobytime":
					fmt.Fprint(w, `{"status":"1","message":"OK","result":"100"}`)
				default:
					if q.Get("endblock") != tc.wantEnd {
						t.Errorf("endblock = %s, want %s", q.Get("endblock"), tc.wantEnd)
					}
					fmt.Fprint(w, `{"status":"0","message":"No transactions found","result":[]}`)
				}
			}))
			defer server.Close()

			client := NewEtherscanClient(server.Client(), domain.ChainEthereum, server.URL, "", 0)

			transfers, err := client.Transfers(context.Background(), TransferQuery{
				Address: "0xwallet",
				From:    time.Now().Add(-2 * time.Hour),
				To:      time.Now().Add(-time.Hour),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(transfers) != 0 {
				t.Errorf("expected no transfers, got %d", len(transfers))
			}
			if got := atomic.LoadInt32(&calls); got != tc.wantCalls {
				t.Errorf("expected %d calls, got %d", tc.wantCalls, got)
			}
		})
	}
}

func TestEtherscanClient_RetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"status":"1","message":"OK","result":"7"}`)
	}))
	defer server.Close()

	client := NewEtherscanClient(server.Client(), domain.ChainEthereum, server.URL, "", 1)

	block, err := client.blockByTime(context.Background(), time.Now(), "after")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if block != "7" {
		t.Errorf("expected block 7, got %s", block)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestEtherscanClient_UnavailableAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewEtherscanClient(server.Client(), domain.ChainEthereum, server.URL, "", 1)

	_, err := client.Transfers(context.Background(), TransferQuery{Address: "0xwallet", From: time.Now(), To: time.Now()})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestTronGridClient_TransfersPaginates(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts/TWallet/transactions/trc20" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("TRON-PRO-API-KEY") != "key" {
			t.Errorf("expected api key header")
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, `{"success":true,"data":[
				{"transaction_id":"t1","from":"TSender","to":"TWallet","value":"50000000","block_timestamp":1700000000000,"token_info":{"decimals":6}}
			],"meta":{"fingerprint":"next"}}`)
			return
		}
		if r.URL.Query().Get("fingerprint") != "next" {
			t.Errorf("expected fingerprint on second page")
		}
		fmt.Fprint(w, `{"success":true,"data":[
			{"transaction_id":"t2","from":"TOther","to":"TWallet","value":"40000000","block_timestamp":1700000100000,"token_info":{"decimals":6}}
		],"meta":{}}`)
	}))
	defer server.Close()

	client := NewTronGridClient(server.Client(), server.URL, "key", 0)

	transfers, err := client.Transfers(context.Background(), TransferQuery{
		Address:       "TWallet",
		TokenContract: "TToken",
		From:          time.Unix(1699990000, 0),
		To:            time.Unix(1700100000, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(transfers))
	}
	if transfers[0].Value != 50 || transfers[0].Timestamp != 1700000000 {
		t.Errorf("unexpected first transfer: %+v", transfers[0])
	}
	if transfers[1].Hash != "t2" || transfers[1].Value != 40 {
		t.Errorf("unexpected second transfer: %+v", transfers[1])
	}
}

func TestTronGridClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer server.Close()

	client := NewTronGridClient(server.Client(), server.URL, "", 0)

	_, err := client.Transfers(context.Background(), TransferQuery{Address: "TWallet", From: time.Now(), To: time.Now()})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestTronGridClient_TruncatedHistoryIsUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		fmt.Fprintf(w, `{"success":true,"data":[
			{"transaction_id":"t%d","from":"TOther","to":"TWallet","value":"1000000","block_timestamp":1700000000000,"token_info":{"decimals":6}}
		],"meta":{"fingerprint":"page-%d"}}`, n, n)
	}))
	defer server.Close()

	client := NewTronGridClient(server.Client(), server.URL, "", 0)

	transfers, err := client.Transfers(context.Background(), TransferQuery{
		Address: "TWallet",
		From:    time.Unix(1699990000, 0),
		To:      time.Unix(1700100000, 0),
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v (%d transfers)", err, len(transfers))
	}
	if got := atomic.LoadInt32(&calls); got != maxTronPages {
		t.Errorf("expected %d page requests, got %d", maxTronPages, got)
	}
}
