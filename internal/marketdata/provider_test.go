package marketdata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"shibau-trading/internal/marketdata"
	"shibau-trading/internal/types"
)

func coinCapStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"bitcoin","priceUsd":"68000.50"},
			{"id":"ethereum","priceUsd":"3400.25"},
			{"id":"shiba-inu","priceUsd":"0.000025"}
		]}`))
	}))
}

func cryptoCompareStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"RAW":{
			"BTC":{"USD":{"PRICE":67500}},
			"ETH":{"USD":{"PRICE":3390}},
			"SHIB":{"USD":{"PRICE":0.000024}}
		}}`))
	}))
}

func failingStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
}

func TestProviderChain_PrimarySource(t *testing.T) {
	coincap := coinCapStub(t)
	defer coincap.Close()

	chain := marketdata.NewProviderChainWithURLs(nil, coincap.URL, "http://127.0.0.1:0")
	prices := chain.Prices(context.Background())

	if !prices["BTC/USD"].Equal(d("68000.50")) {
		t.Errorf("BTC should be 68000.50, got %s", prices["BTC/USD"])
	}
	if !prices["USDC/USD"].Equal(d("1.00")) {
		t.Errorf("USDC should be pinned to 1.00, got %s", prices["USDC/USD"])
	}
	if chain.Status() != types.SourceConnected {
		t.Errorf("status should be CONNECTED, got %s", chain.Status())
	}
}

func TestProviderChain_FallsBackToSecondary(t *testing.T) {
	broken := failingStub(t)
	defer broken.Close()
	compare := cryptoCompareStub(t)
	defer compare.Close()

	chain := marketdata.NewProviderChainWithURLs(nil, broken.URL, compare.URL)
	prices := chain.Prices(context.Background())

	if !prices["BTC/USD"].Equal(d("67500")) {
		t.Errorf("BTC should come from the secondary feed, got %s", prices["BTC/USD"])
	}
	if chain.Status() != types.SourceConnected {
		t.Errorf("status should be CONNECTED, got %s", chain.Status())
	}
}

func TestProviderChain_StaticFallbackWhenAllDown(t *testing.T) {
	broken := failingStub(t)
	defer broken.Close()

	chain := marketdata.NewProviderChainWithURLs(nil, broken.URL, broken.URL)
	prices := chain.Prices(context.Background())

	if !prices["BTC/USD"].Equal(d("107000.00")) {
		t.Errorf("expected static fallback BTC price, got %s", prices["BTC/USD"])
	}
	if !prices["SHIBA/USD"].Equal(d("0.00002200")) {
		t.Errorf("expected static fallback SHIBA price, got %s", prices["SHIBA/USD"])
	}
}

func TestProviderChain_DisconnectsAfterRepeatedFailures(t *testing.T) {
	broken := failingStub(t)
	defer broken.Close()

	chain := marketdata.NewProviderChainWithURLs(nil, broken.URL, broken.URL)

	chain.Prices(context.Background())
	chain.Prices(context.Background())
	if chain.Status() == types.SourceDisconnected {
		t.Fatal("two failures should not disconnect yet")
	}

	chain.Prices(context.Background())
	if chain.Status() != types.SourceDisconnected {
		t.Errorf("three failures should disconnect, got %s", chain.Status())
	}
}

func TestProviderChain_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"bitcoin","priceUsd":"68000.50"}]}`))
	}))
	defer srv.Close()

	chain := marketdata.NewProviderChainWithURLs(nil, srv.URL, srv.URL)
	chain.Prices(context.Background())
	chain.Prices(context.Background())
	chain.Prices(context.Background())

	if got := hits.Load(); got != 1 {
		t.Errorf("cached calls should not refetch, upstream saw %d requests", got)
	}
}
