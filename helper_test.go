package cryptofolio

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// stubResponse is a canned HTTP answer keyed by a URL substring.
type stubResponse struct {
	status int
	body   string
}

// stubDoer answers requests from canned responses and records every URL it
// saw. Unmatched URLs get a 404.
type stubDoer struct {
	mu        sync.Mutex
	responses map[string]stubResponse // keyed by URL substring
	urls      []string
}

func newStubDoer() *stubDoer { return &stubDoer{responses: make(map[string]stubResponse)} }

func (s *stubDoer) on(urlPart, body string) { s.onStatus(urlPart, http.StatusOK, body) }

func (s *stubDoer) onStatus(urlPart string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[urlPart] = stubResponse{status: status, body: body}
}

func (s *stubDoer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, req.URL.String())
	for part, r := range s.responses {
		if strings.Contains(req.URL.String(), part) {
			return &http.Response{
				StatusCode: r.status,
				Status:     http.StatusText(r.status),
				Body:       io.NopCloser(strings.NewReader(r.body)),
				Header:     make(http.Header),
				Request:    req,
			}, nil
		}
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Status:     http.StatusText(http.StatusNotFound),
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// memStore is an in-memory DocumentStore for tests.
type memStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemStore() *memStore { return &memStore{docs: make(map[string][]byte)} }

func (s *memStore) Get(name string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[name]
	return data, ok, nil
}

func (s *memStore) Put(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, name)
	return nil
}

// d is a helper for tests to build decimals from literals.
func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ms is a helper for tests to build a UTC midnight timestamp.
func ms(year int, month time.Month, day int) int64 {
	return NewDate(year, month, day).Time().UnixMilli()
}

// buy is a helper for tests: an acquisition of amount coin worth valueEUR.
func buy(coin, amount, valueEUR string, when int64) Transaction {
	return Transaction{
		Source:    "test",
		SourceID:  "buy-" + coin + "-" + amount + "-" + valueEUR,
		Timestamp: when,
		Type:      TxDeposit,
		CoinIn:    coin,
		AmountIn:  d(amount),
		ValueEUR:  d(valueEUR),
	}
}

// sell is a helper for tests: a disposal of amount coin for valueEUR proceeds.
func sell(coin, amount, valueEUR string, when int64) Transaction {
	return Transaction{
		Source:    "test",
		SourceID:  "sell-" + coin + "-" + amount + "-" + valueEUR,
		Timestamp: when,
		Type:      TxWithdrawal,
		CoinOut:   coin,
		AmountOut: d(amount),
		ValueEUR:  d(valueEUR),
	}
}
