package pricing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/shopspring/decimal"
)

// Quote is the last known price of a ticker.
type Quote struct {
	Ticker    string          `json:"ticker"`
	Price     decimal.Decimal `json:"price"`
	Currency  models.Currency `json:"currency"`
	Timestamp time.Time       `json:"timestamp"`
}

// Service quotes tickers in their trading currency: B3 tickers (PETR4,
// HGLG11) in BRL, everything else in USD. Prices are never converted; the
// caller pairs them with positions of the same currency. Valuation and
// corporate-action checks are its only consumers.
type Service interface {
	GetLatestPrice(ctx context.Context, ticker string) (Quote, error)
	GetHistoricalPrice(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, error)
}

// RandomPriceService mocks a market data provider with deterministic
// pseudo-random quotes, cached for ttl.
type RandomPriceService struct {
	mu      sync.Mutex
	cache   map[string]Quote
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewRandomPriceService(ttl time.Duration) *RandomPriceService {
	return &RandomPriceService{
		cache:   make(map[string]Quote),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (s *RandomPriceService) GetLatestPrice(ctx context.Context, ticker string) (Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return Quote{}, fmt.Errorf("empty ticker")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	if quote, ok := s.cache[ticker]; ok && now.Sub(quote.Timestamp) < s.ttl {
		return quote, nil
	}
	cur := currencyOf(ticker)
	quote := Quote{Ticker: ticker, Price: quotePrice(ticker, cur, now.UTC().Format("2006-01-02T15")), Currency: cur, Timestamp: now}
	s.cache[ticker] = quote
	return quote, nil
}

// GetHistoricalPrice is the closing quote of day; it never changes.
func (s *RandomPriceService) GetHistoricalPrice(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return decimal.Zero, fmt.Errorf("empty ticker")
	}
	return quotePrice(ticker, currencyOf(ticker), models.Day(day).Format(models.DateLayout)), nil
}

// priceBand is the [min, min+span) range quotes are drawn from.
type priceBand struct{ min, span float64 }

var bands = map[models.Currency]priceBand{
	models.BRL: {min: 5, span: 145},  // most B3 equities and FIIs
	models.USD: {min: 10, span: 490}, // US listings held through foreign brokers
}

// quotePrice is deterministic in (ticker, period) so repeated lookups agree.
func quotePrice(ticker string, cur models.Currency, period string) decimal.Decimal {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker + "|" + period))
	r := rand.New(rand.NewSource(int64(h.Sum64())))
	b := bands[cur]
	return money.Monetary(decimal.NewFromFloat(b.min + r.Float64()*b.span))
}

// B3 tickers end in a digit (PETR4, HGLG11); anything else is priced in USD.
func currencyOf(ticker string) models.Currency {
	if ticker != "" && ticker[len(ticker)-1] >= '0' && ticker[len(ticker)-1] <= '9' {
		return models.BRL
	}
	return models.USD
}
