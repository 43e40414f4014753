package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vitos/options_flow/internal/domain"
)

const (
	YahooBaseURL = "https://query1.finance.yahoo.com"

	// The chain endpoint lists every expiration; fetching them all is
	// slow and the far-dated ones carry almost no volume.
	maxExpirations = 6

	quoteCacheTTL = 15 * time.Second
)

type cachedQuote struct {
	price  float64
	expiry time.Time
}

// YahooAdapter implements domain.MarketData against the public Yahoo
// Finance JSON endpoints.
type YahooAdapter struct {
	baseURL string
	client  *http.Client

	mu         sync.Mutex
	quoteCache map[string]cachedQuote
}

func NewYahooAdapter(baseURL string) *YahooAdapter {
	if baseURL == "" {
		baseURL = YahooBaseURL
	}
	return &YahooAdapter{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		quoteCache: make(map[string]cachedQuote),
	}
}

func (y *YahooAdapter) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (options_flow)")

	resp, err := y.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, out)
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooAdapter) GetQuote(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)

	y.mu.Lock()
	if cached, ok := y.quoteCache[symbol]; ok && time.Now().Before(cached.expiry) {
		y.mu.Unlock()
		return cached.price, nil
	}
	y.mu.Unlock()

	var resp chartResponse
	path := fmt.Sprintf("/v8/finance/chart/%s?range=1d&interval=1d", symbol)
	if err := y.get(ctx, path, &resp); err != nil {
		return 0, err
	}
	if resp.Chart.Error != nil {
		return 0, fmt.Errorf("quote %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return 0, fmt.Errorf("quote %s: empty result", symbol)
	}

	price := resp.Chart.Result[0].Meta.RegularMarketPrice
	y.mu.Lock()
	y.quoteCache[symbol] = cachedQuote{price: price, expiry: time.Now().Add(quoteCacheTTL)}
	y.mu.Unlock()

	return price, nil
}

func (y *YahooAdapter) GetDailyBars(ctx context.Context, symbol string, days int) ([]domain.Candle, error) {
	symbol = strings.ToUpper(symbol)

	var resp chartResponse
	path := fmt.Sprintf("/v8/finance/chart/%s?range=%dd&interval=1d", symbol, days)
	if err := y.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("bars %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("bars %s: empty result", symbol)
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]domain.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		bars = append(bars, domain.Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
		})
	}
	return bars, nil
}

type optionQuote struct {
	Strike            float64 `json:"strike"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	LastPrice         float64 `json:"lastPrice"`
	Volume            int64   `json:"volume"`
	OpenInterest      int64   `json:"openInterest"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
}

type optionsResponse struct {
	OptionChain struct {
		Result []struct {
			Quote struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"quote"`
			ExpirationDates []int64 `json:"expirationDates"`
			Options         []struct {
				ExpirationDate int64         `json:"expirationDate"`
				Calls          []optionQuote `json:"calls"`
				Puts           []optionQuote `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

// GetChainSnapshot fetches the option chain for the nearest expirations
// (capped at maxExpirations) and materializes it into one snapshot.
// A symbol with no listed options yields ErrNoOptionsData.
func (y *YahooAdapter) GetChainSnapshot(ctx context.Context, symbol string) (*domain.ChainSnapshot, error) {
	symbol = strings.ToUpper(symbol)

	var first optionsResponse
	if err := y.get(ctx, "/v7/finance/options/"+symbol, &first); err != nil {
		return nil, err
	}
	if first.OptionChain.Error != nil {
		return nil, fmt.Errorf("chain %s: %s", symbol, first.OptionChain.Error.Description)
	}
	if len(first.OptionChain.Result) == 0 || len(first.OptionChain.Result[0].ExpirationDates) == 0 {
		return nil, domain.ErrNoOptionsData
	}

	root := first.OptionChain.Result[0]
	snapshot := &domain.ChainSnapshot{
		Symbol: symbol,
		Spot:   root.Quote.RegularMarketPrice,
		Calls:  make(map[time.Time][]domain.OptionContract),
		Puts:   make(map[time.Time][]domain.OptionContract),
	}

	expirations := root.ExpirationDates
	if len(expirations) > maxExpirations {
		expirations = expirations[:maxExpirations]
	}

	for _, unix := range expirations {
		expiration := time.Unix(unix, 0).UTC()

		var resp optionsResponse
		path := fmt.Sprintf("/v7/finance/options/%s?date=%d", symbol, unix)
		if err := y.get(ctx, path, &resp); err != nil {
			continue
		}
		if resp.OptionChain.Error != nil || len(resp.OptionChain.Result) == 0 ||
			len(resp.OptionChain.Result[0].Options) == 0 {
			continue
		}

		bucket := resp.OptionChain.Result[0].Options[0]
		snapshot.Expirations = append(snapshot.Expirations, expiration)
		snapshot.Calls[expiration] = convertContracts(symbol, expiration, domain.OptionCall, bucket.Calls)
		snapshot.Puts[expiration] = convertContracts(symbol, expiration, domain.OptionPut, bucket.Puts)
	}

	if len(snapshot.Expirations) == 0 {
		return nil, domain.ErrNoOptionsData
	}
	return snapshot, nil
}

func convertContracts(symbol string, expiration time.Time, typ domain.OptionType, quotes []optionQuote) []domain.OptionContract {
	contracts := make([]domain.OptionContract, 0, len(quotes))
	for _, q := range quotes {
		contracts = append(contracts, domain.OptionContract{
			Symbol:            symbol,
			Strike:            q.Strike,
			Expiration:        expiration,
			Type:              typ,
			Bid:               q.Bid,
			Ask:               q.Ask,
			LastPrice:         q.LastPrice,
			Volume:            q.Volume,
			OpenInterest:      q.OpenInterest,
			ImpliedVolatility: q.ImpliedVolatility,
		})
	}
	return contracts
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
