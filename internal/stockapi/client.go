package stockapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	logx "stockmon/pkg/logx"
)

const defaultBaseURL = "https://card.10010.com/mall-order/qryStock/v2"

const defaultTimeout = 10 * time.Second

// Config configures the stock API client.
type Config struct {
	// BaseURL overrides the query endpoint. Tests point this at a local server.
	BaseURL  string
	CityCode string
	// Timeout bounds one fetch end-to-end. Default 10s.
	Timeout time.Duration
}

// Variant is one model/color combination of a product.
type Variant struct {
	Model string
	Color string
	Stock int
	Price string
}

// Reading is the result of one fetch for one product.
//
// TotalStock sums the variant counts. It is 0 both when the API confirms
// zero stock and when it returns no usable data; the remote cannot tell
// those apart, so neither can we.
type Reading struct {
	ProductID  string
	TotalStock int
	Variants   []Variant
}

// FetchError marks transport, timeout, and decode failures against the
// remote API. Callers treat it as "no new information": it must never be
// recorded as a genuine zero-stock observation.
type FetchError struct {
	ProductID string
	Cause     string
	Err       error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.ProductID, e.Cause, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.ProductID, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client queries the remote stock endpoint. The remote is untrusted: slow,
// sometimes malformed, and its "no data" response is indistinguishable from
// a confirmed stock-out.
type Client struct {
	baseURL  string
	cityCode string
	http     *http.Client
	log      logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  base,
		cityCode: cfg.CityCode,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// envelope mirrors the remote response shape; only the fields we read.
type envelope struct {
	Code string `json:"code"`
	Data *struct {
		BareMetal *struct {
			ModelsList []wireModel `json:"modelsList"`
		} `json:"bareMetal"`
	} `json:"data"`
}

type wireModel struct {
	// Both count fields may be absent or null; either means zero.
	ArticleAmount    *int   `json:"articleAmount"`
	ArticleAmountNew *int   `json:"articleAmountNew"`
	ModelDesc        string `json:"MODEL_DESC"`
	ColorDesc        string `json:"COLOR_DESC"`
	TermPrice        any    `json:"TERM_PRICE"`
}

// Fetch issues one stock query for a product.
//
// A degraded response (bad status code field, missing data, empty model
// list) is a Reading with TotalStock 0, not an error. Only transport and
// decode failures return a *FetchError.
func (c *Client) Fetch(ctx context.Context, productID string) (*Reading, error) {
	q := url.Values{}
	q.Set("goodsId", productID)
	q.Set("cityCode", c.cityCode)
	q.Set("isUni", "")
	reqURL := c.baseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{ProductID: productID, Cause: "build request", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{ProductID: productID, Cause: "http get", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{ProductID: productID, Cause: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &FetchError{ProductID: productID, Cause: "decode response", Err: err}
	}

	r := &Reading{ProductID: productID}
	if env.Code != "0000" || env.Data == nil || env.Data.BareMetal == nil {
		c.log.Debug("no stock data in response",
			logx.String("product", productID), logx.String("code", env.Code))
		return r, nil
	}

	for _, m := range env.Data.BareMetal.ModelsList {
		stock := intOrZero(m.ArticleAmount) + intOrZero(m.ArticleAmountNew)
		r.Variants = append(r.Variants, Variant{
			Model: m.ModelDesc,
			Color: m.ColorDesc,
			Stock: stock,
			Price: priceString(m.TermPrice),
		})
		r.TotalStock += stock
	}
	return r, nil
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// priceString renders TERM_PRICE, which the remote serves as either a
// number or a string depending on the listing.
func priceString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}
