// Package rates looks up exchange rates against the home currency.
package rates

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// DefaultCBRURL is the Central Bank of Russia daily rates feed.
const DefaultCBRURL = "http://www.cbr.ru/scripts/XML_daily.asp"

// Table maps a 3-letter code to the price of one unit in the home currency.
type Table map[string]decimal.Decimal

type valCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	CharCode  string `xml:"CharCode"`
	Nominal   string `xml:"Nominal"`
	Value     string `xml:"Value"`
	VunitRate string `xml:"VunitRate"`
}

// CBRClient fetches the daily rate table over HTTP.
type CBRClient struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewCBRClient(url string, timeout time.Duration, logger *zap.Logger) *CBRClient {
	if url == "" {
		url = DefaultCBRURL
	}
	return &CBRClient{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *CBRClient) FetchTable(ctx context.Context) (Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rates: unexpected status %s", resp.Status)
	}

	table, err := ParseCBR(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched rate table", zap.Int("currencies", len(table)))
	return table, nil
}

// ParseCBR decodes the windows-1251 XML feed. Values use a comma as the
// decimal separator and are quoted per Nominal units.
func ParseCBR(r io.Reader) (Table, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var doc valCurs
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}

	table := make(Table, len(doc.Valutes))
	for _, v := range doc.Valutes {
		code := strings.ToUpper(strings.TrimSpace(v.CharCode))
		if code == "" {
			continue
		}
		rate, err := unitRate(v)
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		table[code] = rate
	}
	return table, nil
}

func unitRate(v valute) (decimal.Decimal, error) {
	if v.VunitRate != "" {
		return parseCommaDecimal(v.VunitRate)
	}
	value, err := parseCommaDecimal(v.Value)
	if err != nil {
		return decimal.Zero, err
	}
	nominal := decimal.NewFromInt(1)
	if strings.TrimSpace(v.Nominal) != "" {
		if nominal, err = parseCommaDecimal(v.Nominal); err != nil {
			return decimal.Zero, err
		}
	}
	if !nominal.IsPositive() {
		return decimal.Zero, fmt.Errorf("bad nominal %s", v.Nominal)
	}
	return value.Div(nominal), nil
}

func parseCommaDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "utf-8", "utf8":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", label)
}
