package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

const dailyXML = `<?xml version="1.0" encoding="windows-1251"?>
<ValCurs Date="17.10.2026" name="Foreign Currency Market">
<Valute ID="R01235"><NumCode>840</NumCode><CharCode>USD</CharCode><Nominal>1</Nominal><Name>Доллар США</Name><Value>90,0000</Value><VunitRate>90</VunitRate></Valute>
<Valute ID="R01820"><NumCode>392</NumCode><CharCode>JPY</CharCode><Nominal>100</Nominal><Name>Японских иен</Name><Value>60,5000</Value></Valute>
</ValCurs>`

func encode1251(t *testing.T, s string) string {
	t.Helper()
	out, err := charmap.Windows1251.NewEncoder().String(s)
	require.NoError(t, err)
	return out
}

func TestParseCBR(t *testing.T) {
	table, err := ParseCBR(strings.NewReader(encode1251(t, dailyXML)))
	require.NoError(t, err)

	require.Contains(t, table, "USD")
	assert.True(t, table["USD"].Equal(decimal.NewFromInt(90)))

	// no VunitRate: Value is per Nominal units
	require.Contains(t, table, "JPY")
	assert.True(t, table["JPY"].Equal(decimal.RequireFromString("0.605")), table["JPY"].String())
}

func TestParseCBRRejectsGarbage(t *testing.T) {
	_, err := ParseCBR(strings.NewReader("<html>maintenance</html>"))
	assert.Error(t, err)
}

func TestCBRClientFetchTable(t *testing.T) {
	body := encode1251(t, dailyXML)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml; charset=windows-1251")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewCBRClient(srv.URL, time.Second, zap.NewNop())
	table, err := c.FetchTable(context.Background())
	require.NoError(t, err)
	assert.Len(t, table, 2)
}

func TestCBRClientReportsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewCBRClient(srv.URL, time.Second, zap.NewNop())
	_, err := c.FetchTable(context.Background())
	assert.Error(t, err)
}

func TestCBRClientTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewCBRClient(srv.URL, 50*time.Millisecond, zap.NewNop())
	_, err := c.FetchTable(context.Background())
	assert.Error(t, err)
}
