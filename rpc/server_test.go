package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrelay/gateway/provider"
)

type fakeDispatcher struct {
	stockInfo    func(ctx context.Context, a provider.StockInfoArgs) (string, error)
	historical   func(ctx context.Context, a provider.HistoricalPricesArgs) (string, error)
	marketNews   func(ctx context.Context, a provider.MarketNewsArgs) (string, error)
	recommend    func(ctx context.Context, a provider.RecommendationsArgs) (string, error)
}

func (f *fakeDispatcher) GetHistoricalPrices(ctx context.Context, a provider.HistoricalPricesArgs) (string, error) {
	if f.historical != nil {
		return f.historical(ctx, a)
	}
	return "ok", nil
}
func (f *fakeDispatcher) GetStockInfo(ctx context.Context, a provider.StockInfoArgs) (string, error) {
	if f.stockInfo != nil {
		return f.stockInfo(ctx, a)
	}
	return "ok", nil
}
func (f *fakeDispatcher) GetNews(ctx context.Context, a provider.NewsArgs) (string, error) { return "ok", nil }
func (f *fakeDispatcher) GetMarketNews(ctx context.Context, a provider.MarketNewsArgs) (string, error) {
	if f.marketNews != nil {
		return f.marketNews(ctx, a)
	}
	return "ok", nil
}
func (f *fakeDispatcher) GetStockActions(ctx context.Context, a provider.StockActionsArgs) (string, error) {
	return "ok", nil
}
func (f *fakeDispatcher) GetFinancialStatement(ctx context.Context, a provider.FinancialStatementArgs) (string, error) {
	return "ok", nil
}
func (f *fakeDispatcher) GetHolderInfo(ctx context.Context, a provider.HolderInfoArgs) (string, error) {
	return "ok", nil
}
func (f *fakeDispatcher) GetOptionExpirationDates(ctx context.Context, a provider.OptionExpirationsArgs) (string, error) {
	return "ok", nil
}
func (f *fakeDispatcher) GetOptionChain(ctx context.Context, a provider.OptionChainArgs) (string, error) {
	return "ok", nil
}
func (f *fakeDispatcher) GetRecommendations(ctx context.Context, a provider.RecommendationsArgs) (string, error) {
	if f.recommend != nil {
		return f.recommend(ctx, a)
	}
	return "ok", nil
}

func runLine(t *testing.T, srv *Server, line string) response {
	t.Helper()
	var out bytes.Buffer
	srv.out = &out
	err := srv.Run(context.Background(), strings.NewReader(line+"\n"))
	require.NoError(t, err)

	var resp response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	return resp
}

func TestInitialize_ReturnsProtocolVersion(t *testing.T) {
	srv := NewServer(&fakeDispatcher{}, nil, nil, "gateway", "v1")
	resp := runLine(t, srv, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result initializeResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, "2024-11-05", result.ProtocolVersion)
	assert.Equal(t, "gateway", result.ServerInfo.Name)
}

func TestToolsList_ReturnsTenTools(t *testing.T) {
	srv := NewServer(&fakeDispatcher{}, nil, nil, "gateway", "v1")
	resp := runLine(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, resp.Error)

	raw, _ := json.Marshal(resp.Result)
	var result toolsListResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Len(t, result.Tools, 10)
}

func TestToolsCall_SuccessReturnsTextContent(t *testing.T) {
	srv := NewServer(&fakeDispatcher{stockInfo: func(ctx context.Context, a provider.StockInfoArgs) (string, error) {
		return "AAPL info", nil
	}}, nil, nil, "gateway", "v1")

	resp := runLine(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_stock_info","arguments":{"ticker":"AAPL"}}}`)
	require.Nil(t, resp.Error)

	raw, _ := json.Marshal(resp.Result)
	var result toolCallResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "AAPL info", result.Content[0].Text)
}

func TestToolsCall_MissingRequiredArgumentIsInternalError(t *testing.T) {
	srv := NewServer(&fakeDispatcher{}, nil, nil, "gateway", "v1")
	resp := runLine(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_stock_info","arguments":{}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, internalErrorCode, resp.Error.Code)
}

func TestToolsCall_UnknownToolIsInternalError(t *testing.T) {
	srv := NewServer(&fakeDispatcher{}, nil, nil, "gateway", "v1")
	resp := runLine(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"not_a_tool","arguments":{}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, internalErrorCode, resp.Error.Code)
}

func TestToolsCall_DownstreamFailureIsInternalError(t *testing.T) {
	srv := NewServer(&fakeDispatcher{stockInfo: func(ctx context.Context, a provider.StockInfoArgs) (string, error) {
		return "", errors.New("boom")
	}}, nil, nil, "gateway", "v1")

	resp := runLine(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_stock_info","arguments":{"ticker":"AAPL"}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, internalErrorCode, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "boom")
}

func TestUnknownMethod_IsInternalError(t *testing.T) {
	srv := NewServer(&fakeDispatcher{}, nil, nil, "gateway", "v1")
	resp := runLine(t, srv, `{"jsonrpc":"2.0","id":1,"method":"does/not/exist"}`)
	require.NotNil(t, resp.Error)
}

func TestMalformedLine_IsInternalErrorNotCrash(t *testing.T) {
	srv := NewServer(&fakeDispatcher{}, nil, nil, "gateway", "v1")
	resp := runLine(t, srv, `not json at all`)
	require.NotNil(t, resp.Error)
}

func TestHistoricalPrices_AppliesDefaults(t *testing.T) {
	var captured provider.HistoricalPricesArgs
	srv := NewServer(&fakeDispatcher{historical: func(ctx context.Context, a provider.HistoricalPricesArgs) (string, error) {
		captured = a
		return "ok", nil
	}}, nil, nil, "gateway", "v1")

	resp := runLine(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_historical_stock_prices","arguments":{"ticker":"AAPL"}}}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, "1mo", captured.Period)
	assert.Equal(t, "1d", captured.Interval)
}

func TestRecommendations_DefaultsMonthsBackTo12(t *testing.T) {
	var captured provider.RecommendationsArgs
	srv := NewServer(&fakeDispatcher{recommend: func(ctx context.Context, a provider.RecommendationsArgs) (string, error) {
		captured = a
		return "ok", nil
	}}, nil, nil, "gateway", "v1")

	resp := runLine(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_recommendations","arguments":{"ticker":"AAPL","recommendation_type":"recommendations"}}}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, 12, captured.MonthsBack)
}

func TestMarketNews_NoArgumentsRequired(t *testing.T) {
	srv := NewServer(&fakeDispatcher{}, nil, nil, "gateway", "v1")
	resp := runLine(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_market_news"}}`)
	require.Nil(t, resp.Error)
}

func TestRun_MultipleLinesEachGetAResponse(t *testing.T) {
	srv := NewServer(&fakeDispatcher{}, nil, nil, "gateway", "v1")
	var out bytes.Buffer
	srv.out = &out
	in := `{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n" + `{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"
	err := srv.Run(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)
}
