package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finrelay/gateway/provider"
)

// toolHandler invokes the router for one tool, given raw JSON arguments.
type toolHandler func(ctx context.Context, router Dispatcher, args json.RawMessage) (string, error)

// Dispatcher is the subset of *router.Router the rpc layer depends on,
// kept narrow so tests can substitute a fake.
type Dispatcher interface {
	GetHistoricalPrices(ctx context.Context, args provider.HistoricalPricesArgs) (string, error)
	GetStockInfo(ctx context.Context, args provider.StockInfoArgs) (string, error)
	GetNews(ctx context.Context, args provider.NewsArgs) (string, error)
	GetMarketNews(ctx context.Context, args provider.MarketNewsArgs) (string, error)
	GetStockActions(ctx context.Context, args provider.StockActionsArgs) (string, error)
	GetFinancialStatement(ctx context.Context, args provider.FinancialStatementArgs) (string, error)
	GetHolderInfo(ctx context.Context, args provider.HolderInfoArgs) (string, error)
	GetOptionExpirationDates(ctx context.Context, args provider.OptionExpirationsArgs) (string, error)
	GetOptionChain(ctx context.Context, args provider.OptionChainArgs) (string, error)
	GetRecommendations(ctx context.Context, args provider.RecommendationsArgs) (string, error)
}

var financialTypes = map[string]bool{
	"income_stmt": true, "quarterly_income_stmt": true,
	"balance_sheet": true, "quarterly_balance_sheet": true,
	"cashflow": true, "quarterly_cashflow": true,
}

var holderTypes = map[string]bool{
	"major_holders": true, "institutional_holders": true, "mutualfund_holders": true,
	"insider_transactions": true, "insider_purchases": true, "insider_roster_holders": true,
}

var optionTypes = map[string]bool{"calls": true, "puts": true}

var recommendationTypes = map[string]bool{"recommendations": true, "upgrades_downgrades": true}

func enumSchema(values map[string]bool) []interface{} {
	out := make([]interface{}, 0, len(values))
	for v := range values {
		out = append(out, v)
	}
	return out
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

// toolRegistry is the closed tool surface: name -> (schema, handler).
var toolRegistry = buildToolRegistry()

type toolEntry struct {
	def     toolDefinition
	handler toolHandler
}

func buildToolRegistry() map[string]toolEntry {
	reg := make(map[string]toolEntry, 10)

	reg["get_historical_stock_prices"] = toolEntry{
		def: toolDefinition{
			Name:        "get_historical_stock_prices",
			Description: "Get historical OHLCV prices for a ticker.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ticker":   stringProp("Ticker symbol"),
					"period":   stringProp(`History span, default "1mo"`),
					"interval": stringProp(`Bar interval, default "1d"`),
				},
				"required": []interface{}{"ticker"},
			},
		},
		handler: func(ctx context.Context, r Dispatcher, raw json.RawMessage) (string, error) {
			var a struct {
				Ticker   string `json:"ticker"`
				Period   string `json:"period"`
				Interval string `json:"interval"`
			}
			if err := decodeArgs(raw, &a); err != nil {
				return "", err
			}
			if a.Ticker == "" {
				return "", missingArg("ticker")
			}
			if a.Period == "" {
				a.Period = "1mo"
			}
			if a.Interval == "" {
				a.Interval = "1d"
			}
			return r.GetHistoricalPrices(ctx, provider.HistoricalPricesArgs{Ticker: a.Ticker, Period: a.Period, Interval: a.Interval})
		},
	}

	reg["get_stock_info"] = toolEntry{
		def: toolDefinition{
			Name:        "get_stock_info",
			Description: "Get company/profile info for a ticker.",
			InputSchema: objectSchema("ticker"),
		},
		handler: func(ctx context.Context, r Dispatcher, raw json.RawMessage) (string, error) {
			a, err := decodeTicker(raw)
			if err != nil {
				return "", err
			}
			return r.GetStockInfo(ctx, provider.StockInfoArgs{Ticker: a})
		},
	}

	reg["get_yahoo_finance_news"] = toolEntry{
		def: toolDefinition{
			Name:        "get_yahoo_finance_news",
			Description: "Get recent news for a ticker.",
			InputSchema: objectSchema("ticker"),
		},
		handler: func(ctx context.Context, r Dispatcher, raw json.RawMessage) (string, error) {
			a, err := decodeTicker(raw)
			if err != nil {
				return "", err
			}
			return r.GetNews(ctx, provider.NewsArgs{Ticker: a})
		},
	}

	reg["get_market_news"] = toolEntry{
		def: toolDefinition{
			Name:        "get_market_news",
			Description: "Get general market news, no ticker required.",
			InputSchema: map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
		},
		handler: func(ctx context.Context, r Dispatcher, raw json.RawMessage) (string, error) {
			return r.GetMarketNews(ctx, provider.MarketNewsArgs{})
		},
	}

	reg["get_stock_actions"] = toolEntry{
		def: toolDefinition{
			Name:        "get_stock_actions",
			Description: "Get dividend/split history for a ticker.",
			InputSchema: objectSchema("ticker"),
		},
		handler: func(ctx context.Context, r Dispatcher, raw json.RawMessage) (string, error) {
			a, err := decodeTicker(raw)
			if err != nil {
				return "", err
			}
			return r.GetStockActions(ctx, provider.StockActionsArgs{Ticker: a})
		},
	}

	reg["get_financial_statement"] = toolEntry{
		def: toolDefinition{
			Name:        "get_financial_statement",
			Description: "Get a financial statement for a ticker.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ticker":         stringProp("Ticker symbol"),
					"financial_type": map[string]interface{}{"type": "string", "enum": enumSchema(financialTypes)},
				},
				"required": []interface{}{"ticker", "financial_type"},
			},
		},
		handler: func(ctx context.Context, r Dispatcher, raw json.RawMessage) (string, error) {
			var a struct {
				Ticker        string `json:"ticker"`
				FinancialType string `json:"financial_type"`
			}
			if err := decodeArgs(raw, &a); err != nil {
				return "", err
			}
			if a.Ticker == "" {
				return "", missingArg("ticker")
			}
			if !financialTypes[a.FinancialType] {
				return "", fmt.Errorf("invalid financial_type: %q", a.FinancialType)
			}
			return r.GetFinancialStatement(ctx, provider.FinancialStatementArgs{Ticker: a.Ticker, FinancialType: a.FinancialType})
		},
	}

	reg["get_holder_info"] = toolEntry{
		def: toolDefinition{
			Name:        "get_holder_info",
			Description: "Get holder information for a ticker.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ticker":      stringProp("Ticker symbol"),
					"holder_type": map[string]interface{}{"type": "string", "enum": enumSchema(holderTypes)},
				},
				"required": []interface{}{"ticker", "holder_type"},
			},
		},
		handler: func(ctx context.Context, r Dispatcher, raw json.RawMessage) (string, error) {
			var a struct {
				Ticker     string `json:"ticker"`
				HolderType string `json:"holder_type"`
			}
			if err := decodeArgs(raw, &a); err != nil {
				return "", err
			}
			if a.Ticker == "" {
				return "", missingArg("ticker")
			}
			if !holderTypes[a.HolderType] {
				return "", fmt.Errorf("invalid holder_type: %q", a.HolderType)
			}
			return r.GetHolderInfo(ctx, provider.HolderInfoArgs{Ticker: a.Ticker, HolderType: a.HolderType})
		},
	}

	reg["get_option_expiration_dates"] = toolEntry{
		def: toolDefinition{
			Name:        "get_option_expiration_dates",
			Description: "Get available option expiration dates for a ticker.",
			InputSchema: objectSchema("ticker"),
		},
		handler: func(ctx context.Context, r Dispatcher, raw json.RawMessage) (string, error) {
			a, err := decodeTicker(raw)
			if err != nil {
				return "", err
			}
			return r.GetOptionExpirationDates(ctx, provider.OptionExpirationsArgs{Ticker: a})
		},
	}

	reg["get_option_chain"] = toolEntry{
		def: toolDefinition{
			Name:        "get_option_chain",
			Description: "Get the option chain for a ticker, expiration, and side.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ticker":          stringProp("Ticker symbol"),
					"expiration_date": stringProp("YYYY-MM-DD"),
					"option_type":     map[string]interface{}{"type": "string", "enum": enumSchema(optionTypes)},
				},
				"required": []interface{}{"ticker", "expiration_date", "option_type"},
			},
		},
		handler: func(ctx context.Context, r Dispatcher, raw json.RawMessage) (string, error) {
			var a struct {
				Ticker         string `json:"ticker"`
				ExpirationDate string `json:"expiration_date"`
				OptionType     string `json:"option_type"`
			}
			if err := decodeArgs(raw, &a); err != nil {
				return "", err
			}
			if a.Ticker == "" {
				return "", missingArg("ticker")
			}
			if a.ExpirationDate == "" {
				return "", missingArg("expiration_date")
			}
			if !optionTypes[a.OptionType] {
				return "", fmt.Errorf("invalid option_type: %q", a.OptionType)
			}
			return r.GetOptionChain(ctx, provider.OptionChainArgs{Ticker: a.Ticker, ExpirationDate: a.ExpirationDate, OptionType: a.OptionType})
		},
	}

	reg["get_recommendations"] = toolEntry{
		def: toolDefinition{
			Name:        "get_recommendations",
			Description: "Get analyst recommendations or upgrades/downgrades for a ticker.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ticker":              stringProp("Ticker symbol"),
					"recommendation_type": map[string]interface{}{"type": "string", "enum": enumSchema(recommendationTypes)},
					"months_back":         map[string]interface{}{"type": "integer", "description": "default 12"},
				},
				"required": []interface{}{"ticker", "recommendation_type"},
			},
		},
		handler: func(ctx context.Context, r Dispatcher, raw json.RawMessage) (string, error) {
			var a struct {
				Ticker             string `json:"ticker"`
				RecommendationType string `json:"recommendation_type"`
				MonthsBack         *int   `json:"months_back"`
			}
			if err := decodeArgs(raw, &a); err != nil {
				return "", err
			}
			if a.Ticker == "" {
				return "", missingArg("ticker")
			}
			if !recommendationTypes[a.RecommendationType] {
				return "", fmt.Errorf("invalid recommendation_type: %q", a.RecommendationType)
			}
			monthsBack := 12
			if a.MonthsBack != nil {
				monthsBack = *a.MonthsBack
			}
			return r.GetRecommendations(ctx, provider.RecommendationsArgs{Ticker: a.Ticker, RecommendationType: a.RecommendationType, MonthsBack: monthsBack})
		},
	}

	return reg
}

func objectSchema(required ...string) map[string]interface{} {
	props := make(map[string]interface{}, len(required))
	reqs := make([]interface{}, 0, len(required))
	for _, name := range required {
		props[name] = stringProp("Ticker symbol")
		reqs = append(reqs, name)
	}
	return map[string]interface{}{"type": "object", "properties": props, "required": reqs}
}

func decodeArgs(raw json.RawMessage, dest interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func decodeTicker(raw json.RawMessage) (string, error) {
	var a struct {
		Ticker string `json:"ticker"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return "", err
	}
	if a.Ticker == "" {
		return "", missingArg("ticker")
	}
	return a.Ticker, nil
}

func missingArg(name string) error {
	return fmt.Errorf("missing required argument: %s", name)
}

// toolDefinitions returns the closed tool list for tools/list, in a
// stable order matching the §6 surface table.
func toolDefinitions() []toolDefinition {
	order := []string{
		"get_historical_stock_prices", "get_stock_info", "get_yahoo_finance_news",
		"get_market_news", "get_stock_actions", "get_financial_statement",
		"get_holder_info", "get_option_expiration_dates", "get_option_chain",
		"get_recommendations",
	}
	defs := make([]toolDefinition, 0, len(order))
	for _, name := range order {
		defs = append(defs, toolRegistry[name].def)
	}
	return defs
}
