package router

import (
	"context"

	"github.com/finrelay/gateway/provider"
)

// GetHistoricalPrices routes a HistoricalPrices request.
func (r *Router) GetHistoricalPrices(ctx context.Context, args provider.HistoricalPricesArgs) (string, error) {
	return r.route(ctx, provider.HistoricalPrices, func(ctx context.Context, a provider.Adapter) (string, error) {
		return a.GetHistoricalPrices(ctx, args)
	})
}

// GetStockInfo routes a StockInfo request.
func (r *Router) GetStockInfo(ctx context.Context, args provider.StockInfoArgs) (string, error) {
	return r.route(ctx, provider.StockInfo, func(ctx context.Context, a provider.Adapter) (string, error) {
		return a.GetStockInfo(ctx, args)
	})
}

// GetNews routes a per-ticker News request.
func (r *Router) GetNews(ctx context.Context, args provider.NewsArgs) (string, error) {
	return r.route(ctx, provider.News, func(ctx context.Context, a provider.Adapter) (string, error) {
		return a.GetNews(ctx, args)
	})
}

// GetMarketNews routes a MarketNews request.
func (r *Router) GetMarketNews(ctx context.Context, args provider.MarketNewsArgs) (string, error) {
	return r.route(ctx, provider.MarketNews, func(ctx context.Context, a provider.Adapter) (string, error) {
		return a.GetMarketNews(ctx, args)
	})
}

// GetStockActions routes a StockActions request.
func (r *Router) GetStockActions(ctx context.Context, args provider.StockActionsArgs) (string, error) {
	return r.route(ctx, provider.StockActions, func(ctx context.Context, a provider.Adapter) (string, error) {
		return a.GetStockActions(ctx, args)
	})
}

// GetFinancialStatement routes a FinancialStatement request.
func (r *Router) GetFinancialStatement(ctx context.Context, args provider.FinancialStatementArgs) (string, error) {
	return r.route(ctx, provider.FinancialStatement, func(ctx context.Context, a provider.Adapter) (string, error) {
		return a.GetFinancialStatement(ctx, args)
	})
}

// GetHolderInfo routes a HolderInfo request.
func (r *Router) GetHolderInfo(ctx context.Context, args provider.HolderInfoArgs) (string, error) {
	return r.route(ctx, provider.HolderInfo, func(ctx context.Context, a provider.Adapter) (string, error) {
		return a.GetHolderInfo(ctx, args)
	})
}

// GetOptionExpirationDates routes an OptionExpirationDates request.
func (r *Router) GetOptionExpirationDates(ctx context.Context, args provider.OptionExpirationsArgs) (string, error) {
	return r.route(ctx, provider.OptionExpirations, func(ctx context.Context, a provider.Adapter) (string, error) {
		return a.GetOptionExpirationDates(ctx, args)
	})
}

// GetOptionChain routes an OptionChain request.
func (r *Router) GetOptionChain(ctx context.Context, args provider.OptionChainArgs) (string, error) {
	return r.route(ctx, provider.OptionChain, func(ctx context.Context, a provider.Adapter) (string, error) {
		return a.GetOptionChain(ctx, args)
	})
}

// GetRecommendations routes a Recommendations request.
func (r *Router) GetRecommendations(ctx context.Context, args provider.RecommendationsArgs) (string, error) {
	return r.route(ctx, provider.Recommendations, func(ctx context.Context, a provider.Adapter) (string, error) {
		return a.GetRecommendations(ctx, args)
	})
}
