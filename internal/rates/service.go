package rates

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/balance-ledger/internal/interfaces"
)

type Fetcher interface {
	FetchTable(ctx context.Context) (Table, error)
}

type TableCache interface {
	Get(ctx context.Context) (Table, bool, error)
	Set(ctx context.Context, table Table) error
}

// Service answers single-code lookups from a fetched table. The cache is
// optional and its errors only cost a fetch.
type Service struct {
	fetcher Fetcher
	cache   TableCache
	logger  *zap.Logger
}

func NewService(fetcher Fetcher, cache TableCache, logger *zap.Logger) *Service {
	return &Service{fetcher: fetcher, cache: cache, logger: logger}
}

func (s *Service) LookupRate(ctx context.Context, code string) (decimal.Decimal, bool, error) {
	table, err := s.table(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	rate, ok := table[code]
	return rate, ok, nil
}

func (s *Service) table(ctx context.Context) (Table, error) {
	if s.cache != nil {
		table, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("rate cache read failed", zap.Error(err))
		} else if ok {
			return table, nil
		}
	}

	table, err := s.fetcher.FetchTable(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, table); err != nil {
			s.logger.Warn("rate cache write failed", zap.Error(err))
		}
	}
	return table, nil
}

var _ interfaces.RateSource = (*Service)(nil)
