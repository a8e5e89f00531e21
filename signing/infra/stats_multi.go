package infra

import (
	"context"

	"csr-gateway/signing/domain"

	"github.com/hashicorp/go-multierror"
)

type multiStats []domain.StatsStore

// MultiStats repassa cada evento para todos os stores não-nil.
// Um store com erro não impede os demais; os erros voltam agregados.
func MultiStats(stores ...domain.StatsStore) domain.StatsStore {
	out := make(multiStats, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs *multierror.Error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
