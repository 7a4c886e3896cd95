package scheduler

import (
	"context"

	"github.com/kjannette/vitanova-gold/internal/models"
)

// FetchNow runs one fetch outside the schedule.
func (p *PricePoller) FetchNow(ctx context.Context) (*models.Quote, error) {
	return p.fetch(ctx)
}
