// Package number allocates invoice sequence numbers.
package number

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	invoicedomain "github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/domain"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Allocator struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAllocator(p Params) invoicedomain.Allocator {
	return &Allocator{
		db:  p.DB,
		log: p.Log.Named("invoice.number"),
	}
}

// Allocate reserves the next sequence value for year. The counter row is
// created lazily, so the first invoice of a year gets sequence 1 with no
// provisioning step. The increment and read run in one transaction, which
// keeps the sequence gap-free under concurrent allocation.
func (a *Allocator) Allocate(ctx context.Context, year int) (int64, error) {
	if year < 2000 || year > 9999 {
		return 0, invoicedomain.ErrInvalidYear
	}

	var counter invoicedomain.InvoiceCounter
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := invoicedomain.InvoiceCounter{Year: year}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}
		if err := tx.Model(&invoicedomain.InvoiceCounter{}).
			Where("year = ?", year).
			UpdateColumn("value", gorm.Expr("value + ?", 1)).Error; err != nil {
			return err
		}
		return tx.Where("year = ?", year).Take(&counter).Error
	})
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}
