// Package migration applies the schema on startup.
package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/audit/domain"
	clientdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/client/domain"
	invoicedomain "github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/domain"
	operatordomain "github.com/D-Honoured1/Kamisoft-sub002/internal/operator/domain"
	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	requestdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/domain"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

func Run(db *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")

	err := db.AutoMigrate(
		&clientdomain.Client{},
		&requestdomain.ServiceRequest{},
		&paymentdomain.Payment{},
		&paymentdomain.TransitionRecord{},
		&paymentdomain.EventRecord{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&invoicedomain.InvoiceCounter{},
		&operatordomain.Operator{},
		&operatordomain.Session{},
		&auditdomain.AuditLog{},
	)
	if err != nil {
		log.Error("schema migration failed", zap.Error(err))
		return err
	}

	log.Info("schema migration complete")
	return nil
}
