package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/pulselabs/pulse/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createNotifications(),
		createDeliveryAttempts(),
		createTemplates(),
	})

	return m.Migrate()
}

func createNotifications() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_notifications",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationModel{}); err != nil {
				return err
			}
			indexes := []string{
				// The unique partial index is what makes createOrGet a
				// single atomic insert-if-absent under concurrency.
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_idempotency_key ON notifications (idempotency_key) WHERE idempotency_key IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_status_channel_created ON notifications (status, channel, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_retry ON notifications (next_retry_at) WHERE status = 'RETRYING'`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_scheduled ON notifications (scheduled_at) WHERE status = 'PENDING'`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationModel{})
		},
	}
}

func createDeliveryAttempts() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_delivery_attempts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeliveryAttemptModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_attempts_notification_id ON delivery_attempts (notification_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
		},
	}
}

func createTemplates() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_templates",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.TemplateModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.TemplateModel{})
		},
	}
}
