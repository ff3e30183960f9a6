package postgres

import (
	"context"
	"fmt"
	"time"

	"quizbot/internal/domain"
	"github.com/uptrace/bun"
)

type questionBankRow struct {
	bun.BaseModel `bun:"table:question_banks"`

	ID        string              `bun:"id,pk"`
	Data      domain.QuestionBank `bun:"data,type:jsonb"`
	UpdatedAt time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// SaveBank upserts bank under bankID.
func SaveBank(ctx context.Context, db *bun.DB, bankID string, bank domain.QuestionBank) error {
	row := &questionBankRow{ID: bankID, Data: bank, UpdatedAt: time.Now()}
	_, err := db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save bank %q: %w", bankID, err)
	}
	return nil
}
