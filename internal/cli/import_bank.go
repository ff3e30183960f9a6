package cli

import (
	"quizbot/internal/config"
	"quizbot/internal/infra/postgres"
	"quizbot/internal/logger"
	"github.com/spf13/cobra"
)

// NewImportBankCmd copies the question bank from the YAML config into Postgres.
func NewImportBankCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import-bank",
		Short: "Upsert the configured question bank into Postgres under quiz.bank_id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

			if err := cfg.Quiz.QuestionBank.Validate(); err != nil {
				return err
			}
			db, err := openBunDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := migrateDB(ctx, db, log); err != nil {
				return err
			}
			if err := postgres.SaveBank(ctx, db, cfg.Quiz.BankID, cfg.Quiz.QuestionBank); err != nil {
				return err
			}
			log.Info().
				Str("bank_id", cfg.Quiz.BankID).
				Int("questions", len(cfg.Quiz.Questions)).
				Msg("question bank imported")
			return nil
		},
	}
}
