package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"cps-exam-service/internal/config"
	"cps-exam-service/internal/domain"
	"cps-exam-service/internal/infra/memory"
	pgstore "cps-exam-service/internal/infra/postgres"
	redisstore "cps-exam-service/internal/infra/redis"
	"cps-exam-service/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads exams into Postgres, either the built-in set or a JSON file.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load exam content into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}

			exams, err := examsToSeed(file)
			if err != nil {
				return err
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			var cache *redisstore.ExamRepository
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				cache = redisstore.NewExamRepository(client, nil, 0)
			}

			loader := pgstore.NewExamLoader(pool)
			for _, e := range exams {
				if err := loader.SaveExam(ctx, e); err != nil {
					return fmt.Errorf("seed %s: %w", e.ID, err)
				}
				if cache != nil {
					if err := cache.Invalidate(ctx, e.ID); err != nil {
						log.Warn().Err(err).Str("exam_id", e.ID).Msg("cache invalidation failed")
					}
				}
				log.Info().Str("exam_id", e.ID).Int("questions", len(e.Questions)).Msg("exam seeded")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file holding an exam or a list of exams")
	return cmd
}

func examsToSeed(file string) ([]domain.Exam, error) {
	if file == "" {
		var out []domain.Exam
		for _, e := range memory.SampleExams() {
			out = append(out, e)
		}
		return out, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return decodeExams(data)
}

// decodeExams accepts either a single exam object or an array of exams.
func decodeExams(data []byte) ([]domain.Exam, error) {
	var list []domain.Exam
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var one domain.Exam
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode exams: %w", err)
	}
	return []domain.Exam{one}, nil
}
