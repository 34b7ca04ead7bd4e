package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/quizroomhq/quizroom-backend/internal/config"
	"github.com/quizroomhq/quizroom-backend/internal/database"
	"github.com/quizroomhq/quizroom-backend/internal/logger"
	"github.com/quizroomhq/quizroom-backend/internal/model"
	"github.com/quizroomhq/quizroom-backend/internal/repository"
	"github.com/quizroomhq/quizroom-backend/internal/service"
)

// import-students creates student accounts in bulk from a CSV roster of
// the form: name,email,roll,password. A header row is detected and
// skipped; rows whose email already exists are reported and skipped.
func main() {
	var rosterPath string
	flag.StringVar(&rosterPath, "file", "roster.csv", "Path to the roster CSV")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg, rdb, userRepo)

	f, err := os.Open(rosterPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", rosterPath).Msg("Failed to open roster")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 4

	created, skipped := 0, 0
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Int("line", line).Msg("Malformed roster row")
		}
		if line == 1 && record[0] == "name" {
			continue
		}

		name, email, roll, password := record[0], record[1], record[2], record[3]
		_, err = authService.Register(ctx, model.RegisterRequest{
			Name:     name,
			Email:    email,
			Password: password,
			Role:     model.RoleStudent,
			Roll:     roll,
		})
		if err != nil {
			if errors.Is(err, service.ErrEmailTaken) {
				fmt.Printf("line %d: %s already exists, skipping\n", line, email)
				skipped++
				continue
			}
			log.Fatal().Err(err).Int("line", line).Msg("Failed to create student")
		}
		created++
	}

	fmt.Printf("Imported %d students (%d skipped)\n", created, skipped)
}
