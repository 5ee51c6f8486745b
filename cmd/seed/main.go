package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic-booking/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedSlots(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]string, error) {
	log.Printf("seeding %d doctors", count)

	specialities := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("dr-%03d", i+1)
		name := "Dr. " + gofakeit.Name()
		spec := specialities[gofakeit.Number(0, len(specialities)-1)]
		room := fmt.Sprintf("%d%02d", gofakeit.Number(1, 4), gofakeit.Number(1, 30))

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, speciality, room, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, room)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

// seedSlots gives every doctor an hourly grid over the next five days.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, doctorIDs []string) error {
	times := []string{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}
	start := time.Now().AddDate(0, 0, 1)

	total := 0
	for day := 0; day < 5; day++ {
		date := start.AddDate(0, 0, day).Format("2006-01-02")

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for _, doctorID := range doctorIDs {
			for _, t := range times {
				_, err := tx.Exec(ctx, `
					INSERT INTO slots (id, doctor_id, date, time, created_at, updated_at)
					VALUES ($1, $2, $3, $4, now(), now())
				`, uuid.New(), doctorID, date, t)
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
				total++
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("slots seeded for %s: %d total", date, total)
	}

	log.Println("slots seeded")
	return nil
}
