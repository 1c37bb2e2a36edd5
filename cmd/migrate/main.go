package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS questions CASCADE`,
		`DROP TABLE IF EXISTS levels CASCADE`,
		`DROP TABLE IF EXISTS movies CASCADE`,
		`DROP TABLE IF EXISTS teams CASCADE`,
		`DROP TABLE IF EXISTS games CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}
	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id UUID PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'not-started',
			allow_show_answer BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS movies (
			id UUID PRIMARY KEY,
			game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			title VARCHAR(255) NOT NULL,
			index INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (game_id, index)
		)`,

		`CREATE TABLE IF NOT EXISTS levels (
			id UUID PRIMARY KEY,
			movie_id UUID NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
			level_name VARCHAR(10) NOT NULL,
			UNIQUE (movie_id, level_name)
		)`,

		`CREATE TABLE IF NOT EXISTS questions (
			id UUID PRIMARY KEY,
			game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			movie_id UUID NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
			level_id UUID NOT NULL REFERENCES levels(id) ON DELETE CASCADE,
			level VARCHAR(10) NOT NULL,
			text TEXT NOT NULL,
			options TEXT[] NOT NULL,
			correct_index INTEGER NOT NULL,
			opened BOOLEAN NOT NULL DEFAULT false,
			answered BOOLEAN NOT NULL DEFAULT false,
			current_holder INTEGER NOT NULL DEFAULT 0,
			pass_history JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS teams (
			id UUID PRIMARY KEY,
			game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			team_number INTEGER NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			correct_count INTEGER NOT NULL DEFAULT 0,
			wrong_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (game_id, team_number)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_movies_game_id ON movies(game_id)`,
		`CREATE INDEX IF NOT EXISTS idx_levels_movie_id ON levels(movie_id)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_game_id ON questions(game_id)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_level_id ON questions(level_id)`,
		`CREATE INDEX IF NOT EXISTS idx_teams_game_id ON teams(game_id)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// seedData creates one demo game with a movie, its levels and a
// question per level, ready for a local walkthrough.
func seedData(ctx context.Context, conn *pgx.Conn) error {
	var gameID string
	err := conn.QueryRow(ctx, `
		INSERT INTO games (id, title, description)
		VALUES (gen_random_uuid(), 'Demo Movie Night', 'Seeded demo game')
		RETURNING id
	`).Scan(&gameID)
	if err != nil {
		return fmt.Errorf("failed to seed game: %w", err)
	}

	var movieID string
	err = conn.QueryRow(ctx, `
		INSERT INTO movies (id, game_id, title, index)
		VALUES (gen_random_uuid(), $1, 'The Matrix', 0)
		RETURNING id
	`, gameID).Scan(&movieID)
	if err != nil {
		return fmt.Errorf("failed to seed movie: %w", err)
	}

	questions := map[string]struct {
		text    string
		options []string
		correct int
	}{
		"easy": {
			text:    "What color pill does Neo take?",
			options: []string{"Red", "Blue", "Green", "Yellow"},
			correct: 0,
		},
		"medium": {
			text:    "What year was The Matrix released?",
			options: []string{"1997", "1999", "2001", "2003"},
			correct: 1,
		},
		"hard": {
			text:    "What is the name of Morpheus' ship?",
			options: []string{"Icarus", "Osiris", "Nebuchadnezzar", "Logos"},
			correct: 2,
		},
	}

	for _, levelName := range []string{"easy", "medium", "hard"} {
		var levelID string
		err = conn.QueryRow(ctx, `
			INSERT INTO levels (id, movie_id, level_name)
			VALUES (gen_random_uuid(), $1, $2)
			RETURNING id
		`, movieID, levelName).Scan(&levelID)
		if err != nil {
			return fmt.Errorf("failed to seed level: %w", err)
		}

		q := questions[levelName]
		_, err = conn.Exec(ctx, `
			INSERT INTO questions (id, game_id, movie_id, level_id, level, text, options, correct_index)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		`, gameID, movieID, levelID, levelName, q.text, q.options, q.correct)
		if err != nil {
			return fmt.Errorf("failed to seed question: %w", err)
		}
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO teams (id, game_id, team_number)
		SELECT gen_random_uuid(), $1, n FROM generate_series(1, 4) AS n
	`, gameID)
	if err != nil {
		return fmt.Errorf("failed to seed teams: %w", err)
	}

	fmt.Printf("  Seeded game %s with 1 movie, 3 questions and 4 teams\n", gameID)
	return nil
}
