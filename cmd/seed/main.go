package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"parley/internal/auth"
	"parley/internal/config"
	"parley/internal/repository/postgres"
	"parley/internal/seed"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const demoUserEmail = "demo@parley.local"

// Fallback identity when no Supabase admin credentials are configured.
const fallbackDemoUserID = "00000000-0000-0000-0000-000000000001"

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all chat tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed demo data (for use with shell scripts)")
	clearData := flag.Bool("clear-data", false, "Clear all threads, messages and extensions (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)
	seeder := seed.NewChatSeeder(pool, tables, logger)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all chat tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := seeder.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	// Exit early if schema-only mode
	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Exit early if clear-data mode (just clear and exit)
	if *clearData {
		log.Println("🧹 Clearing existing threads, messages and extensions...")
		if err := seeder.ClearData(ctx); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Resolve the demo user, via the Supabase admin API when configured
	userID := ensureDemoUser(cfg)

	log.Println("📝 Seeding demo thread, messages and extension...")
	if err := seeder.SeedDemoData(ctx, userID); err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}

	log.Println("🎉 Seeding complete!")
}

// ensureDemoUser creates (or reuses) the demo auth user when admin
// credentials are available, otherwise falls back to a fixed UUID so
// local seeding works without Supabase.
func ensureDemoUser(cfg *config.Config) string {
	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		log.Printf("⚠️  SUPABASE_URL/SUPABASE_KEY not set, using fallback demo user %s", fallbackDemoUserID)
		return fallbackDemoUserID
	}

	admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)

	// Recreate from scratch so the password is known after reruns
	if err := admin.DeleteUserByEmail(demoUserEmail); err != nil {
		log.Printf("Warning: could not delete existing demo user: %v", err)
	}
	userID, err := admin.CreateUser(demoUserEmail, "demo-password-123")
	if err != nil {
		log.Printf("Warning: could not create demo user, using fallback: %v", err)
		return fallbackDemoUserID
	}
	log.Printf("✅ Demo user ready: %s (%s)", demoUserEmail, userID)
	return userID
}

// dropAllTables drops all chat tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Messages,
		tables.SecuredHeaders,
		tables.Extensions,
		tables.Threads,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}
