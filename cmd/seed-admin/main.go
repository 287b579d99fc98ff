package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/volatiletech/null/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"giveora.backend/internal/config"
	"giveora.backend/internal/domain/entities"
	"giveora.backend/internal/infrastructure/repositories"
	"giveora.backend/pkg/crypto"
)

var openSeedDB = func(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), &gorm.Config{PrepareStmt: false, TranslateError: true})
}

var openSeedSQLDB = func(db *gorm.DB) (io.Closer, error) {
	return db.DB()
}

type adminStore interface {
	UpsertByEmail(ctx context.Context, user *entities.User) error
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}

type seedAdminDeps struct {
	loadEnv      func() error
	loadCfg      func() *config.Config
	prepare      func(cfg *config.Config) (adminStore, io.Closer, error)
	hashPassword func(password string) (string, error)
	now          func() time.Time
	getenv       func(key string) string
	out          io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func defaultSeedAdminDeps() seedAdminDeps {
	return seedAdminDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (adminStore, io.Closer, error) {
			db, err := openSeedDB(cfg.Database.URL())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to connect db: %w", err)
			}

			sqlDB, err := openSeedSQLDB(db)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to init sql db: %w", err)
			}
			return repositories.NewUserRepository(db), sqlDB, nil
		},
		hashPassword: crypto.HashPassword,
		now:          time.Now,
		getenv:       os.Getenv,
		out:          os.Stdout,
	}
}

func resolvePassword(flagValue string, getenv func(string) string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := getenv("ADMIN_PASSWORD"); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("--password or ADMIN_PASSWORD is required")
}

func runSeedAdmin(args []string, deps seedAdminDeps) error {
	def := defaultSeedAdminDeps()
	if deps.loadEnv == nil {
		deps.loadEnv = def.loadEnv
	}
	if deps.loadCfg == nil {
		deps.loadCfg = def.loadCfg
	}
	if deps.prepare == nil {
		deps.prepare = def.prepare
	}
	if deps.hashPassword == nil {
		deps.hashPassword = def.hashPassword
	}
	if deps.now == nil {
		deps.now = def.now
	}
	if deps.getenv == nil {
		deps.getenv = def.getenv
	}
	if deps.out == nil {
		deps.out = def.out
	}

	fs := flag.NewFlagSet("seed-admin", flag.ContinueOnError)
	emailFlag := fs.String("email", "admin@example.com", "admin email")
	nameFlag := fs.String("name", "System Admin", "admin display name")
	passwordFlag := fs.String("password", "", "admin password (or ADMIN_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	email := entities.NormalizeEmail(*emailFlag)
	if email == "" {
		return fmt.Errorf("--email is required")
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	password, err := resolvePassword(*passwordFlag, deps.getenv)
	if err != nil {
		return err
	}
	hash, err := deps.hashPassword(password)
	if err != nil {
		return err
	}

	cfg := deps.loadCfg()
	store, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()

	ctx := context.Background()
	now := deps.now()
	admin := &entities.User{
		ID:              uuid.New(),
		Name:            *nameFlag,
		Email:           email,
		PasswordHash:    hash,
		Role:            entities.UserRoleAdmin,
		Status:          entities.UserStatusActive,
		EmailVerifiedAt: null.TimeFrom(now),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := store.UpsertByEmail(ctx, admin); err != nil {
		return fmt.Errorf("failed seeding admin %s: %w", email, err)
	}

	saved, err := store.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to reload admin %s: %w", email, err)
	}

	_, _ = fmt.Fprintln(deps.out, "Admin account created/updated")
	_, _ = fmt.Fprintf(deps.out, "email=%s\n", saved.Email)
	_, _ = fmt.Fprintf(deps.out, "admin_id=%s\n", saved.ID.String())
	return nil
}

func main() {
	if err := runSeedAdmin(os.Args[1:], defaultSeedAdminDeps()); err != nil {
		log.Fatal(err)
	}
}
