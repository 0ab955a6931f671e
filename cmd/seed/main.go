package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"campaign-wallet-go/internal/auth"
	"campaign-wallet-go/internal/common"
	"campaign-wallet-go/internal/config"
	"campaign-wallet-go/internal/database"
	"campaign-wallet-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// seedFile is the on-disk format consumed by the seeder.
type seedFile struct {
	Wallet struct {
		Seed string `yaml:"seed"`
	} `yaml:"wallet"`
	Users []struct {
		FullName string `yaml:"full_name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
}

// The seeder is idempotent: an already-provisioned wallet and already-known
// users are skipped, so it is safe to re-run against a live database.
func main() {
	file := flag.String("file", "seed.yaml", "Path to the seed file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	raw, err := os.ReadFile(*file)
	if err != nil {
		zap.L().Fatal("Failed to read seed file", zap.String("file", *file), zap.Error(err))
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		zap.L().Fatal("Failed to parse seed file", zap.String("file", *file), zap.Error(err))
	}

	ctx := context.Background()
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if seed.Wallet.Seed != "" {
		amount, err := decimal.NewFromString(seed.Wallet.Seed)
		if err != nil {
			zap.L().Fatal("Invalid wallet seed amount", zap.String("seed", seed.Wallet.Seed), zap.Error(err))
		}
		wallet, err := dbService.ProvisionWallet(ctx, amount)
		switch {
		case errors.Is(err, store.ErrWalletAlreadyExists):
			zap.L().Info("Wallet already provisioned, skipping")
		case err != nil:
			zap.L().Fatal("Failed to provision wallet", zap.Error(err))
		default:
			zap.L().Info("Wallet provisioned",
				zap.String("wallet_id", wallet.Id),
				zap.String("available", wallet.Available.String()))
		}
	}

	for _, u := range seed.Users {
		if u.Email == "" || u.Password == "" {
			zap.L().Warn("Skipping user with missing email or password", zap.String("full_name", u.FullName))
			continue
		}
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			zap.L().Fatal("Failed to hash password", zap.String("email", u.Email), zap.Error(err))
		}
		user, err := dbService.CreateUser(ctx, store.CreateUserParams{
			FullName:     u.FullName,
			Email:        u.Email,
			PasswordHash: hash,
			Role:         u.Role,
		})
		switch {
		case errors.Is(err, store.ErrUserAlreadyExists):
			zap.L().Info("User already exists, skipping", zap.String("email", u.Email))
		case err != nil:
			zap.L().Fatal("Failed to create user", zap.String("email", u.Email), zap.Error(err))
		default:
			zap.L().Info("User created",
				zap.String("id", user.Id),
				zap.String("email", user.Email),
				zap.String("role", user.Role))
		}
	}

	zap.L().Info("Seed complete")
}
