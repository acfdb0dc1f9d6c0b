/**
 * Copyright 2025-present Presale Ledger Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command setup initializes the database schema, seeds presale stages from
// the stages file, and optionally gives demo accounts a starting fiat
// balance for local testing.
package main

import (
	"context"
	"flag"

	"presale-ledger-go/internal/common"
	"presale-ledger-go/internal/config"
	"presale-ledger-go/internal/database"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	stagesFile := flag.String("stages", "", "Path to stages.yaml (default: PRESALE_STAGES_FILE)")
	seedBalance := flag.String("seed-balance", "", "Optional fiat amount to credit every demo account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	// Setup always creates the demo accounts; the server decides via config.
	cfg.Database.CreateDemoAccounts = true

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to initialize database service", zap.Error(err))
	}
	defer dbService.Close()

	file := *stagesFile
	if file == "" {
		file = cfg.Presale.StagesFile
	}

	stages, err := common.LoadStageConfig(file)
	if err != nil {
		zap.L().Fatal("Failed to load stage definitions", zap.String("file", file), zap.Error(err))
	}

	for _, params := range stages {
		stage, err := dbService.CreateStage(ctx, params)
		if err != nil {
			zap.L().Fatal("Failed to seed stage", zap.Int("stage_number", params.Number), zap.Error(err))
		}
		if params.Active && !stage.Active {
			if err := dbService.ActivateStage(ctx, stage.Id); err != nil {
				zap.L().Fatal("Failed to activate stage", zap.String("stage_id", stage.Id), zap.Error(err))
			}
		}
	}
	zap.L().Info("Stages seeded", zap.Int("count", len(stages)))

	if *seedBalance != "" {
		amount, err := decimal.NewFromString(*seedBalance)
		if err != nil {
			zap.L().Fatal("Invalid seed balance", zap.String("value", *seedBalance), zap.Error(err))
		}
		seedDemoBalances(ctx, dbService, amount)
	}

	zap.L().Info("Setup complete")
}

func seedDemoBalances(ctx context.Context, dbService *database.Service, amount decimal.Decimal) {
	demoEmails := []string{
		"alice.johnson@example.com",
		"bob.smith@example.com",
		"carol.williams@example.com",
	}

	for _, email := range demoEmails {
		account, err := dbService.GetAccountByEmail(ctx, email)
		if err != nil {
			zap.L().Warn("Demo account missing, skipping", zap.String("email", email), zap.Error(err))
			continue
		}
		if err := dbService.CreditFiat(ctx, account.Id, amount); err != nil {
			zap.L().Warn("Failed to credit demo account", zap.String("email", email), zap.Error(err))
		}
	}
}
