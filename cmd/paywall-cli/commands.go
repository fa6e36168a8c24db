package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"paywall_backend/database"
	"paywall_backend/internal/auth"
	"paywall_backend/internal/config"
	"paywall_backend/internal/repositories"
	"paywall_backend/internal/workers"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Создать или обновить таблицы платежного ядра",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.ConnectGorm(config.GetConfig().Database.DSN)
			if err != nil {
				return err
			}
			return database.AutoMigrate(db)
		},
	}
}

func approveCmd() *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "approve [principal-ref]",
		Short: "Выдать доступ вручную и закрыть последний pending платеж",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.close()

			resp, err := env.services.OverrideService.Approve(cmd.Context(), env.db, operator, args[0])
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}

	cmd.Flags().StringVarP(&operator, "operator", "o", "", "id оператора из admin.operator_ids")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func revokeCmd() *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "revoke [principal-ref]",
		Short: "Отозвать доступ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.close()

			resp, err := env.services.OverrideService.Revoke(cmd.Context(), env.db, operator, args[0])
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}

	cmd.Flags().StringVarP(&operator, "operator", "o", "", "id оператора из admin.operator_ids")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [principal-ref] [transaction-param]",
		Short: "Перепроверить платеж пользователя",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.close()

			resp, err := env.services.EntitlementService.CheckTransaction(cmd.Context(), env.db, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}

func reconcileCmd() *cobra.Command {
	var staleAfter time.Duration

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Один проход сверки зависших pending транзакций",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.close()

			if staleAfter <= 0 {
				staleAfter = env.cfg.Worker.StaleAfter
			}
			worker := workers.NewReconcileWorker(env.db, repositories.NewTransactionRepository(), env.services.EntitlementService, workers.ReconcileConfig{
				StaleAfter:  staleAfter,
				Concurrency: env.cfg.Worker.Concurrency,
			})

			report, err := worker.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	cmd.Flags().DurationVar(&staleAfter, "stale-after", 0, "возраст pending транзакции для перепроверки (по умолчанию из worker.stale_after)")
	return cmd
}

func tokenCmd() *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить JWT для сервиса или оператора",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()

			tokens, err := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
			if err != nil {
				return err
			}
			if role == auth.RoleOperator && !cfg.IsOperator(subject) {
				return fmt.Errorf("subject %q is not listed in admin.operator_ids", subject)
			}

			token, err := tokens.Issue(subject, role)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "id клиента или оператора")
	cmd.Flags().StringVarP(&role, "role", "r", auth.RoleService, "service или operator")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
