// cmd/client/cmd/auth/login.go
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clinicsync/cmd/client/cmd/types"
)

var loginEmail string

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти в систему",
	Long: `Аутентификация на сервере клиники.

После входа сессия сохраняется локально и позволяет работать офлайн
до истечения токена или MAX_OFFLINE_TIME без связи с сервером.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		email := loginEmail
		if email == "" {
			fmt.Print("Email: ")
			_, _ = fmt.Scanln(&email)
		}

		password, err := types.ReadPassword("Пароль: ")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		meta, err := app.Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(map[string]any{
				"user_id":      meta.UserID,
				"email":        meta.UserEmail,
				"clinic_id":    meta.ClinicID,
				"token_expiry": meta.TokenExpiry,
			})
		}

		fmt.Println("✅ Вход выполнен успешно!")
		fmt.Printf("Пользователь: %s (%s)\n", meta.UserName, meta.UserRole)
		fmt.Printf("Токен действителен до: %s\n", meta.TokenExpiry.Local().Format(time.DateTime))

		// Отправляем то, что накопилось
		if res, err := app.Sync(ctx, false); err != nil {
			fmt.Printf("⚠️  Синхронизация не выполнена: %v\n", err)
		} else if res.Processed > 0 {
			fmt.Printf("✓ Синхронизировано изменений: %d\n", res.Completed)
		}
		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "email пользователя")
}
