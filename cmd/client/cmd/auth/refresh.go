package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"clinicsync/cmd/client/cmd/types"
)

var RefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Обновить токен доступа",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.RefreshSession(cmd.Context()); err != nil {
			return fmt.Errorf("ошибка обновления токена: %w", err)
		}
		fmt.Println("✓ Токен обновлен")
		return nil
	},
}
