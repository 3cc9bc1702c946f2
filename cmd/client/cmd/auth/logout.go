package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"clinicsync/cmd/client/cmd/types"
)

var forceLogout bool

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Выйти и удалить локальные данные",
	Long: `Удаляет сессию, очередь синхронизации и все локальные копии
пациентов и записей. Неотправленные изменения будут потеряны.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		pending, err := app.PendingChanges(cmd.Context())
		if err != nil {
			return err
		}
		if pending > 0 && !forceLogout {
			return fmt.Errorf("есть %d неотправленных изменений: выполните sync или используйте --force", pending)
		}

		if err := app.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("ошибка выхода: %w", err)
		}

		fmt.Println("✅ Выход выполнен, локальные данные удалены")
		return nil
	},
}

func init() {
	LogoutCmd.Flags().BoolVarP(&forceLogout, "force", "f", false, "выйти, даже если есть неотправленные изменения")
}
