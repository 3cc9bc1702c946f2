package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"clinicsync/cmd/client/cmd/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние соединения и очереди синхронизации",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		st, err := app.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения статуса: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(st)
		}

		user := st.User
		if user == "" {
			user = "не выполнен вход"
		}
		fmt.Printf("Пользователь:   %s\n", user)
		if st.ClinicID != "" {
			fmt.Printf("Клиника:        %s\n", st.ClinicID)
		}
		fmt.Printf("Соединение:     %s\n", st.ConnectionStatus)
		fmt.Printf("Синхронизация:  %s\n", st.SyncStatus)
		fmt.Printf("В очереди:      %d\n", st.PendingCount)
		if st.FailedCount > 0 {
			fmt.Printf("С ошибками:     %d (clinicsync sync --retry-failed)\n", st.FailedCount)
		}
		if st.IsBlocked {
			fmt.Printf("⚠️  Офлайн-работа заблокирована: %s\n", st.BlockReason)
		}
		return nil
	},
}
