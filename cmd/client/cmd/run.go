package cmd

import (
	"github.com/spf13/cobra"

	"clinicsync/cmd/client/cmd/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Фоновая синхронизация",
	Long: `Держит клиент запущенным: проверяет доступность сервера,
отправляет очередь при восстановлении связи и периодически,
обновляет отметку последнего онлайна. Завершается по Ctrl+C.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		return app.Run()
	},
}
