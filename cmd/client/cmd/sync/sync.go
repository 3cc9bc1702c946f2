package sync

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"clinicsync/cmd/client/cmd/types"
	"clinicsync/internal/app/client/connectivity"
)

var (
	retryFailed bool
	showFailed  bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Отправить очередь изменений на сервер",
	Long: `Отправляет накопленные офлайн изменения на сервер.

Изменения обрабатываются по приоритету. Элементы, исчерпавшие попытки,
остаются в очереди со статусом failed: --retry-failed дает им еще один шанс,
--failed показывает их.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if showFailed {
			items, err := app.FailedItems(cmd.Context())
			if err != nil {
				return err
			}
			if types.JSONOutput(cmd) {
				return types.PrintJSON(items)
			}
			if len(items) == 0 {
				fmt.Println("Элементов с ошибками нет")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tСУЩНОСТЬ\tДЕЙСТВИЕ\tЛОКАЛЬНЫЙ ID\tПОПЫТОК\tОШИБКА")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					it.ID, it.Entity, it.Action, it.LocalID, it.Retries, it.ErrorMessage)
			}
			return w.Flush()
		}

		start := time.Now()
		res, err := app.Sync(cmd.Context(), retryFailed)
		if errors.Is(err, connectivity.ErrOffline) {
			return fmt.Errorf("сервер недоступен, изменения остаются в очереди")
		}
		if err != nil {
			return fmt.Errorf("ошибка синхронизации: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(res)
		}
		if res.Skipped {
			fmt.Println("Синхронизация уже выполняется другим процессом")
			return nil
		}

		fmt.Println("✅ Синхронизация завершена!")
		fmt.Printf("Время выполнения: %v\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("Обработано: %d, успешно: %d\n", res.Processed, res.Completed)
		if res.Retried > 0 || res.Deferred > 0 {
			fmt.Printf("Будут повторены: %d, ожидают зависимостей: %d\n", res.Retried, res.Deferred)
		}
		if res.Failed > 0 {
			fmt.Printf("⚠️  Требуют внимания: %d (clinicsync sync --failed)\n", res.Failed)
		}
		return nil
	},
}

func init() {
	SyncCmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "вернуть в очередь элементы с ошибками")
	SyncCmd.Flags().BoolVar(&showFailed, "failed", false, "показать элементы с ошибками")
}
