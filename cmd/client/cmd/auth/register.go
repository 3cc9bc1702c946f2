// cmd/client/cmd/auth/register.go
package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"clinicsync/cmd/client/cmd/types"
	"clinicsync/internal/app/client/remote"
)

var (
	regEmail    string
	regName     string
	regRole     string
	regClinicID string
)

var RegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Зарегистрировать нового пользователя",
	Long: `Регистрация нового пользователя клиники на сервере.

Регистрация требует подключения к сети.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if regEmail == "" || regClinicID == "" {
			return fmt.Errorf("нужно указать --email и --clinic")
		}

		password, err := types.ReadPassword("Пароль: ")
		if err != nil {
			return err
		}
		confirm, err := types.ReadPassword("Повторите пароль: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("пароли не совпадают")
		}
		if len(password) < 8 {
			return fmt.Errorf("пароль должен содержать минимум 8 символов")
		}

		u, err := app.Register(cmd.Context(), remote.Registration{
			Email:    regEmail,
			Password: password,
			Name:     regName,
			Role:     regRole,
			ClinicID: regClinicID,
		})
		if err != nil {
			return fmt.Errorf("ошибка регистрации: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(u)
		}
		fmt.Println("✅ Регистрация успешно завершена!")
		fmt.Println("Теперь вы можете войти в систему: clinicsync auth login")
		return nil
	},
}

func init() {
	RegisterCmd.Flags().StringVarP(&regEmail, "email", "e", "", "email")
	RegisterCmd.Flags().StringVarP(&regName, "name", "n", "", "имя")
	RegisterCmd.Flags().StringVar(&regRole, "role", "", "роль (medico, recepcion, admin)")
	RegisterCmd.Flags().StringVar(&regClinicID, "clinic", "", "идентификатор клиники")
}
