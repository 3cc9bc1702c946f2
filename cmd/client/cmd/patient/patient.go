package patient

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"clinicsync/cmd/client/cmd/types"
	"clinicsync/internal/domain/clinic"
	"clinicsync/internal/domain/record"
)

// PatientCmd - родительская команда для работы с пациентами
var PatientCmd = &cobra.Command{
	Use:     "patient",
	Aliases: []string{"paciente"},
	Short:   "Пациенты",
	Long:    `Создание, изменение, удаление и просмотр пациентов. Работает офлайн.`,
}

type patientFlags struct {
	firstName  string
	lastName   string
	documentID string
	birthDate  string
	phone      string
	email      string
	address    string
	notes      string
	allergies  []string
	bloodType  string
	insurance  string
}

var (
	createFlags patientFlags
	updateFlags patientFlags
)

func bindFlags(cmd *cobra.Command, f *patientFlags) {
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "имя")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "фамилия")
	cmd.Flags().StringVar(&f.documentID, "document", "", "документ (DNI)")
	cmd.Flags().StringVar(&f.birthDate, "birth-date", "", "дата рождения, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.phone, "phone", "", "телефон")
	cmd.Flags().StringVar(&f.email, "email", "", "email")
	cmd.Flags().StringVar(&f.address, "address", "", "адрес")
	cmd.Flags().StringVar(&f.notes, "notes", "", "заметки")
	cmd.Flags().StringSliceVar(&f.allergies, "allergy", nil, "аллергия (можно повторять)")
	cmd.Flags().StringVar(&f.bloodType, "blood-type", "", "группа крови")
	cmd.Flags().StringVar(&f.insurance, "insurance", "", "страховка")
}

// apply переносит в p только явно указанные флаги
func (f *patientFlags) apply(cmd *cobra.Command, p *clinic.Patient) error {
	changed := cmd.Flags().Changed
	if changed("first-name") {
		p.FirstName = f.firstName
	}
	if changed("last-name") {
		p.LastName = f.lastName
	}
	if changed("document") {
		p.DocumentID = f.documentID
	}
	if changed("birth-date") {
		if f.birthDate == "" {
			p.BirthDate = nil
		} else {
			d, err := time.Parse(time.DateOnly, f.birthDate)
			if err != nil {
				return fmt.Errorf("неверная дата рождения: %w", err)
			}
			p.BirthDate = &d
		}
	}
	if changed("phone") {
		p.Phone = f.phone
	}
	if changed("email") {
		p.Email = f.email
	}
	if changed("address") {
		p.Address = f.address
	}
	if changed("notes") {
		p.Notes = f.notes
	}
	if changed("allergy") {
		p.Allergies = f.allergies
	}
	if changed("blood-type") {
		p.BloodType = f.bloodType
	}
	if changed("insurance") {
		p.Insurance = f.insurance
	}
	return nil
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать пациента",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		var p clinic.Patient
		if err := createFlags.apply(cmd, &p); err != nil {
			return err
		}

		rec, err := app.Patients.Create(cmd.Context(), p)
		if err != nil {
			return fmt.Errorf("ошибка создания пациента: %w", err)
		}
		return printOne(cmd, rec, "✅ Пациент создан")
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Изменить пациента",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		var applyErr error
		rec, err := app.Patients.Update(cmd.Context(), args[0], func(p *clinic.Patient) {
			applyErr = updateFlags.apply(cmd, p)
		})
		if applyErr != nil {
			return applyErr
		}
		if err != nil {
			return fmt.Errorf("ошибка изменения пациента: %w", err)
		}
		return printOne(cmd, rec, "✅ Пациент изменен")
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить пациента",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.Patients.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("ошибка удаления пациента: %w", err)
		}
		fmt.Println("✅ Пациент удален")
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Показать пациента",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		rec, err := app.Patients.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("пациент %s не найден", args[0])
		}
		return printOne(cmd, rec, "")
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Список пациентов клиники",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		recs, err := app.Patients.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения списка: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(recs)
		}
		if len(recs) == 0 {
			fmt.Println("Пациенты не найдены")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tИМЯ\tДОКУМЕНТ\tТЕЛЕФОН\tСТАТУС\tИЗМЕНЕН")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Data.FullName(), r.Data.DocumentID, r.Data.Phone, r.SyncStatus,
				r.UpdatedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

func printOne(cmd *cobra.Command, rec *record.LocalRecord[clinic.Patient], header string) error {
	if types.JSONOutput(cmd) {
		return types.PrintJSON(rec)
	}
	if header != "" {
		fmt.Println(header)
	}
	fmt.Printf("ID:        %s\n", rec.ID)
	if rec.RemoteID != "" {
		fmt.Printf("На сервере: %s\n", rec.RemoteID)
	}
	fmt.Printf("Имя:       %s\n", rec.Data.FullName())
	if rec.Data.DocumentID != "" {
		fmt.Printf("Документ:  %s\n", rec.Data.DocumentID)
	}
	if rec.Data.BirthDate != nil {
		fmt.Printf("Рождение:  %s\n", rec.Data.BirthDate.Format(time.DateOnly))
	}
	if len(rec.Data.Allergies) > 0 {
		fmt.Printf("Аллергии:  %s\n", strings.Join(rec.Data.Allergies, ", "))
	}
	fmt.Printf("Статус:    %s\n", rec.SyncStatus)
	return nil
}

func init() {
	bindFlags(createCmd, &createFlags)
	bindFlags(updateCmd, &updateFlags)

	PatientCmd.AddCommand(createCmd, updateCmd, deleteCmd, getCmd, listCmd)
}
