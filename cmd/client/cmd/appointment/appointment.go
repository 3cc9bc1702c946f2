package appointment

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"clinicsync/cmd/client/cmd/types"
	"clinicsync/internal/domain/clinic"
	"clinicsync/internal/domain/record"
)

// AppointmentCmd - родительская команда для записей на прием
var AppointmentCmd = &cobra.Command{
	Use:     "appointment",
	Aliases: []string{"cita"},
	Short:   "Записи на прием",
	Long: `Создание, изменение, удаление и просмотр записей на прием.
Записи на сегодня отправляются на сервер в первую очередь.`,
}

const timeLayout = "2006-01-02 15:04"

type appointmentFlags struct {
	patientID string
	at        string
	duration  int
	reason    string
	status    string
	doctor    string
	notes     string
}

var (
	createFlags appointmentFlags
	updateFlags appointmentFlags
)

func bindFlags(cmd *cobra.Command, f *appointmentFlags) {
	cmd.Flags().StringVar(&f.patientID, "patient", "", "id пациента (локальный или серверный)")
	cmd.Flags().StringVar(&f.at, "at", "", `дата и время, "YYYY-MM-DD HH:MM" или RFC3339`)
	cmd.Flags().IntVar(&f.duration, "duration", 30, "длительность в минутах")
	cmd.Flags().StringVar(&f.reason, "reason", "", "причина визита")
	cmd.Flags().StringVar(&f.status, "status", string(clinic.AppointmentScheduled), "статус")
	cmd.Flags().StringVar(&f.doctor, "doctor", "", "врач")
	cmd.Flags().StringVar(&f.notes, "notes", "", "заметки")
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(timeLayout, s, time.Local)
}

// apply переносит в a явно указанные флаги; при создании берутся и значения
// по умолчанию.
func (f *appointmentFlags) apply(cmd *cobra.Command, a *clinic.Appointment, all bool) error {
	changed := func(name string) bool { return all || cmd.Flags().Changed(name) }
	if changed("patient") {
		a.PatientID = f.patientID
	}
	if changed("at") && f.at != "" {
		t, err := parseTime(f.at)
		if err != nil {
			return fmt.Errorf("неверная дата: %w", err)
		}
		a.ScheduledAt = t
	}
	if changed("duration") {
		a.DurationMinutes = f.duration
	}
	if changed("reason") {
		a.Reason = f.reason
	}
	if changed("status") {
		a.Status = clinic.AppointmentStatus(f.status)
	}
	if changed("doctor") {
		a.DoctorName = f.doctor
	}
	if changed("notes") {
		a.Notes = f.notes
	}
	return nil
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать запись на прием",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		var a clinic.Appointment
		if err := createFlags.apply(cmd, &a, true); err != nil {
			return err
		}

		rec, err := app.Appointments.Create(cmd.Context(), a)
		if err != nil {
			return fmt.Errorf("ошибка создания записи: %w", err)
		}
		return printOne(cmd, rec, "✅ Запись создана")
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Изменить запись на прием",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		var applyErr error
		rec, err := app.Appointments.Update(cmd.Context(), args[0], func(a *clinic.Appointment) {
			applyErr = updateFlags.apply(cmd, a, false)
		})
		if applyErr != nil {
			return applyErr
		}
		if err != nil {
			return fmt.Errorf("ошибка изменения записи: %w", err)
		}
		return printOne(cmd, rec, "✅ Запись изменена")
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить запись на прием",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.Appointments.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("ошибка удаления записи: %w", err)
		}
		fmt.Println("✅ Запись удалена")
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Показать запись на прием",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		rec, err := app.Appointments.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("запись %s не найдена", args[0])
		}
		return printOne(cmd, rec, "")
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Список записей на прием",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		recs, err := app.Appointments.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения списка: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(recs)
		}
		if len(recs) == 0 {
			fmt.Println("Записи не найдены")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tПАЦИЕНТ\tВРЕМЯ\tМИН\tСТАТУС\tСИНХР.")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.Data.PatientID, r.Data.ScheduledAt.Local().Format(timeLayout),
				r.Data.DurationMinutes, r.Data.Status, r.SyncStatus)
		}
		return w.Flush()
	},
}

func printOne(cmd *cobra.Command, rec *record.LocalRecord[clinic.Appointment], header string) error {
	if types.JSONOutput(cmd) {
		return types.PrintJSON(rec)
	}
	if header != "" {
		fmt.Println(header)
	}
	fmt.Printf("ID:       %s\n", rec.ID)
	if rec.RemoteID != "" {
		fmt.Printf("На сервере: %s\n", rec.RemoteID)
	}
	fmt.Printf("Пациент:  %s\n", rec.Data.PatientID)
	fmt.Printf("Время:    %s - %s\n",
		rec.Data.ScheduledAt.Local().Format(timeLayout), rec.Data.EndsAt().Local().Format("15:04"))
	if rec.Data.Reason != "" {
		fmt.Printf("Причина:  %s\n", rec.Data.Reason)
	}
	fmt.Printf("Статус:   %s\n", rec.Data.Status)
	fmt.Printf("Синхр.:   %s\n", rec.SyncStatus)
	return nil
}

func init() {
	bindFlags(createCmd, &createFlags)
	bindFlags(updateCmd, &updateFlags)

	AppointmentCmd.AddCommand(createCmd, updateCmd, deleteCmd, getCmd, listCmd)
}
