// cmd/client/cmd/init.go
package cmd

import (
	"clinicsync/cmd/client/cmd/appointment"
	"clinicsync/cmd/client/cmd/auth"
	"clinicsync/cmd/client/cmd/patient"
	"clinicsync/cmd/client/cmd/sync"
)

func init() {
	// Команды аутентификации
	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.RegisterCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)
	auth.AuthCmd.AddCommand(auth.LogoutCmd)
	auth.AuthCmd.AddCommand(auth.RefreshCmd)

	// Пациенты и записи на прием
	rootCmd.AddCommand(patient.PatientCmd)
	rootCmd.AddCommand(appointment.AppointmentCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
}
