package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/asubt-console/internal/reminder"
	"github.com/spf13/cobra"
)

var remindWatch bool

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Remind about events planned for the coming week",
	Long:  `Run the upcoming-event reminder once, or on the configured schedule with --watch.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := initializeDependencies(ctx)
		if err != nil {
			return err
		}
		defer deps.Close()
		deps.EchoNotifications(cmd.OutOrStdout())

		if err := deps.Open(ctx, "/admin/calendar"); err != nil {
			return err
		}

		scheduler := reminder.NewScheduler(deps.Events, deps.Sessions, deps.Config.Reminders.Schedule, deps.Config.Client.Timeout, deps.Logger)
		if !remindWatch {
			n, err := scheduler.RunOnce(ctx)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Нет предстоящих мероприятий на этой неделе")
			}
			return nil
		}

		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return scheduler.Stop(stopCtx)
	},
}

func init() {
	remindCmd.Flags().BoolVarP(&remindWatch, "watch", "w", false, "keep running on the reminders.schedule cron expression")
}
