package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/document"
	"github.com/frahmantamala/asubt-console/internal/event"
	"github.com/frahmantamala/asubt-console/internal/report"
	"github.com/spf13/cobra"
)

var (
	documentsCmd = &cobra.Command{Use: "documents", Short: "Manage safety documents"}
	eventsCmd    = &cobra.Command{Use: "events", Short: "Manage planned safety events"}
	reportsCmd   = &cobra.Command{Use: "reports", Short: "Generate and export reports"}

	documentFilter document.Filter
	documentDTO    document.CreateDocumentDTO
	documentFields struct{ content, fileURL string }

	eventFilter event.Filter
	eventDTO    event.CreateEventDTO
	eventFields struct {
		description, plannedDate string
		responsible              int64
	}

	calendarMonth string
	reportType    string
	reportFormat  string
	reportOut     string
)

// screenCommand opens path through the route guard before running.
func screenCommand(path string, run func(ctx context.Context, cmd *cobra.Command, deps *Dependencies, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withDependencies(func(ctx context.Context, cmd *cobra.Command, deps *Dependencies) error {
			if err := deps.Open(ctx, path); err != nil {
				return err
			}
			return run(ctx, cmd, deps, args)
		})(cmd, args)
	}
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active documents, newest first",
	RunE: screenCommand("/admin/documents", func(ctx context.Context, cmd *cobra.Command, deps *Dependencies, _ []string) error {
		if err := deps.Documents.Load(ctx, documentFilter); err != nil {
			return err
		}
		docs := deps.Documents.Documents()
		if len(docs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Документы не найдены")
			return nil
		}

		w := newTable(cmd.OutOrStdout())
		fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tТИП\tАВТОР\tСОЗДАН")
		for _, d := range docs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", d.ID, d.Title, d.DocType.Label(), orDash(d.CreatorName), d.CreatedAt)
		}
		return w.Flush()
	}),
}

var documentsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one document",
	Args:  cobra.ExactArgs(1),
	RunE: screenCommand("/admin/documents", func(ctx context.Context, cmd *cobra.Command, deps *Dependencies, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		d, err := deps.Documents.Get(ctx, id)
		if err != nil {
			return err
		}

		w := newTable(cmd.OutOrStdout())
		fmt.Fprintf(w, "ID\t%d\n", d.ID)
		fmt.Fprintf(w, "Название\t%s\n", d.Title)
		fmt.Fprintf(w, "Тип\t%s\n", d.DocType.Label())
		fmt.Fprintf(w, "Статус\t%s\n", d.Status)
		fmt.Fprintf(w, "Автор\t%s\n", orDash(d.CreatorName))
		fmt.Fprintf(w, "Создан\t%s\n", d.CreatedAt)
		fmt.Fprintf(w, "Файл\t%s\n", orDash(d.FileURL))
		if err := w.Flush(); err != nil {
			return err
		}
		if d.Content != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", *d.Content)
		}
		return nil
	}),
}

var documentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a document",
	RunE: screenCommand("/admin/documents", func(ctx context.Context, cmd *cobra.Command, deps *Dependencies, _ []string) error {
		dto := documentDTO
		dto.Content = optional(documentFields.content)
		dto.FileURL = optional(documentFields.fileURL)

		d, err := deps.Documents.Create(ctx, dto)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", d.ID)
		return nil
	}),
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: screenCommand("/admin/documents", func(ctx context.Context, _ *cobra.Command, deps *Dependencies, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return deps.Documents.Delete(ctx, id)
	}),
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events by planned date",
	RunE: screenCommand("/admin/events", func(ctx context.Context, cmd *cobra.Command, deps *Dependencies, _ []string) error {
		if err := deps.Events.Load(ctx, eventFilter); err != nil {
			return err
		}
		events := deps.Events.Events()
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Мероприятия не найдены")
			return nil
		}
		return printEvents(cmd.OutOrStdout(), events)
	}),
}

var eventsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Plan an event",
	RunE: screenCommand("/admin/events", func(ctx context.Context, cmd *cobra.Command, deps *Dependencies, _ []string) error {
		dto := eventDTO
		dto.Description = optional(eventFields.description)
		dto.PlannedDate = optional(eventFields.plannedDate)
		if eventFields.responsible > 0 {
			id := eventFields.responsible
			dto.ResponsibleUserID = &id
		}

		e, err := deps.Events.Create(ctx, dto)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", e.ID)
		return nil
	}),
}

var eventsStatusCmd = &cobra.Command{
	Use:   "status <id> <planned|in_progress|completed|overdue>",
	Short: "Change the status of an event",
	Args:  cobra.ExactArgs(2),
	RunE: screenCommand("/admin/events", func(ctx context.Context, cmd *cobra.Command, deps *Dependencies, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		e, err := deps.Events.UpdateStatus(ctx, id, event.Status(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", e.ID, e.Status.Label())
		return nil
	}),
}

var eventsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an event",
	Args:  cobra.ExactArgs(1),
	RunE: screenCommand("/admin/events", func(ctx context.Context, _ *cobra.Command, deps *Dependencies, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return deps.Events.Delete(ctx, id)
	}),
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show the event calendar for a month",
	RunE: screenCommand("/admin/calendar", func(ctx context.Context, cmd *cobra.Command, deps *Dependencies, _ []string) error {
		year, month := deps.Events.Today().Year(), deps.Events.Today().Month()
		if calendarMonth != "" {
			t, err := time.Parse("2006-01", calendarMonth)
			if err != nil {
				return internal.NewValidationFieldError("month", "month must look like 2006-01", internal.ErrCodeInvalidInput)
			}
			year, month = t.Year(), t.Month()
		}

		grid, err := deps.Events.Calendar(ctx, year, month)
		if err != nil {
			deps.Logger.Warn("calendar built from events already shown", "error", err)
		}
		printMonth(cmd.OutOrStdout(), grid)

		deps.Events.Remind(ctx)
		return nil
	}),
}

var reportsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a report and print it",
	RunE: screenCommand("/admin/reports", func(ctx context.Context, cmd *cobra.Command, deps *Dependencies, _ []string) error {
		rep, err := deps.Reports.Generate(ctx, report.Type(reportType))
		if err != nil {
			return err
		}
		return printReport(cmd.OutOrStdout(), rep)
	}),
}

var reportsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Generate a report and save it in a format",
	RunE: screenCommand("/admin/reports", func(ctx context.Context, cmd *cobra.Command, deps *Dependencies, _ []string) error {
		if _, err := deps.Reports.Generate(ctx, report.Type(reportType)); err != nil {
			return err
		}
		out, err := deps.Reports.Export(ctx, report.Format(reportFormat))
		if err != nil {
			return err
		}
		if out.Artifact == nil {
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			return nil
		}

		path := filepath.Join(reportOut, out.Artifact.Filename)
		if err := os.WriteFile(path, out.Artifact.Body, 0o644); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}),
}

func init() {
	documentsListCmd.Flags().StringVarP((*string)(&documentFilter.DocType), "type", "t", "", "only documents of this type")
	documentsCreateCmd.Flags().StringVar(&documentDTO.Title, "title", "", "document title")
	documentsCreateCmd.Flags().StringVarP((*string)(&documentDTO.DocType), "type", "t", string(document.TypeInstruction), "instruction, regulation, order, protocol or other")
	documentsCreateCmd.Flags().StringVar(&documentFields.content, "content", "", "document text")
	documentsCreateCmd.Flags().StringVar(&documentFields.fileURL, "file-url", "", "link to the document file")
	documentsCmd.AddCommand(documentsListCmd, documentsShowCmd, documentsCreateCmd, documentsDeleteCmd)

	eventsListCmd.Flags().StringVarP((*string)(&eventFilter.Status), "status", "s", "", "only events in this status")
	eventsListCmd.Flags().StringVarP((*string)(&eventFilter.Type), "type", "t", "", "only events of this type")
	eventsCreateCmd.Flags().StringVar(&eventDTO.Title, "title", "", "event title")
	eventsCreateCmd.Flags().StringVarP((*string)(&eventDTO.EventType), "type", "t", string(event.TypeTraining), "training, inspection, medical, sout or other")
	eventsCreateCmd.Flags().StringVar(&eventFields.description, "description", "", "event description")
	eventsCreateCmd.Flags().StringVar(&eventFields.plannedDate, "date", "", "planned date, 2006-01-02")
	eventsCreateCmd.Flags().Int64Var(&eventFields.responsible, "responsible", 0, "id of the responsible user")
	eventsCmd.AddCommand(eventsListCmd, eventsCreateCmd, eventsStatusCmd, eventsDeleteCmd)

	calendarCmd.Flags().StringVarP(&calendarMonth, "month", "m", "", "month to show, 2006-01; the current one by default")

	reportsCmd.PersistentFlags().StringVarP(&reportType, "type", "t", string(report.TypeSummary), "summary, documents, events, training, incidents, sout or form7")
	reportsExportCmd.Flags().StringVarP(&reportFormat, "format", "f", string(report.FormatJSON), "json, csv or pdf")
	reportsExportCmd.Flags().StringVarP(&reportOut, "out", "o", ".", "directory to save the file in")
	reportsCmd.AddCommand(reportsGenerateCmd, reportsExportCmd)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationFieldError("id", "id must be a positive number", internal.ErrCodeInvalidInput)
	}
	return id, nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func printEvents(out io.Writer, events []event.Event) error {
	w := newTable(out)
	fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tТИП\tДАТА\tСТАТУС\tОТВЕТСТВЕННЫЙ")
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Title, e.EventType.Label(), orDash(e.PlannedDate), e.Status.Label(), orDash(e.ResponsibleName))
	}
	return w.Flush()
}

func printMonth(out io.Writer, m event.Month) {
	fmt.Fprintf(out, "%s %d\n", m.Month, m.Year)
	fmt.Fprintln(out, " Пн  Вт  Ср  Чт  Пт  Сб  Вс")

	var busy []event.Day
	for _, week := range m.Weeks() {
		for _, day := range week {
			switch {
			case day == nil:
				fmt.Fprint(out, "    ")
			case len(day.Events) > 0:
				fmt.Fprintf(out, " %2d*", day.Date.Day())
				busy = append(busy, *day)
			default:
				fmt.Fprintf(out, " %2d ", day.Date.Day())
			}
		}
		fmt.Fprintln(out)
	}

	for _, day := range busy {
		fmt.Fprintf(out, "\n%s\n", day.Date.Format("2006-01-02"))
		for _, e := range day.Events {
			fmt.Fprintf(out, "  %s (%s, %s)\n", e.Title, e.EventType.Label(), e.Status.Label())
		}
	}
}

func printReport(out io.Writer, rep *report.Report) error {
	fmt.Fprintf(out, "%s\nСформирован: %s\n", rep.Type.Label(), rep.GeneratedAt)
	if rep.Empty() {
		fmt.Fprintln(out, report.NoData)
		return nil
	}

	w := newTable(out)
	if len(rep.Statistics) > 0 {
		fmt.Fprintln(w, "\nСтатистика")
		for _, f := range rep.Statistics {
			fmt.Fprintf(w, "%s\t%v\n", f.Key, f.Value)
		}
	}
	for _, s := range rep.Sections() {
		fmt.Fprintf(w, "\n%s\n", s.Title)
		if len(s.Rows) == 0 {
			continue
		}
		fmt.Fprintln(w, strings.ToUpper(strings.Join(s.Rows[0].Keys(), "\t")))
		for _, row := range s.Rows {
			cells := make([]string, 0, len(row))
			for _, f := range row {
				cells = append(cells, fmt.Sprint(valueOrEmpty(f.Value)))
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
	}
	return w.Flush()
}

func valueOrEmpty(v interface{}) interface{} {
	if v == nil {
		return ""
	}
	return v
}
