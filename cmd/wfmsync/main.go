// Command wfmsync runs one reconciliation from the command line and prints
// the exception report.
//
//	wfmsync -config wfm_interface.yaml -from 2024-03-01 -to 2024-03-31
//
// Without -from/-to the range defaults to the day after the last processed
// date. -overwrite and -keep-exceptions override run.overwrite and
// run.reset_exceptions only when given. Ctrl-C cancels the run before it
// commits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/warp/wfm-interface/config"
	"github.com/warp/wfm-interface/schedule"
	"github.com/warp/wfm-interface/store/roster"
	"github.com/warp/wfm-interface/store/sqlite"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Configuration file")
	fromFlag := flag.String("from", "", "First date to process (YYYY-MM-DD)")
	toFlag := flag.String("to", "", "Last date to process (YYYY-MM-DD)")
	overwrite := flag.Bool("overwrite", false, "Replace existing schedules for the same day (default: run.overwrite)")
	keepExceptions := flag.Bool("keep-exceptions", false, "Do not clear the previous exception report (default: not run.reset_exceptions)")
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rng, err := resolveRange(cfg, *fromFlag, *toFlag)
	if err != nil {
		log.Fatalf("Invalid range: %v", err)
	}

	dest, err := sqlite.New(cfg.Destination.Path)
	if err != nil {
		log.Fatalf("Failed to initialize destination database: %v", err)
	}
	defer dest.Close()

	src, err := roster.Open(cfg.Source.Driver, cfg.Source.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize source database: %v", err)
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := schedule.NewRunner(dest, src, cfg.Run.CreatedBy)
	res, err := runner.Run(ctx, buildRequest(cfg, rng, explicit, *overwrite, *keepExceptions))
	if err != nil {
		log.Fatalf("Run failed, nothing was saved: %v", err)
	}

	if err := cfg.RecordRun(rng); err != nil {
		log.Printf("Warning: failed to save run history: %v", err)
	}

	fmt.Printf("%s\n%d employees, %d written (%d overwritten, %d skipped), %d exceptions\n",
		res.Status, res.Employees, res.Written, res.Overwritten, res.Abandoned, res.ExceptionCount)
	printExceptions(res.Exceptions)
}

// buildRequest starts from the configured run defaults; a flag wins only
// when it was set on the command line.
func buildRequest(cfg *config.Config, rng schedule.DateRange, explicit map[string]bool, overwrite, keepExceptions bool) schedule.RunRequest {
	req := schedule.RunRequest{
		Range:           rng,
		Overwrite:       cfg.Run.Overwrite,
		ResetExceptions: cfg.Run.ResetExceptions,
	}
	if explicit["overwrite"] {
		req.Overwrite = overwrite
	}
	if explicit["keep-exceptions"] {
		req.ResetExceptions = !keepExceptions
	}
	return req
}

func resolveRange(cfg *config.Config, from, to string) (schedule.DateRange, error) {
	rng := cfg.NextRange(schedule.Today())
	if from != "" {
		d, err := schedule.ParseDate(from)
		if err != nil {
			return rng, err
		}
		rng.From, rng.To = d, d
	}
	if to != "" {
		d, err := schedule.ParseDate(to)
		if err != nil {
			return rng, err
		}
		rng.To = d
	}
	return rng, rng.Validate()
}

func printExceptions(records []schedule.ExceptionRecord) {
	if len(records) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMPLOYEE NO\tEMPLOYEE NAME\tSCHEDULE DATE\tSCHEDULE TYPE\tWORKGROUP\tREMARKS\tCREATED BY\tCREATED DATE")
	for _, e := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.EmployeeID, e.EmployeeName, e.Date, e.ScheduleType, e.Workgroup,
			e.Remarks, e.CreatedBy, e.CreatedAt.Format(sqlite.TimestampLayout))
	}
	w.Flush()
}
