package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// sheetTab is the tab jobs are appended to.
const sheetTab = "Job Submissions"

// SheetSink appends one row per submitted job to a Google Sheet:
// jobId, title, customerName, status, submission timestamp, fileCount,
// portal link.
type SheetSink struct {
	spreadsheetID   string
	credentialsFile string

	mu  sync.Mutex
	svc *sheets.Service
}

// NewSheetSink builds the sink. The Sheets client is created lazily on
// first delivery so startup never depends on Google reachability.
func NewSheetSink(spreadsheetID, credentialsFile string) *SheetSink {
	return &SheetSink{spreadsheetID: spreadsheetID, credentialsFile: credentialsFile}
}

func (s *SheetSink) Name() string { return "sheet" }

func (s *SheetSink) IsConfigured() bool {
	return s.spreadsheetID != "" && s.credentialsFile != ""
}

func (s *SheetSink) service(ctx context.Context) (*sheets.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc != nil {
		return s.svc, nil
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(s.credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("init sheets client: %w", err)
	}
	s.svc = svc
	return svc, nil
}

// Notify appends the job row to the configured sheet.
func (s *SheetSink) Notify(ctx context.Context, ev Event) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}
	row := &sheets.ValueRange{
		Values: [][]interface{}{{
			ev.Job.ID,
			ev.Job.Title,
			ev.Job.CustomerName,
			string(ev.Job.Status),
			ev.Job.CreatedAt.Format(time.RFC3339),
			ev.Job.FileCount,
			ev.PortalLink,
		}},
	}
	_, err = svc.Spreadsheets.Values.
		Append(s.spreadsheetID, fmt.Sprintf("'%s'!A:G", sheetTab), row).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	slog.Info("job logged to sheet", "job_id", ev.Job.ID)
	return nil
}
