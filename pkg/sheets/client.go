package sheets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/tahsinku/tahsinku-api/pkg/config"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
)

const spreadsheetScope = "https://www.googleapis.com/auth/spreadsheets"

// API is the minimal surface of the spreadsheet service consumed by the
// writer. A mock implementation backs the tests.
type API interface {
	SheetIDs(ctx context.Context) (map[string]int64, error)
	AddSheet(ctx context.Context, title string) error
	UpdateValues(ctx context.Context, a1Range string, values [][]interface{}) error
	ClearValues(ctx context.Context, a1Range string) error
	FormatHeader(ctx context.Context, sheetID int64, columns int64) error
}

// Client implements API against the Google Sheets v4 service.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// NewClient resolves service-account credentials and builds a Sheets client.
// Credential sources are tried in priority order: inline JSON, base64 JSON,
// client email + private key pair, filesystem path.
func NewClient(ctx context.Context, cfg config.SheetsConfig) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "GOOGLE_SHEETS_SPREADSHEET_ID is not set")
	}

	credentials, err := resolveCredentials(cfg)
	if err != nil {
		return nil, err
	}

	jwtCfg, err := google.JWTConfigFromJSON(credentials, spreadsheetScope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "invalid Google Sheets credential JSON")
	}

	svc, err := sheetsapi.NewService(ctx, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "failed to initialise Google Sheets service")
	}

	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

func resolveCredentials(cfg config.SheetsConfig) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil

	case strings.TrimSpace(cfg.CredentialsB64) != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsB64)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "GOOGLE_SHEETS_CREDENTIALS_B64 is not valid base64")
		}
		return decoded, nil

	case strings.TrimSpace(cfg.ClientEmail) != "" && strings.TrimSpace(cfg.PrivateKey) != "":
		// Private keys passed through env typically carry escaped newlines.
		key := strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")
		payload, err := json.Marshal(map[string]string{
			"type":         "service_account",
			"client_email": cfg.ClientEmail,
			"private_key":  key,
			"project_id":   cfg.ProjectID,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "failed to assemble credential payload")
		}
		return payload, nil

	case strings.TrimSpace(cfg.CredentialsPath) != "":
		data, err := os.ReadFile(cfg.CredentialsPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status,
				fmt.Sprintf("credential file not found at %q", cfg.CredentialsPath))
		}
		return data, nil

	default:
		return nil, appErrors.Clone(appErrors.ErrConfiguration,
			"Google Sheets credentials missing: set GOOGLE_SHEETS_CREDENTIALS_JSON, GOOGLE_SHEETS_CREDENTIALS_B64, GOOGLE_SHEETS_CLIENT_EMAIL + GOOGLE_SHEETS_PRIVATE_KEY, or GOOGLE_SHEETS_CREDENTIALS_PATH")
	}
}

// SheetIDs returns the tab title to sheet ID mapping of the spreadsheet.
func (c *Client) SheetIDs(ctx context.Context) (map[string]int64, error) {
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	ids := make(map[string]int64, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet.Properties != nil {
			ids[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}
	return ids, nil
}

// AddSheet creates a new tab with the given title.
func (c *Client) AddSheet(ctx context.Context, title string) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	return nil
}

// UpdateValues writes raw values starting at the given A1 range.
func (c *Client) UpdateValues(ctx context.Context, a1Range string, values [][]interface{}) error {
	body := &sheetsapi.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1Range, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update values %s: %w", a1Range, err)
	}
	return nil
}

// ClearValues empties the given A1 range.
func (c *Client) ClearValues(ctx context.Context, a1Range string) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1Range, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear values %s: %w", a1Range, err)
	}
	return nil
}

// FormatHeader applies the bold white-on-blue style to row 1 of the tab.
func (c *Client) FormatHeader(ctx context.Context, sheetID int64, columns int64) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			RepeatCell: &sheetsapi.RepeatCellRequest{
				Range: &sheetsapi.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheetsapi.CellData{
					UserEnteredFormat: &sheetsapi.CellFormat{
						BackgroundColor: &sheetsapi.Color{Red: 0.2, Green: 0.6, Blue: 0.86},
						TextFormat: &sheetsapi.TextFormat{
							Bold:            true,
							ForegroundColor: &sheetsapi.Color{Red: 1, Green: 1, Blue: 1},
						},
					},
				},
				Fields: "userEnteredFormat(backgroundColor,textFormat)",
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("format header: %w", err)
	}
	return nil
}
