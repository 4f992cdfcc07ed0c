package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joshdurbin/shortlink/internal/report"
)

const tableTimeFormat = "2006-01-02 15:04:05"

// Commands provides command-line operations for the client
type Commands struct {
	client *Client
	out    io.Writer
}

// NewCommands creates a new Commands instance printing to out
func NewCommands(client *Client, out io.Writer) *Commands {
	if out == nil {
		out = os.Stdout
	}
	return &Commands{
		client: client,
		out:    out,
	}
}

// Create creates a short link and displays the result
func (c *Commands) Create(ctx context.Context, originalURL string, validity *int, shortcode string) error {
	result, err := c.client.CreateLink(ctx, originalURL, validity, shortcode)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Short link created:\n")
	fmt.Fprintf(c.out, "Shortcode: %s\n", result.Shortcode)
	fmt.Fprintf(c.out, "Short Link: %s\n", result.ShortLink)
	fmt.Fprintf(c.out, "Expires At: %s\n", result.Expiry.Format(time.RFC3339))

	return nil
}

// Stats retrieves and displays the statistics of a short link
func (c *Commands) Stats(ctx context.Context, shortcode string) error {
	stats, err := c.client.GetStats(ctx, shortcode)
	if err != nil {
		if isNotFound(err) {
			fmt.Fprintf(c.out, "Shortcode '%s' not found\n", shortcode)
			return nil
		}
		return err
	}

	status := "Active"
	if stats.IsExpired {
		status = "Expired"
	}

	fmt.Fprintf(c.out, "Link Statistics:\n")
	fmt.Fprintf(c.out, "Shortcode: %s\n", stats.Shortcode)
	fmt.Fprintf(c.out, "Original URL: %s\n", stats.OriginalURL)
	fmt.Fprintf(c.out, "Short Link: %s\n", stats.ShortLink)
	fmt.Fprintf(c.out, "Created At: %s\n", stats.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(c.out, "Expires At: %s\n", stats.ExpiryDate.Format(time.RFC3339))
	fmt.Fprintf(c.out, "Status: %s\n", status)
	fmt.Fprintf(c.out, "Total Clicks: %d\n", stats.TotalClicks)

	if len(stats.Analytics) == 0 {
		return nil
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "%-20s %-30s %-16s %s\n", "Timestamp", "Referrer", "IP", "User Agent")
	fmt.Fprintln(c.out, strings.Repeat("-", 100))
	for _, click := range stats.Analytics {
		fmt.Fprintf(c.out, "%-20s %-30s %-16s %s\n",
			click.Timestamp.Format(tableTimeFormat),
			truncate(click.Referrer, 30),
			click.IP,
			truncate(click.UserAgent, 30),
		)
	}

	return nil
}

// List displays active short links in a table format
func (c *Commands) List(ctx context.Context, limit int) error {
	list, err := c.client.ListLinks(ctx, limit)
	if err != nil {
		return err
	}

	if len(list.URLs) == 0 {
		fmt.Fprintln(c.out, "No links found")
		return nil
	}

	fmt.Fprintf(c.out, "%-20s %-50s %-20s %-20s %s\n", "Shortcode", "Original URL", "Created At", "Expires At", "Clicks")
	fmt.Fprintln(c.out, strings.Repeat("-", 125))

	for _, link := range list.URLs {
		expires := link.ExpiryDate.Format(tableTimeFormat)
		if link.IsExpired {
			expires = "expired"
		}

		fmt.Fprintf(c.out, "%-20s %-50s %-20s %-20s %d\n",
			link.Shortcode,
			truncate(link.OriginalURL, 50),
			link.CreatedAt.Format(tableTimeFormat),
			expires,
			link.ClickCount,
		)
	}
	fmt.Fprintf(c.out, "\nTotal: %d\n", list.Total)

	return nil
}

// Health displays the server health report
func (c *Commands) Health(ctx context.Context) error {
	health, err := c.client.Health(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Service: %s\n", health.Service)
	fmt.Fprintf(c.out, "Status: %s\n", health.Status)
	fmt.Fprintf(c.out, "Database: %s\n", health.Database)
	fmt.Fprintf(c.out, "Checked At: %s\n", health.Timestamp.Format(time.RFC3339))

	return nil
}

// Export downloads the statistics workbook of a short link to outPath,
// or to the server-suggested filename when outPath is empty.
func (c *Commands) Export(ctx context.Context, shortcode, outPath string) error {
	data, filename, err := c.client.DownloadExport(ctx, shortcode)
	if err != nil {
		return err
	}

	if outPath == "" && filename != "" {
		outPath = filepath.Base(filename)
	}
	if outPath == "" {
		outPath = report.Filename(shortcode)
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Fprintf(c.out, "Report written to %s (%d bytes)\n", outPath, len(data))
	return nil
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
