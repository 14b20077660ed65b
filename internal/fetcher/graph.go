package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/errors"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/logging"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// GraphFetcher downloads drive items through the Microsoft Graph content endpoint.
type GraphFetcher struct {
	client  *http.Client
	baseURL string
}

// NewGraphFetcher returns a fetcher for the drive rooted at baseURL, e.g.
// https://graph.microsoft.com/v1.0/me/drive.
func NewGraphFetcher(baseURL string, timeout time.Duration) *GraphFetcher {
	return &GraphFetcher{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (f *GraphFetcher) Fetch(ctx context.Context, accessToken, fileID, destPath string) (int64, error) {
	reqURL := fmt.Sprintf("%s/items/%s/content", f.baseURL, url.PathEscape(fileID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, errors.NewDownload("failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	slog.Info("downloading document", "file_id", fileID, "endpoint", logging.RedactURL(reqURL), "dest", destPath)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, errors.NewDownload("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.Error("document download rejected", "status", resp.StatusCode, "body", string(body))
		return 0, errors.NewDownloadStatus(resp.StatusCode, string(body))
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, errors.NewDownload("failed to create destination directory", err)
	}

	pending, err := renameio.NewPendingFile(destPath, renameio.WithPermissions(0o644))
	if err != nil {
		return 0, errors.NewDownload("failed to create temporary file", err)
	}
	defer pending.Cleanup()

	n, err := io.Copy(pending, resp.Body)
	if err != nil {
		return n, errors.NewDownload(fmt.Sprintf("transfer interrupted after %d bytes", n), err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, errors.NewDownload(fmt.Sprintf("short body: got %d of %d bytes", n, resp.ContentLength), nil)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return n, errors.NewDownload("failed to move download into place", err)
	}

	slog.Info("document downloaded", "bytes", n, "dest", destPath)
	return n, nil
}
