package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"citai-analytics-service/internal/analytics"
	"citai-analytics-service/internal/media"

	"go.uber.org/zap"
)

const maxLogoDownloadBytes = 5 * 1024 * 1024

var ErrNoLogo = errors.New("restaurant has no logo")

type objectReader interface {
	ResolveKeyFromURL(raw string) (string, bool)
	GetObject(ctx context.Context, key string, maxBytes int64) ([]byte, string, error)
}

// LogoLoader fetches a restaurant logo and normalizes it for the PDF header.
// Logos in the managed bucket are read through the object store; any other
// http(s) URL is downloaded directly.
type LogoLoader struct {
	Objects objectReader
	HTTP    *http.Client
	MaxSide int
	Logger  *zap.Logger
}

func NewLogoLoader(objects *ObjectStore, logger *zap.Logger) *LogoLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &LogoLoader{
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		MaxSide: media.DefaultLogoSide,
		Logger:  logger,
	}
	// Keep the interface nil when no store is configured.
	if objects != nil {
		l.Objects = objects
	}
	return l
}

func (l *LogoLoader) Logo(ctx context.Context, info analytics.RestaurantInfo) ([]byte, error) {
	raw := strings.TrimSpace(info.LogoURL)
	if raw == "" {
		return nil, ErrNoLogo
	}

	data, err := l.fetch(ctx, raw)
	if err != nil {
		return nil, err
	}
	out, meta, err := media.NormalizeLogo(data, l.MaxSide, media.DefaultLogoQuality)
	if err != nil {
		return nil, fmt.Errorf("normalize logo (%s): %w", media.DetectContentType(data), err)
	}
	l.Logger.Debug("report logo loaded",
		zap.String("restaurant", info.Name),
		zap.String("format", meta.Format),
		zap.Int("width", meta.Width),
		zap.Int("height", meta.Height),
	)
	return out, nil
}

func (l *LogoLoader) fetch(ctx context.Context, raw string) ([]byte, error) {
	if l.Objects != nil {
		if key, ok := l.Objects.ResolveKeyFromURL(raw); ok {
			data, _, err := l.Objects.GetObject(ctx, key, maxLogoDownloadBytes)
			return data, err
		}
	}

	if !strings.HasPrefix(raw, "https://") && !strings.HasPrefix(raw, "http://") {
		return nil, fmt.Errorf("unsupported logo url %q", raw)
	}
	client := l.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("logo download failed: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxLogoDownloadBytes {
		return nil, fmt.Errorf("logo exceeds %d bytes", maxLogoDownloadBytes)
	}
	return data, nil
}

// ReportKey is where an export is archived:
// {prefix}/{restaurantID}/{jobID}/{filename}.
func ReportKey(prefix, restaurantID, jobID, filename string) string {
	parts := make([]string, 0, 4)
	if p := strings.Trim(strings.TrimSpace(prefix), "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, restaurantID, jobID, filename)
	return strings.Join(parts, "/")
}
