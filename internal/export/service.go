package export

import (
	"context"
	"errors"
	"time"

	"citai-analytics-service/internal/analytics"

	"go.uber.org/zap"
)

// LogoSource returns a JPEG logo for the restaurant, or nil when it has none.
type LogoSource interface {
	Logo(ctx context.Context, info analytics.RestaurantInfo) ([]byte, error)
}

// Service renders analytics snapshots into downloadable files. Each call
// works on its own snapshot; a Service is safe for concurrent use.
type Service struct {
	Spreadsheet SpreadsheetWriter
	Logos       LogoSource
	Now         func() time.Time
	Logger      *zap.Logger
}

func NewService(spreadsheet SpreadsheetWriter, logos LogoSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Spreadsheet: spreadsheet, Logos: logos, Logger: logger}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) input(data *analytics.Data, info analytics.RestaurantInfo, r DateRange, opts Options) reportInput {
	return reportInput{Data: data, Info: info, Range: r, Options: opts, GeneratedAt: s.now()}
}

func (s *Service) file(format Format, info analytics.RestaurantInfo, r DateRange, data []byte) *File {
	return &File{
		Format:      format,
		Filename:    GenerateFilename(format, info.Name, r),
		ContentType: format.ContentType(),
		Data:        data,
	}
}

// Export dispatches to the renderer for format.
func (s *Service) Export(ctx context.Context, format string, data *analytics.Data, info analytics.RestaurantInfo, r DateRange, opts Options) (*File, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatPDF:
		return s.ExportPDF(ctx, data, info, r, opts)
	case FormatExcel:
		return s.ExportExcel(ctx, data, info, r, opts)
	case FormatCSV:
		return s.ExportCSV(data, info, r, opts)
	default:
		return s.ExportJSON(data, info, r, opts)
	}
}

func (s *Service) ExportPDF(ctx context.Context, data *analytics.Data, info analytics.RestaurantInfo, r DateRange, opts Options) (*File, error) {
	if data == nil {
		return nil, ErrAnalyticsRequired
	}
	logo := s.loadLogo(ctx, info)
	out, err := guard(FormatPDF.Label(), func() ([]byte, error) {
		return renderPDF(s.input(data, info, r, opts), logo)
	})
	if err != nil {
		return nil, err
	}
	return s.file(FormatPDF, info, r, out), nil
}

func (s *Service) ExportExcel(ctx context.Context, data *analytics.Data, info analytics.RestaurantInfo, r DateRange, opts Options) (*File, error) {
	if data == nil {
		return nil, ErrAnalyticsRequired
	}
	if s.Spreadsheet == nil {
		return nil, &Error{Format: FormatExcel.Label(), Err: errors.New("spreadsheet writer not configured")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Format: FormatExcel.Label(), Err: err}
	}
	out, err := guard(FormatExcel.Label(), func() ([]byte, error) {
		return s.Spreadsheet.WriteWorkbook(buildSheets(s.input(data, info, r, opts)))
	})
	if err != nil {
		return nil, err
	}
	return s.file(FormatExcel, info, r, out), nil
}

func (s *Service) ExportCSV(data *analytics.Data, info analytics.RestaurantInfo, r DateRange, opts Options) (*File, error) {
	if data == nil {
		return nil, ErrAnalyticsRequired
	}
	out, err := guard(FormatCSV.Label(), func() ([]byte, error) {
		return renderCSV(s.input(data, info, r, opts)), nil
	})
	if err != nil {
		return nil, err
	}
	return s.file(FormatCSV, info, r, out), nil
}

func (s *Service) ExportJSON(data *analytics.Data, info analytics.RestaurantInfo, r DateRange, opts Options) (*File, error) {
	if data == nil {
		return nil, ErrAnalyticsRequired
	}
	out, err := guard(FormatJSON.Label(), func() ([]byte, error) {
		return renderJSON(s.input(data, info, r, opts))
	})
	if err != nil {
		return nil, err
	}
	return s.file(FormatJSON, info, r, out), nil
}

func (s *Service) loadLogo(ctx context.Context, info analytics.RestaurantInfo) []byte {
	if s.Logos == nil || info.LogoURL == "" {
		return nil
	}
	logo, err := s.Logos.Logo(ctx, info)
	if err != nil {
		s.logger().Warn("report logo unavailable", zap.String("restaurant", info.Name), zap.Error(err))
		return nil
	}
	return logo
}
