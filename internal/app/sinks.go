package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/coder/quartz"

	"gw-audit/internal/config"
	"gw-audit/internal/domain"
	"gw-audit/internal/report"
)

// defaultS3Region is used when output.s3_region is empty. S3-compatible
// stores accept any region.
const defaultS3Region = "us-east-1"

// buildSinks creates one writer per configured sink, in configured order.
func buildSinks(ctx context.Context, cfg config.OutputConfig, prov Providers, opts Options) (report.Multi, []func() error, error) {
	var (
		sinks   report.Multi
		closers []func() error
	)
	for _, name := range cfg.Sinks {
		switch name {
		case "console":
			sinks = append(sinks, report.NewConsole(opts.Stdout))
		case "csv":
			sinks = append(sinks, report.NewCSVDir(cfg.CSVDir, opts.Clock))
		case "sheets":
			if prov.Sheets == nil {
				return nil, closers, domain.ErrConfig("output.sinks", "sheets sink needs a Sheets API client")
			}
			sinks = append(sinks, report.NewSheets(prov.Sheets, cfg.SpreadsheetID, opts.Clock))
		case "gcs":
			client, err := storage.NewClient(ctx, prov.GCSOptions...)
			if err != nil {
				return nil, closers, fmt.Errorf("create gcs client: %w", err)
			}
			closers = append(closers, client.Close)
			sinks = append(sinks, report.NewObjectStore(report.NewGCSPutter(client, cfg.GCSBucket), cfg.GCSPrefix, opts.Clock))
		case "s3":
			sinks = append(sinks, report.NewObjectStore(report.NewS3Putter(newS3Client(cfg), cfg.S3Bucket), cfg.S3Prefix, opts.Clock))
		default:
			return nil, closers, domain.ErrConfig("output.sinks", "unknown sink %q", name)
		}
	}
	return sinks, closers, nil
}

func newS3Client(cfg config.OutputConfig) *s3.Client {
	region := cfg.S3Region
	if region == "" {
		region = defaultS3Region
	}
	o := s3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.S3KeyID, cfg.S3Secret, ""),
	}
	if cfg.S3Endpoint != "" {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	}
	return s3.New(o)
}

// buildNotifier returns nil when notifications go nowhere.
func buildNotifier(cfg config.NotifyConfig, prov Providers, clock quartz.Clock) (domain.Notifier, error) {
	switch cfg.Via {
	case "", "none":
		return nil, nil
	case "smtp":
		return report.NewSMTP(report.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			From:     cfg.From,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}, clock), nil
	case "gmail":
		if prov.Gmail == nil {
			return nil, domain.ErrConfig("notify.via", "gmail notifier needs a Gmail API client")
		}
		return report.NewGmail(prov.Gmail, cfg.From, clock), nil
	default:
		return nil, domain.ErrConfig("notify.via", "unknown notifier %q", cfg.Via)
	}
}
