package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"instacomments/pkg/auth"
	"instacomments/pkg/comments"
	"instacomments/pkg/config"
	"instacomments/pkg/export"
	"instacomments/pkg/instagram"
	"instacomments/pkg/logger"
	"instacomments/pkg/metrics"
	"instacomments/pkg/ratelimit"
	"instacomments/pkg/storage"
	"instacomments/pkg/ui"
)

const urlExample = "https://www.instagram.com/reel/<short>/ or https://www.instagram.com/p/<short>/"

// Replaced in tests
var (
	newCredentialManager = auth.NewManager
	newUploader          = func(ctx context.Context, cfg storage.S3Config) (uploader, error) {
		return storage.NewS3Uploader(ctx, cfg)
	}
)

type uploader interface {
	Upload(ctx context.Context, in storage.UploadInput) (*storage.UploadOutput, error)
}

// scrapeOptions holds the flags of the root scrape command
type scrapeOptions struct {
	global *globalOptions

	url            string
	dataFormat     string
	fileFormat     string
	output         string
	perPage        int
	maxComments    int
	minLikes       int
	includeReplies bool
	dedupe         bool
	noDedupe       bool
	noProgress     bool
	sort           bool
	account        string
	metricsFile    string
	uploadBucket   string
	rateLimit      int
}

func addScrapeFlags(cmd *cobra.Command, global *globalOptions) {
	opts := &scrapeOptions{global: global}

	cmd.Example = `  # Usernames of every commenter, as JSON
  instacomments --url https://www.instagram.com/reel/SHORT/

  # Usernames as CSV, format inferred from the extension
  instacomments --url https://www.instagram.com/p/SHORT/ --output out/usernames.csv

  # Popular comments with their replies
  instacomments --url https://www.instagram.com/reel/SHORT/ --data-format detailed --include-replies --min-likes 5 --max-comments 200`

	f := cmd.Flags()
	f.StringVarP(&opts.url, "url", "u", "", "Instagram reel or post URL")
	f.StringVar(&opts.dataFormat, "data-format", "usernames", "data to export: usernames or detailed")
	f.StringVar(&opts.fileFormat, "file-format", "", "output format: json, csv or txt (default json, or inferred from --output)")
	f.StringVarP(&opts.output, "output", "o", config.DefaultOutputPath, "output file path")
	f.IntVar(&opts.perPage, "per-page", config.DefaultPerPage, "comments requested per page (max 50)")
	f.IntVar(&opts.maxComments, "max-comments", 0, "stop after N parent comments (0: unlimited)")
	f.IntVar(&opts.minLikes, "min-likes", 0, "only include comments with at least N likes")
	f.BoolVar(&opts.includeReplies, "include-replies", false, "fetch replies for each parent comment (detailed only)")
	f.BoolVar(&opts.dedupe, "dedupe", true, "drop duplicate usernames, or duplicate comment ids in detailed mode")
	f.BoolVar(&opts.noDedupe, "no-dedupe", false, "keep duplicates")
	f.BoolVar(&opts.noProgress, "no-progress", false, "disable progress output")
	f.BoolVar(&opts.sort, "sort", false, "sort usernames case-insensitively before export")
	f.StringVarP(&opts.account, "account", "a", "", "use a saved session instead of the environment")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write prometheus metrics of the run to this file")
	f.StringVar(&opts.uploadBucket, "upload-bucket", "", "also upload the export to this S3 bucket")
	f.IntVar(&opts.rateLimit, "rate-limit", 0, "client-side requests per minute (0: unpaced)")
	cmd.MarkFlagsMutuallyExclusive("dedupe", "no-dedupe")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd, opts)
	}
}

// flagMap collects explicitly set flags for config.MergeCommandLineFlags
func (o *scrapeOptions) flagMap(cmd *cobra.Command) map[string]interface{} {
	flags := o.global.flagMap(cmd)
	changed := cmd.Flags().Changed

	if changed("data-format") {
		flags["data-format"] = o.dataFormat
	}
	if changed("file-format") {
		flags["file-format"] = o.fileFormat
	}
	if changed("output") {
		flags["output"] = o.output
	}
	if changed("per-page") {
		flags["per-page"] = o.perPage
	}
	if changed("max-comments") {
		flags["max-comments"] = o.maxComments
	}
	if changed("min-likes") {
		flags["min-likes"] = o.minLikes
	}
	if changed("include-replies") {
		flags["include-replies"] = o.includeReplies
	}
	if changed("dedupe") {
		flags["dedupe"] = o.dedupe
	}
	if changed("no-dedupe") {
		flags["dedupe"] = !o.noDedupe
	}
	if changed("no-progress") {
		flags["progress"] = !o.noProgress
	}
	if changed("sort") {
		flags["sort"] = o.sort
	}
	if changed("metrics-file") {
		flags["metrics-file"] = o.metricsFile
	}
	if changed("upload-bucket") {
		flags["upload-bucket"] = o.uploadBucket
	}
	if changed("rate-limit") {
		flags["requests-per-minute"] = o.rateLimit
	}
	return flags
}

func runScrape(cmd *cobra.Command, opts *scrapeOptions) error {
	out := cmd.OutOrStdout()

	rawURL := strings.TrimSpace(opts.url)
	if rawURL == "" {
		ui.PrintQuickStart()
		var err error
		rawURL, err = promptURL(cmd.InOrStdin(), out)
		if err != nil {
			return usageError(err)
		}
	}

	kind, shortcode, err := instagram.ParseMediaURL(rawURL)
	if err != nil {
		return usageError(fmt.Errorf("invalid URL. Example: %s", urlExample))
	}

	cfg, err := config.Load(opts.global.configFile, opts.flagMap(cmd))
	if err != nil {
		return usageError(err)
	}

	runCfg, fileFormat, err := runConfiguration(cfg)
	if err != nil {
		return usageError(err)
	}

	log, err := logger.NewWithWriter(&cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return usageError(err)
	}
	logger.SetLogger(log)

	runID := uuid.NewString()
	log = log.WithFields(map[string]interface{}{
		"run_id":    runID,
		"shortcode": shortcode,
	})

	if cfg.Fetch.IncludeReplies && runCfg.DataFormat == comments.FormatUsernames {
		ui.PrintWarning("--include-replies only applies to --data-format detailed; replies will not be fetched")
	}

	session, err := resolveSession(opts.account)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.File != "" {
		m = metrics.New(prometheus.NewRegistry())
	}

	clientOpts := []instagram.Option{
		instagram.WithBaseURL(cfg.Instagram.BaseURL),
		instagram.WithPacer(ratelimit.NewPacer(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)),
	}
	if m != nil {
		clientOpts = append(clientOpts, instagram.WithObserver(m))
	}
	client := instagram.NewClient(cfg.Instagram.RequestTimeout, log, clientOpts...)
	client.SetHeaders(map[string]string{
		"User-Agent":  cfg.Instagram.UserAgent,
		"X-IG-App-ID": cfg.Instagram.AppID,
	})

	var sinks comments.MultiSink
	if cfg.Output.Progress {
		sinks = append(sinks, ui.NewProgressDisplay(out, shortcode, isTerminal(out)))
	}
	if m != nil {
		sinks = append(sinks, m)
	}

	aggregator := comments.NewAggregator(client, client,
		comments.WithProgress(sinks),
		comments.WithLogger(log),
	)

	fc := comments.FetchContext{
		Shortcode:   shortcode,
		Kind:        kind,
		Credentials: session,
	}

	logger.LogComponentStart(log, "aggregator", map[string]interface{}{
		"data_format":     string(runCfg.DataFormat),
		"file_format":     string(fileFormat),
		"include_replies": runCfg.IncludeReplies,
		"min_likes":       runCfg.MinLikes,
		"max_comments":    runCfg.MaxComments,
		"dedupe":          runCfg.Dedupe,
		"per_page":        runCfg.PerPage,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	rs, runErr := aggregator.Run(ctx, fc, runCfg)
	writeMetrics(m, cfg.Metrics.File, log)
	if runErr != nil {
		log.WithError(runErr).Error("Run failed, no output written")
		printFailureHint(runErr)
		return fatalError(runErr)
	}

	if !cfg.Output.Progress {
		for _, w := range rs.Warnings {
			ui.PrintWarning(w.String())
		}
	}

	if cfg.Fetch.SortUsernames && rs.Format == comments.FormatUsernames {
		rs.Usernames = export.SortUsernames(rs.Usernames)
	}

	data, err := export.Export(rs, fileFormat)
	if err != nil {
		return fatalError(fmt.Errorf("export: %w", err))
	}

	store, name, err := storage.NewManagerForFile(cfg.Output.Path)
	if err != nil {
		return fatalError(err)
	}
	if err := store.Save(bytes.NewReader(data), name); err != nil {
		return fatalError(err)
	}
	path := store.Path(name)
	log.InfoWithFields("Output written", map[string]interface{}{
		"path":     path,
		"records":  rs.Len(),
		"replies":  rs.ReplyCount(),
		"warnings": len(rs.Warnings),
	})

	if cfg.Upload.Bucket != "" {
		if err := upload(ctx, cfg.Upload, shortcode, runID, fileFormat, data, log); err != nil {
			return fatalError(fmt.Errorf("upload: %w", err))
		}
	}

	ui.PrintSuccess(fmt.Sprintf("Saved %d records to %s", rs.Len(), path))
	return nil
}

// runConfiguration turns the loaded config into the run configuration and output format
func runConfiguration(cfg *config.Config) (comments.RunConfiguration, export.FileFormat, error) {
	dataFormat, err := comments.ParseDataFormat(cfg.Fetch.DataFormat)
	if err != nil {
		return comments.RunConfiguration{}, "", err
	}

	fileFormat := export.FormatJSON
	if cfg.Fetch.FileFormat != "" {
		fileFormat, err = export.ParseFileFormat(cfg.Fetch.FileFormat)
		if err != nil {
			return comments.RunConfiguration{}, "", err
		}
	} else if inferred, ok := export.FormatFromPath(cfg.Output.Path); ok {
		fileFormat = inferred
	}

	runCfg := comments.RunConfiguration{
		DataFormat:     dataFormat,
		IncludeReplies: cfg.Fetch.IncludeReplies,
		MinLikes:       cfg.Fetch.MinLikes,
		MaxComments:    cfg.Fetch.MaxComments,
		Dedupe:         cfg.Fetch.Dedupe,
		PerPage:        instagram.ClampPerPage(cfg.Fetch.PerPage),
	}
	if err := runCfg.Validate(); err != nil {
		return comments.RunConfiguration{}, "", err
	}
	return runCfg, fileFormat, nil
}

// resolveSession finds the cookies for the run. Missing credentials are a usage error.
func resolveSession(account string) (*auth.Session, error) {
	manager, err := newCredentialManager()
	if err != nil {
		return nil, fatalError(fmt.Errorf("failed to initialize credential manager: %w", err))
	}

	session, err := manager.Resolve(account)
	if err == nil {
		return session, nil
	}

	var missing *auth.MissingError
	if errors.As(err, &missing) {
		ui.PrintError("Missing environment variables: " + strings.Join(missing.Missing, ", "))
		ui.PrintInfo("Hint", "add them to a .env file or run 'instacomments auth save'")
	} else if errors.Is(err, auth.ErrCredentialsNotFound) {
		ui.PrintInfo("Hint", "run 'instacomments auth list' to see saved sessions")
	}
	return nil, usageError(err)
}

// promptURL asks for a URL on stdin when none was given
func promptURL(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "\nEnter an Instagram Reel or Post URL (or run with --help for examples): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read URL: %w", err)
		}
		return "", errors.New("no URL given")
	}
	return line, nil
}

func upload(ctx context.Context, cfg config.UploadConfig, shortcode, runID string, format export.FileFormat, data []byte, log logger.Logger) error {
	u, err := newUploader(ctx, storage.S3Config{
		Bucket:          cfg.Bucket,
		Prefix:          cfg.Prefix,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		UsePathStyle:    cfg.UsePathStyle,
	})
	if err != nil {
		return err
	}

	uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	res, err := u.Upload(uploadCtx, storage.UploadInput{
		Shortcode:   shortcode,
		RunID:       runID,
		Extension:   format.Extension(),
		ContentType: storage.ContentType(format.Extension()),
		Data:        data,
	})
	if err != nil {
		return err
	}

	log.InfoWithFields("Export uploaded", map[string]interface{}{
		"bucket": res.Bucket,
		"key":    res.Key,
		"size":   res.Size,
	})
	ui.PrintInfo("Uploaded", fmt.Sprintf("s3://%s/%s", res.Bucket, res.Key))
	return nil
}

// writeMetrics writes the textfile at the end of a run, successful or not
func writeMetrics(m *metrics.Metrics, path string, log logger.Logger) {
	if m == nil {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		log.WithError(err).Warn("Failed to write metrics file")
	}
}

// printFailureHint tells the user what to do next for the fetch error classes
// that have a known remedy
func printFailureHint(err error) {
	switch {
	case instagram.IsAuth(err):
		ui.PrintInfo("Hint", "run 'instacomments auth guide' to refresh your cookies")
	case instagram.IsRateLimit(err):
		ui.PrintInfo("Hint", "Instagram is rate limiting this session; wait before running again or lower --rate-limit")
	case instagram.IsNotFound(err):
		ui.PrintInfo("Hint", "check the URL; the post may be private, deleted or hidden from this account")
	case instagram.IsTransport(err):
		ui.PrintInfo("Hint", "check your network connection and the instagram.base_url setting")
	}
}
