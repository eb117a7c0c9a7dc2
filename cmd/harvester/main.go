package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"coupang-review-harvester/internal/browser"
	"coupang-review-harvester/internal/config"
	"coupang-review-harvester/internal/crawler"
	"coupang-review-harvester/internal/database"
	"coupang-review-harvester/internal/enrich"
	"coupang-review-harvester/internal/etl"
	"coupang-review-harvester/internal/models"
	"coupang-review-harvester/internal/pipeline"
	"coupang-review-harvester/internal/ratelimit"
	"coupang-review-harvester/internal/report"
	"coupang-review-harvester/pkg/logger"
)

func main() {
	var (
		action   = flag.String("action", "harvest", "Action to run: harvest, import, report")
		keyword  = flag.String("keyword", "", "Search keyword to harvest reviews for")
		pages    = flag.Int("pages", 1, "Number of search-result pages to walk")
		file     = flag.String("file", "", "Pre-harvested CSV file for the import action")
		headless = flag.Bool("headless", true, "Run the local browser in headless mode")
	)
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logg.Info("shutdown signal received")
		cancel()
	}()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logg.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := database.NewReviewStore(db)
	if err := store.CreateSchema(ctx); err != nil {
		logg.Error("failed to create schema", "error", err)
		os.Exit(1)
	}

	switch *action {
	case "harvest":
		if *keyword == "" {
			fmt.Println("harvest requires -keyword")
			flag.Usage()
			os.Exit(1)
		}
		runHarvest(ctx, cfg, logg, store, *keyword, *pages, *headless)
	case "import":
		if *file == "" {
			fmt.Println("import requires -file")
			flag.Usage()
			os.Exit(1)
		}
		runImport(ctx, logg, store, *file)
	case "report":
		runReport(ctx, cfg, logg, store)
	default:
		fmt.Printf("Unknown action %q. Use harvest, import, or report.\n", *action)
		flag.Usage()
		os.Exit(1)
	}
}

func runHarvest(ctx context.Context, cfg *config.Config, logg *slog.Logger, store *database.ReviewStore, keyword string, pages int, headless bool) {
	b, err := browser.New(&browser.Options{
		WSEndpoint:     cfg.Browser.WSEndpoint,
		Headless:       headless && cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		Locale:         cfg.Browser.Locale,
		TimezoneID:     cfg.Browser.TimezoneID,
		ProxyServer:    cfg.Proxy.Host,
		ProxyUsername:  cfg.Proxy.Username,
		ProxyPassword:  cfg.Proxy.Password,
	})
	if err != nil {
		logg.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	resolver := crawler.NewResolver(cfg.Crawler.SearchBaseURL, cfg.Crawler.ListSize, cfg.ProxyURL(), logg)
	settle := ratelimit.NewSettler(cfg.Crawler.SettleMin, cfg.Crawler.SettleMax)
	collector := crawler.NewCollector(settle, logg)
	harvester := crawler.NewHarvester(b, resolver, collector, logg)

	p := pipeline.New(harvester, etl.NewNormalizer(logg), store, logg)

	result, err := p.Run(ctx, keyword, pages)
	if err != nil {
		logg.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	if result.Collected == 0 {
		logg.Warn("no reviews collected, nothing to report")
		return
	}

	runReport(ctx, cfg, logg, store)
}

func runImport(ctx context.Context, logg *slog.Logger, store *database.ReviewStore, file string) {
	importer := etl.NewImporter(logg)
	raws, err := importer.ImportFile(file)
	if err != nil {
		logg.Error("import failed", "error", err)
		os.Exit(1)
	}
	if len(raws) == 0 {
		logg.Warn("import file contained no rows")
		return
	}

	canonical := etl.NewNormalizer(logg).Normalize(raws)
	if err := store.InsertAll(ctx, canonical); err != nil {
		logg.Error("failed to persist imported reviews", "error", err)
		os.Exit(1)
	}

	logg.Info("import finished", "reviews", len(canonical))
}

func runReport(ctx context.Context, cfg *config.Config, logg *slog.Logger, store *database.ReviewStore) {
	reviews, err := store.GetAll(ctx)
	if err != nil {
		logg.Error("failed to load reviews", "error", err)
		os.Exit(1)
	}

	labels := analyzeSentiment(ctx, cfg, logg, reviews)
	fmt.Println(report.NewGenerator().Generate(reviews, labels))
}

// analyzeSentiment labels persisted review bodies when an inference
// endpoint is configured. Any failure degrades to a report without the
// sentiment section.
func analyzeSentiment(ctx context.Context, cfg *config.Config, logg *slog.Logger, reviews []models.CanonicalReview) map[int64]string {
	analyzer := enrich.NewAnalyzer(cfg.Sentiment, logg)
	if !analyzer.Available() {
		return nil
	}

	var ids []int64
	var texts []string
	for _, r := range reviews {
		if r.Content == "" {
			continue
		}
		ids = append(ids, r.ID)
		texts = append(texts, r.Content)
	}
	if len(texts) == 0 {
		return nil
	}

	sentiments, err := analyzer.Analyze(ctx, texts)
	if err != nil {
		logg.Error("sentiment analysis failed, reporting without it", "error", err)
		return nil
	}

	labels := make(map[int64]string, len(sentiments))
	for i, s := range sentiments {
		if s == nil {
			continue
		}
		labels[ids[i]] = s.Label
	}
	return labels
}
