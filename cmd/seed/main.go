package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"searchsync/internal/config"
	"searchsync/internal/contentcache"
	"searchsync/internal/domain/models"
	"searchsync/internal/domain/repositories"
	"searchsync/internal/repository/postgres"

	loremgen "github.com/bozaro/golorem"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	storeCount := flag.Int("stores", 2, "Number of filestores to create")
	docCount := flag.Int("docs", 8, "Number of documents per filestore")
	clearData := flag.Bool("clear", false, "Delete existing filestores and documents first")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: never seed a production database
	if cfg.Environment == "prod" || cfg.Environment == "production" {
		log.Fatalf("🚫 BLOCKED: Cannot seed in production environment")
	}

	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required")
	}

	// Repositories log through slog; keep seed output on the plain logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	log.Printf("🌱 Seeding database (environment: %s)", cfg.Environment)

	ctx := context.Background()

	// Ensure the schema exists before touching tables
	if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames()

	if *clearData {
		log.Println("🧹 Clearing existing filestores and documents...")
		if err := clearAll(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared")
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}

	s := &seeder{
		lorem:     loremgen.New(),
		storeRepo: postgres.NewFilestoreRepository(repoConfig),
		docRepo:   postgres.NewDocumentRepository(repoConfig),
		cache:     contentcache.New(cfg.CacheDir),
	}

	log.Printf("📝 Creating %d filestores with %d documents each...", *storeCount, *docCount)

	for i := 0; i < *storeCount; i++ {
		store, err := s.createStore(ctx, i)
		if err != nil {
			log.Printf("❌ Failed to create filestore %d: %v", i+1, err)
			continue
		}
		log.Printf("✅ Created filestore %d/%d: %s (ID: %d, remote: %v)",
			i+1, *storeCount, store.DisplayName, store.ID, store.Name != nil)

		uploaded, failed, pending := 0, 0, 0
		var totalBytes int64
		for j := 0; j < *docCount; j++ {
			doc, outcome, err := s.createDocument(ctx, store, j)
			if err != nil {
				log.Printf("❌ Failed to create document %d in store %d: %v", j+1, store.ID, err)
				continue
			}
			switch outcome {
			case outcomeUploaded:
				uploaded++
				totalBytes += doc.Size
			case outcomeFailed:
				failed++
			default:
				pending++
			}
		}
		log.Printf("   📄 %d documents: %d uploaded, %d failed, %d pending",
			uploaded+failed+pending, uploaded, failed, pending)

		// Mirror plausible remote aggregates onto stores that have a remote name
		if store.Name != nil {
			if err := s.refreshAggregates(ctx, store, uploaded, pending, failed, totalBytes); err != nil {
				log.Printf("⚠️  Could not update aggregates for store %d: %v", store.ID, err)
			}
		}
	}

	log.Println("🎉 Seeding complete!")
}

type outcome int

const (
	outcomePending outcome = iota
	outcomeUploaded
	outcomeFailed
)

// seedCategories rotate across documents; the empty one leaves the column NULL.
var seedCategories = []string{"papers", "notes", "", "reference"}

type seeder struct {
	lorem     *loremgen.Lorem
	storeRepo repositories.FilestoreRepository
	docRepo   repositories.DocumentRepository
	cache     *contentcache.Cache
}

// createStore inserts a filestore row. Every other store gets a fabricated
// remote name so listings show both provisioned and local-only stores.
func (s *seeder) createStore(ctx context.Context, i int) (*models.Filestore, error) {
	store := &models.Filestore{
		DisplayName: titleCase(s.lorem.Sentence(2, 3)),
	}
	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, err
	}

	if i%2 == 0 {
		now := time.Now().UTC().Truncate(time.Microsecond)
		remoteName := fmt.Sprintf("fileSearchStores/seed-%s", uuid.New().String())
		mirror := &models.RemoteStoreMirror{
			DisplayName: store.DisplayName,
			CreateTime:  &now,
			UpdateTime:  &now,
		}
		if err := s.storeRepo.SetRemote(ctx, store.ID, nil, remoteName, mirror); err != nil {
			return nil, err
		}
	}

	return s.storeRepo.GetByID(ctx, store.ID, nil)
}

// createDocument writes a lorem-markdown blob through the content cache and
// inserts its row, then pushes it into one of the three lifecycle outcomes.
func (s *seeder) createDocument(ctx context.Context, store *models.Filestore, j int) (*models.Document, outcome, error) {
	title := strings.TrimSuffix(s.lorem.Sentence(2, 4), ".")
	content := []byte(fmt.Sprintf("# %s\n\n%s\n\n%s\n",
		title, s.lorem.Paragraph(3, 5), s.lorem.Paragraph(2, 4)))
	displayName := slug(title) + ".md"

	hash := contentcache.Fingerprint(content)
	mimeType := contentcache.ResolveMIME(displayName, content)
	ext := contentcache.ExtensionFor(displayName, mimeType)
	storedName := contentcache.FileName(hash, ext)
	url := contentcache.URLPath(hash, ext)

	err := s.cache.Store(hash, ext, content, contentcache.Info{
		Date: time.Now().Unix(),
		URL:  url,
		Size: int64(len(content)),
		Type: mimeType,
		Name: displayName,
	})
	if err != nil {
		return nil, outcomePending, err
	}

	doc := &models.Document{
		FilestoreID: store.ID,
		Filename:    storedName,
		URL:         url,
		Hash:        hash,
		Size:        int64(len(content)),
		DisplayName: displayName,
		MimeType:    &mimeType,
	}
	if category := seedCategories[j%len(seedCategories)]; category != "" {
		doc.Category = &category
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, outcomePending, err
	}

	// Mix of outcomes: half uploaded (when the store has a remote name),
	// a quarter failed, the rest left pending for the worker
	switch {
	case j%4 < 2 && store.Name != nil:
		started := time.Now().Add(-2 * time.Minute)
		if err := s.docRepo.MarkStarted(ctx, doc.ID, nil, started); err != nil {
			return nil, outcomePending, err
		}
		remoteName := fmt.Sprintf("%s/documents/%s", *store.Name, uuid.New().String())
		if err := s.docRepo.MarkUploaded(ctx, doc.ID, nil, started.Add(time.Minute), remoteName); err != nil {
			return nil, outcomePending, err
		}
		return doc, outcomeUploaded, nil
	case j%4 == 2:
		if err := s.docRepo.MarkStarted(ctx, doc.ID, nil, time.Now().Add(-time.Minute)); err != nil {
			return nil, outcomePending, err
		}
		if err := s.docRepo.SetError(ctx, doc.ID, nil, "remote upload failed: INVALID_ARGUMENT: unsupported mime type"); err != nil {
			return nil, outcomePending, err
		}
		return doc, outcomeFailed, nil
	default:
		return doc, outcomePending, nil
	}
}

// refreshAggregates writes fabricated remote counters so store listings look
// like a worker pass already ran.
func (s *seeder) refreshAggregates(ctx context.Context, store *models.Filestore, active, pending, failed int, sizeBytes int64) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return s.storeRepo.UpdateRemoteMirror(ctx, store.ID, nil, &models.RemoteStoreMirror{
		DisplayName:           store.DisplayName,
		CreateTime:            store.CreateTime,
		UpdateTime:            &now,
		ActiveDocumentsCount:  int64Ptr(int64(active)),
		PendingDocumentsCount: int64Ptr(int64(pending)),
		FailedDocumentsCount:  int64Ptr(int64(failed)),
		SizeBytes:             int64Ptr(sizeBytes),
	})
}

// clearAll removes every document and filestore row (documents first, they
// reference stores)
func clearAll(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Documents); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Filestores); err != nil {
		return err
	}
	return nil
}

// slug turns a lorem phrase into a filename-safe stem
func slug(phrase string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(phrase), " ", "-"))
}

// titleCase capitalizes each word of a lorem phrase for display names
func titleCase(phrase string) string {
	words := strings.Fields(strings.TrimSuffix(phrase, "."))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// int64Ptr returns a pointer to an int64
func int64Ptr(n int64) *int64 {
	return &n
}
