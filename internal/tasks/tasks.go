// package tasks implements concurrent catalog operations.
package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/catx/internal/formatter"
	"github.com/desertthunder/catx/internal/models"
	"github.com/desertthunder/catx/internal/services"
	"github.com/desertthunder/catx/internal/shared"
)

// Catalog is the subset of [services.CatalogService] the engine needs.
type Catalog interface {
	Artists(ctx context.Context, q services.PageQuery) (*models.Page[models.Artist], error)
	Albums(ctx context.Context, q services.PageQuery) (*models.Page[models.Album], error)
	Regionals(ctx context.Context, q services.PageQuery) (*models.Page[models.Regional], error)
}

// SnapshotOpts configures [CatalogEngine.Snapshot].
type SnapshotOpts struct {
	Pages       int  // pages per listing (default: 1)
	PageSize    int  // entries per page; 0 keeps the backend default
	Workers     int  // concurrent requests (default: 3)
	StopOnError bool // abort remaining fetches on the first failure
}

// EndpointResult represents the failure of fetching a single listing page.
type EndpointResult struct {
	Listing string `json:"listing"`
	Page    int    `json:"page"`
	Error   error  `json:"-"`
	Message string `json:"error"`
}

// SnapshotResult holds every fetched listing page, keyed by listing name in fetch order.
type SnapshotResult struct {
	Listings []formatter.Listing
	Errors   []EndpointResult
	Elapsed  time.Duration
}

// Listing names.
const (
	ListingArtists   = "artists"
	ListingAlbums    = "albums"
	ListingRegionals = "regionals"
)

type fetchJob struct {
	listing string
	page    int
	phase   Phase
}

// CatalogEngine runs catalog operations against a [Catalog].
type CatalogEngine struct {
	catalog Catalog
}

// NewCatalogEngine creates a new CatalogEngine with the provided catalog client.
func NewCatalogEngine(catalog Catalog) *CatalogEngine {
	return &CatalogEngine{catalog: catalog}
}

// Snapshot fetches the first opts.Pages pages of every listing concurrently.
func (e *CatalogEngine) Snapshot(ctx context.Context, progress chan<- ProgressUpdate, opts SnapshotOpts) (*SnapshotResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog client not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Pages <= 0 {
		opts.Pages = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = 3
	}

	var jobs []fetchJob
	for _, l := range []struct {
		name  string
		phase Phase
	}{{ListingArtists, FetchArtists}, {ListingAlbums, FetchAlbums}, {ListingRegionals, FetchRegionals}} {
		for page := range opts.Pages {
			jobs = append(jobs, fetchJob{listing: l.name, page: page, phase: l.phase})
		}
	}

	start := time.Now()
	listings := make([]*formatter.Listing, len(jobs))
	failures := make([]*EndpointResult, len(jobs))

	var g *errgroup.Group
	if opts.StopOnError {
		g, ctx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	g.SetLimit(opts.Workers)

	var mu sync.Mutex
	completed := 0
	for i, job := range jobs {
		g.Go(func() error {
			sendProgress(progress, fetchStartedUpdate(job, i+1, len(jobs)))

			listing, err := e.fetch(ctx, job, opts.PageSize)
			if listing != nil {
				listing.Page = job.page
			}

			mu.Lock()
			completed++
			step := completed
			mu.Unlock()
			sendProgress(progress, fetchFinishedUpdate(job, step, len(jobs), err))

			if err != nil {
				failures[i] = &EndpointResult{Listing: job.listing, Page: job.page, Error: err, Message: err.Error()}
				if opts.StopOnError {
					return fmt.Errorf("%s page %d: %w", job.listing, job.page+1, err)
				}
				return nil
			}
			listings[i] = listing
			return nil
		})
	}

	err := g.Wait()

	result := &SnapshotResult{Elapsed: time.Since(start)}
	for i := range jobs {
		if listings[i] != nil {
			result.Listings = append(result.Listings, *listings[i])
		}
		if failures[i] != nil {
			result.Errors = append(result.Errors, *failures[i])
		}
	}

	sendProgress(progress, doneUpdate(len(result.Listings), len(result.Errors)))
	if err != nil {
		return result, err
	}
	return result, nil
}

func (e *CatalogEngine) fetch(ctx context.Context, job fetchJob, size int) (*formatter.Listing, error) {
	q := services.PageQuery{Page: job.page, Size: size}

	switch job.listing {
	case ListingArtists:
		page, err := e.catalog.Artists(ctx, q)
		if err != nil {
			return nil, err
		}
		l := formatter.NewListing("Artists", page, models.ArtistRows(page.Content))
		return &l, nil
	case ListingAlbums:
		page, err := e.catalog.Albums(ctx, q)
		if err != nil {
			return nil, err
		}
		l := formatter.NewListing("Albums", page, models.AlbumRows(page.Content))
		return &l, nil
	case ListingRegionals:
		page, err := e.catalog.Regionals(ctx, q)
		if err != nil {
			return nil, err
		}
		l := formatter.NewListing("Regionals", page, models.RegionalRows(page.Content))
		return &l, nil
	default:
		return nil, fmt.Errorf("%w: unknown listing %q", shared.ErrInvalidInput, job.listing)
	}
}

// ExportOpts configures [CatalogEngine.Export].
type ExportOpts struct {
	SnapshotOpts
	Format    string // text, csv, markdown, json (default: markdown)
	OutputDir string // default: catalog_export_{epoch}
}

// ExportResult lists the files written by an export.
type ExportResult struct {
	OutputDirectory string           `json:"output_directory"`
	Files           []string         `json:"files"`
	Errors          []EndpointResult `json:"errors,omitempty"`
	ManifestPath    string           `json:"-"`
}

// Export takes a snapshot and writes one file per listing page plus export_manifest.json.
func (e *CatalogEngine) Export(ctx context.Context, progress chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatMarkdown
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("catalog_export_%d", time.Now().Unix())
	}

	snapshot, err := e.Snapshot(ctx, progress, opts.SnapshotOpts)
	if snapshot == nil {
		return nil, err
	}

	result := &ExportResult{OutputDirectory: opts.OutputDir, Errors: snapshot.Errors}
	for i, l := range snapshot.Listings {
		name := fmt.Sprintf("%s_page_%d", slug(l.Title), l.Page+1)
		path, werr := formatter.WriteListing(l, opts.Format, opts.OutputDir, name)
		if werr != nil {
			return result, werr
		}
		result.Files = append(result.Files, path)
		sendProgress(progress, writeFileUpdate(i+1, len(snapshot.Listings), path))
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if werr := formatter.WriteManifest(result, manifestPath); werr != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", werr)
	}
	result.ManifestPath = manifestPath
	return result, err
}

func slug(title string) string {
	switch title {
	case "Artists":
		return ListingArtists
	case "Albums":
		return ListingAlbums
	case "Regionals":
		return ListingRegionals
	default:
		return "listing"
	}
}
