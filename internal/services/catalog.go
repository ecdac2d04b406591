package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/desertthunder/catx/internal/models"
)

// Catalog endpoints.
const (
	ArtistsPath   = "/v1/artista"
	AlbumsPath    = "/v1/album"
	RegionalsPath = "/v1/regional"
)

// PageQuery selects a page of a listing. Zero values are left to the backend defaults.
type PageQuery struct {
	Page int
	Size int
	Sort string // e.g. "nome,asc"
}

func (q PageQuery) encode() string {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// CatalogService reads catalog listings through an [APIService].
type CatalogService struct {
	api *APIService
}

func NewCatalogService(api *APIService) *CatalogService {
	return &CatalogService{api: api}
}

// Artists returns a page of artists.
func (c *CatalogService) Artists(ctx context.Context, q PageQuery) (*models.Page[models.Artist], error) {
	return getPage[models.Artist](ctx, c.api, ArtistsPath+q.encode())
}

// SearchArtists returns a page of artists whose name matches name.
func (c *CatalogService) SearchArtists(ctx context.Context, name string, q PageQuery) (*models.Page[models.Artist], error) {
	query := q.encode()
	sep := "?"
	if query != "" {
		sep = "&"
	}
	return getPage[models.Artist](ctx, c.api, ArtistsPath+"/buscar"+query+sep+"nome="+url.QueryEscape(name))
}

// Artist returns a single artist with its albums.
func (c *CatalogService) Artist(ctx context.Context, id int64) (*models.Artist, error) {
	var artist models.Artist
	if err := getJSON(ctx, c.api, fmt.Sprintf("%s/%d", ArtistsPath, id), &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// Albums returns a page of albums.
func (c *CatalogService) Albums(ctx context.Context, q PageQuery) (*models.Page[models.Album], error) {
	return getPage[models.Album](ctx, c.api, AlbumsPath+q.encode())
}

// Regionals returns a page of regionals.
func (c *CatalogService) Regionals(ctx context.Context, q PageQuery) (*models.Page[models.Regional], error) {
	return getPage[models.Regional](ctx, c.api, RegionalsPath+q.encode())
}

func getPage[T any](ctx context.Context, api *APIService, path string) (*models.Page[T], error) {
	var page models.Page[T]
	if err := getJSON(ctx, api, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func getJSON(ctx context.Context, api *APIService, path string, out any) error {
	resp, err := api.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
