package models

import (
	"fmt"
	"strconv"
)

// Artist mirrors the catalog API artist payload.
type Artist struct {
	ID         int64   `json:"id"`
	Name       string  `json:"nome"`
	AlbumCount int     `json:"quantidadeAlbuns"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
	Albums     []Album `json:"albuns,omitempty"`
}

// Album mirrors the catalog API album payload.
type Album struct {
	ID         int64  `json:"id"`
	Name       string `json:"nome"`
	ArtistID   int64  `json:"artistaId"`
	RegionalID int64  `json:"regionalId"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// Regional mirrors the catalog API regional payload.
type Regional struct {
	ID        int64  `json:"id"`
	Name      string `json:"nome"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Page is the paginated envelope returned by list endpoints.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
	CurrentPage   int `json:"currentPage"`
	PageSize      int `json:"pageSize"`
}

// Row is a flattened catalog record used for rendering.
type Row struct {
	ID     int64
	Name   string
	Detail string
}

// ArtistRows flattens artists for rendering.
func ArtistRows(artists []Artist) []Row {
	rows := make([]Row, len(artists))
	for i, a := range artists {
		rows[i] = Row{ID: a.ID, Name: a.Name, Detail: albumCount(a.AlbumCount)}
	}
	return rows
}

// AlbumRows flattens albums for rendering.
func AlbumRows(albums []Album) []Row {
	rows := make([]Row, len(albums))
	for i, a := range albums {
		rows[i] = Row{ID: a.ID, Name: a.Name, Detail: "artist #" + strconv.FormatInt(a.ArtistID, 10)}
	}
	return rows
}

// RegionalRows flattens regionals for rendering.
func RegionalRows(regionals []Regional) []Row {
	rows := make([]Row, len(regionals))
	for i, r := range regionals {
		rows[i] = Row{ID: r.ID, Name: r.Name}
	}
	return rows
}

func albumCount(n int) string {
	if n == 1 {
		return "1 album"
	}
	return fmt.Sprintf("%d albums", n)
}
