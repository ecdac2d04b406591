// Package models defines domain entities and persistence interfaces for catx.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): lightweight structs mirroring catalog API payloads
//   - [Artist] : an artist with its album count
//   - [Album] : an album linked to an artist and a regional
//   - [Regional] : a region albums are released in
//   - [Page] : the paginated envelope every list endpoint returns
//
// 2. Persistent Entities: database-backed models with full lifecycle management
//   - [RefreshCredential] : a refresh token with an explicit lifetime
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft delete support.
// The [Repository] interface defines standard CRUD operations for database access.
package models
