// Package library keeps the local song catalog in step with the cloud drive.
package library

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/driftnote/driftnote/internal/drive"
	"github.com/driftnote/driftnote/internal/storage"
	"github.com/driftnote/driftnote/internal/track"
)

// Syncer walks the drive folder and upserts every audio file into the song
// catalog.
type Syncer struct {
	drive  drive.Client
	songs  *storage.SongRepository
	logger *log.Logger
}

func NewSyncer(driveClient drive.Client, songs *storage.SongRepository, logger *log.Logger) *Syncer {
	return &Syncer{drive: driveClient, songs: songs, logger: logger}
}

// Sync pages through the drive folder and returns how many songs were
// written. A failed upsert is logged and skipped so one bad file cannot stall
// the whole run.
func (s *Syncer) Sync(ctx context.Context, folderID string) (int, error) {
	synced := 0
	pageToken := ""

	for {
		page, err := s.drive.List(ctx, folderID, pageToken)
		if err != nil {
			return synced, fmt.Errorf("failed to list drive folder: %w", err)
		}

		for _, file := range page.Files {
			song := storage.Song{
				DriveFileID:  file.ID,
				Name:         file.Name,
				Title:        track.ExtractTitle(file.Name),
				MimeType:     file.MimeType,
				Size:         file.Size,
				ThumbnailURL: file.ThumbnailURL,
			}

			if err := s.songs.Upsert(&song); err != nil {
				s.logger.Error("failed to sync song", "name", file.Name, "error", err)
				continue
			}
			synced++
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	s.logger.Info("library sync complete", "songs", synced)
	return synced, nil
}
