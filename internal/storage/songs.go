package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/driftnote/driftnote/internal/shared"
	"github.com/driftnote/driftnote/internal/track"
)

// Song is a persisted library entry backed by a drive file.
type Song struct {
	ID           string     `json:"id"`
	DriveFileID  string     `json:"driveFileId"`
	Name         string     `json:"name"`
	Title        string     `json:"title,omitempty"`
	Artist       string     `json:"artist,omitempty"`
	Album        string     `json:"album,omitempty"`
	Duration     float64    `json:"duration,omitempty"`
	MimeType     string     `json:"mimeType"`
	Size         int64      `json:"size"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// Track converts the persisted song into the queue's Track value.
func (s Song) Track() track.Track {
	return track.Track{
		ID:              s.ID,
		DriveFileID:     s.DriveFileID,
		Name:            s.Name,
		Title:           s.Title,
		Artist:          s.Artist,
		Album:           s.Album,
		DurationSeconds: s.Duration,
		MimeType:        s.MimeType,
		Size:            s.Size,
		ThumbnailURL:    s.ThumbnailURL,
	}
}

// SongFilter narrows List results.
type SongFilter struct {
	Search string
	Artist string
	Album  string
	Limit  int
	Offset int
}

// SongRepository handles persistence for library songs.
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new SongRepository with the given database connection.
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

const songColumns = `id, drive_file_id, name, title, artist, album, duration, mime_type, size, thumbnail_url, created_at, updated_at, last_synced_at`

// Upsert inserts the song or, if a row with the same drive file id exists,
// refreshes its metadata. Used by the drive sync so repeated syncs are
// idempotent.
func (r *SongRepository) Upsert(song *Song) error {
	now := time.Now().UTC()

	existing, err := r.GetByDriveFileID(song.DriveFileID)
	if err != nil && err != shared.ErrSongNotFound {
		return err
	}

	if existing != nil {
		song.ID = existing.ID
		song.CreatedAt = existing.CreatedAt
		song.UpdatedAt = now
		song.LastSyncedAt = &now

		_, err = r.db.Exec(`
			UPDATE songs
			SET name = ?, title = ?, artist = ?, album = ?, duration = ?, mime_type = ?,
			    size = ?, thumbnail_url = ?, updated_at = ?, last_synced_at = ?
			WHERE drive_file_id = ?`,
			song.Name, nullable(song.Title), nullable(song.Artist), nullable(song.Album),
			nullFloat(song.Duration), song.MimeType, song.Size, nullable(song.ThumbnailURL),
			now, now, song.DriveFileID,
		)
		if err != nil {
			return fmt.Errorf("failed to update song: %w", err)
		}
		return nil
	}

	if song.ID == "" {
		song.ID = shared.GenerateID()
	}
	song.CreatedAt = now
	song.UpdatedAt = now
	song.LastSyncedAt = &now

	_, err = r.db.Exec(`
		INSERT INTO songs (`+songColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		song.ID, song.DriveFileID, song.Name, nullable(song.Title), nullable(song.Artist),
		nullable(song.Album), nullFloat(song.Duration), song.MimeType, song.Size,
		nullable(song.ThumbnailURL), now, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	return nil
}

// Get retrieves a song by its database id.
func (r *SongRepository) Get(id string) (*Song, error) {
	row := r.db.QueryRow(`SELECT `+songColumns+` FROM songs WHERE id = ?`, id)
	return scanSong(row)
}

// GetByDriveFileID retrieves a song by its upstream drive file id.
func (r *SongRepository) GetByDriveFileID(driveFileID string) (*Song, error) {
	row := r.db.QueryRow(`SELECT `+songColumns+` FROM songs WHERE drive_file_id = ?`, driveFileID)
	return scanSong(row)
}

// List retrieves songs matching the filter, ordered by name, and the total
// count for the filter (for paging).
func (r *SongRepository) List(filter SongFilter) ([]Song, int, error) {
	where := "1=1"
	args := []any{}

	if filter.Search != "" {
		where += ` AND (name LIKE ? OR title LIKE ? OR artist LIKE ? OR album LIKE ?)`
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like, like)
	}
	if filter.Artist != "" {
		where += ` AND artist LIKE ?`
		args = append(args, "%"+filter.Artist+"%")
	}
	if filter.Album != "" {
		where += ` AND album LIKE ?`
		args = append(args, "%"+filter.Album+"%")
	}

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM songs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count songs: %w", err)
	}

	query := `SELECT ` + songColumns + ` FROM songs WHERE ` + where + ` ORDER BY name ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, 0, err
		}
		songs = append(songs, *song)
	}

	return songs, total, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSong(row scanner) (*Song, error) {
	var s Song
	var title, artist, album, thumbnail sql.NullString
	var duration sql.NullFloat64
	var lastSynced sql.NullTime

	err := row.Scan(&s.ID, &s.DriveFileID, &s.Name, &title, &artist, &album, &duration,
		&s.MimeType, &s.Size, &thumbnail, &s.CreatedAt, &s.UpdatedAt, &lastSynced)
	if err == sql.ErrNoRows {
		return nil, shared.ErrSongNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}

	s.Title = title.String
	s.Artist = artist.String
	s.Album = album.String
	s.ThumbnailURL = thumbnail.String
	s.Duration = duration.Float64
	if lastSynced.Valid {
		t := lastSynced.Time
		s.LastSyncedAt = &t
	}

	return &s, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}
