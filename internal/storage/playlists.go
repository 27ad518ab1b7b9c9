package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/driftnote/driftnote/internal/shared"
)

const bcryptCost = 10

// Playlist is a persisted playlist. PasswordHash is never exposed; IsProtected
// reports whether one is set.
type Playlist struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	IsPublic      bool      `json:"isPublic"`
	IsProtected   bool      `json:"isProtected"`
	SongCount     int       `json:"songCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Songs is populated by Get, ordered by position.
	Songs []PlaylistEntry `json:"songs,omitempty"`
}

// PlaylistEntry is a song's membership in a playlist.
type PlaylistEntry struct {
	ID       string    `json:"id"`
	Position int       `json:"position"`
	AddedAt  time.Time `json:"addedAt"`
	Song     Song      `json:"song"`
}

// CreatePlaylistInput carries the fields for a new playlist.
type CreatePlaylistInput struct {
	Name        string
	Description string
	IsPublic    *bool
	Password    string
	SongIDs     []string
}

// UpdatePlaylistInput carries optional mutations for an existing playlist.
type UpdatePlaylistInput struct {
	Name           *string
	Description    *string
	IsPublic       *bool
	Password       string
	RemovePassword bool
}

// PlaylistRepository handles persistence for playlists and their memberships.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection.
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist, hashing the password when one is supplied,
// and attaching the initial songs in the given order.
func (r *PlaylistRepository) Create(input CreatePlaylistInput) (*Playlist, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	var passwordHash any
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = string(hash)
	}

	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}

	id := shared.GenerateID()
	now := time.Now().UTC()

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO playlists (id, name, description, is_public, password_hash, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		id, input.Name, nullable(input.Description), isPublic, passwordHash, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert playlist: %w", err)
	}

	for i, songID := range input.SongIDs {
		_, err = tx.Exec(`
			INSERT INTO playlist_songs (id, playlist_id, song_id, position, added_at)
			VALUES (?, ?, ?, ?, ?)`,
			shared.GenerateID(), id, songID, i, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to attach song %s: %w", songID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit playlist: %w", err)
	}

	return r.Get(id, input.Password)
}

// List retrieves playlists with song counts, newest-updated first. Private
// playlists are included only when includePrivate is set. Song lists are not
// populated.
func (r *PlaylistRepository) List(includePrivate bool) ([]Playlist, error) {
	where := `is_deleted = 0`
	if !includePrivate {
		where += ` AND is_public = 1`
	}

	rows, err := r.db.Query(`
		SELECT p.id, p.name, p.description, p.cover_image_url, p.is_public,
		       p.password_hash IS NOT NULL, p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM playlist_songs ps WHERE ps.playlist_id = p.id)
		FROM playlists p
		WHERE ` + where + `
		ORDER BY p.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		var description, cover sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description, &cover, &p.IsPublic,
			&p.IsProtected, &p.CreatedAt, &p.UpdatedAt, &p.SongCount); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		p.Description = description.String
		p.CoverImageURL = cover.String
		playlists = append(playlists, p)
	}

	return playlists, rows.Err()
}

// Get retrieves a playlist with its songs ordered by position. Protected,
// non-public playlists require the correct password.
func (r *PlaylistRepository) Get(id, password string) (*Playlist, error) {
	var p Playlist
	var description, cover, passwordHash sql.NullString

	err := r.db.QueryRow(`
		SELECT id, name, description, cover_image_url, is_public, password_hash, created_at, updated_at
		FROM playlists
		WHERE id = ? AND is_deleted = 0`, id).
		Scan(&p.ID, &p.Name, &description, &cover, &p.IsPublic, &passwordHash, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	p.Description = description.String
	p.CoverImageURL = cover.String
	p.IsProtected = passwordHash.Valid

	// Public protected playlists are readable without the password; the
	// password only gates mutation.
	if p.IsProtected && !p.IsPublic {
		if err := checkPassword(passwordHash.String, password); err != nil {
			return nil, err
		}
	}

	rows, err := r.db.Query(`
		SELECT ps.id, ps.position, ps.added_at, `+prefixColumns("s", songColumns)+`
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		WHERE ps.playlist_id = ?
		ORDER BY ps.position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist songs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry PlaylistEntry
		var song Song
		var title, artist, album, thumbnail sql.NullString
		var duration sql.NullFloat64
		var lastSynced sql.NullTime

		err := rows.Scan(&entry.ID, &entry.Position, &entry.AddedAt,
			&song.ID, &song.DriveFileID, &song.Name, &title, &artist, &album, &duration,
			&song.MimeType, &song.Size, &thumbnail, &song.CreatedAt, &song.UpdatedAt, &lastSynced)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist song: %w", err)
		}

		song.Title = title.String
		song.Artist = artist.String
		song.Album = album.String
		song.ThumbnailURL = thumbnail.String
		song.Duration = duration.Float64
		if lastSynced.Valid {
			t := lastSynced.Time
			song.LastSyncedAt = &t
		}

		entry.Song = song
		p.Songs = append(p.Songs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	p.SongCount = len(p.Songs)
	return &p, nil
}

// Update mutates playlist fields after verifying the password.
func (r *PlaylistRepository) Update(id string, input UpdatePlaylistInput, password string) (*Playlist, error) {
	if err := r.authorize(id, password); err != nil {
		return nil, err
	}

	set := `updated_at = ?`
	args := []any{time.Now().UTC()}

	if input.Name != nil {
		set += `, name = ?`
		args = append(args, *input.Name)
	}
	if input.Description != nil {
		set += `, description = ?`
		args = append(args, nullable(*input.Description))
	}
	if input.IsPublic != nil {
		set += `, is_public = ?`
		args = append(args, *input.IsPublic)
	}
	if input.RemovePassword {
		set += `, password_hash = NULL`
	} else if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		set += `, password_hash = ?`
		args = append(args, string(hash))
	}

	args = append(args, id)
	if _, err := r.db.Exec(`UPDATE playlists SET `+set+` WHERE id = ? AND is_deleted = 0`, args...); err != nil {
		return nil, fmt.Errorf("failed to update playlist: %w", err)
	}

	// Read back with the new password if it changed.
	readPassword := password
	if input.Password != "" {
		readPassword = input.Password
	}
	return r.Get(id, readPassword)
}

// Delete soft-deletes a playlist after verifying the password.
func (r *PlaylistRepository) Delete(id, password string) error {
	if err := r.authorize(id, password); err != nil {
		return err
	}

	_, err := r.db.Exec(`UPDATE playlists SET is_deleted = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return nil
}

// VerifyPassword reports whether the password unlocks the playlist. A playlist
// without a password accepts anything.
func (r *PlaylistRepository) VerifyPassword(id, password string) (bool, error) {
	var passwordHash sql.NullString
	err := r.db.QueryRow(`SELECT password_hash FROM playlists WHERE id = ?`, id).Scan(&passwordHash)
	if err == sql.ErrNoRows {
		return false, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read playlist: %w", err)
	}

	if !passwordHash.Valid {
		return true, nil
	}

	return bcrypt.CompareHashAndPassword([]byte(passwordHash.String), []byte(password)) == nil, nil
}

// AddSongs appends songs to the playlist after the current last position,
// skipping ids already present.
func (r *PlaylistRepository) AddSongs(id string, songIDs []string, password string) error {
	if err := r.authorize(id, password); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxPosition sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(position) FROM playlist_songs WHERE playlist_id = ?`, id).Scan(&maxPosition); err != nil {
		return fmt.Errorf("failed to read positions: %w", err)
	}
	next := int(maxPosition.Int64)
	if maxPosition.Valid {
		next++
	}

	now := time.Now().UTC()
	for _, songID := range songIDs {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM playlist_songs WHERE playlist_id = ? AND song_id = ?)`,
			id, songID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if exists {
			continue
		}

		_, err := tx.Exec(`
			INSERT INTO playlist_songs (id, playlist_id, song_id, position, added_at)
			VALUES (?, ?, ?, ?, ?)`,
			shared.GenerateID(), id, songID, next, now)
		if err != nil {
			return fmt.Errorf("failed to add song %s: %w", songID, err)
		}
		next++
	}

	if _, err := tx.Exec(`UPDATE playlists SET updated_at = ? WHERE id = ?`, now, id); err != nil {
		return fmt.Errorf("failed to touch playlist: %w", err)
	}

	return tx.Commit()
}

// RemoveSong removes a song from the playlist and compacts the positions of
// everything that followed it.
func (r *PlaylistRepository) RemoveSong(id, songID, password string) error {
	if err := r.authorize(id, password); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRow(`SELECT position FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`,
		id, songID).Scan(&position)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find song: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`, id, songID); err != nil {
		return fmt.Errorf("failed to remove song: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE playlist_songs SET position = position - 1
		WHERE playlist_id = ? AND position > ?`, id, position); err != nil {
		return fmt.Errorf("failed to compact positions: %w", err)
	}

	if _, err := tx.Exec(`UPDATE playlists SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to touch playlist: %w", err)
	}

	return tx.Commit()
}

// Reorder rewrites every membership position to match the given song id order
// in a single transaction. Song ids not in the playlist are ignored.
func (r *PlaylistRepository) Reorder(id string, songIDs []string, password string) error {
	if err := r.authorize(id, password); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for position, songID := range songIDs {
		if _, err := tx.Exec(`
			UPDATE playlist_songs SET position = ?
			WHERE playlist_id = ? AND song_id = ?`, position, id, songID); err != nil {
			return fmt.Errorf("failed to set position for %s: %w", songID, err)
		}
	}

	if _, err := tx.Exec(`UPDATE playlists SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to touch playlist: %w", err)
	}

	return tx.Commit()
}

// authorize verifies the password against a playlist's stored hash. Playlists
// without a password allow all mutations.
func (r *PlaylistRepository) authorize(id, password string) error {
	var passwordHash sql.NullString
	err := r.db.QueryRow(`SELECT password_hash FROM playlists WHERE id = ? AND is_deleted = 0`, id).Scan(&passwordHash)
	if err == sql.ErrNoRows {
		return shared.ErrPlaylistNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read playlist: %w", err)
	}

	if !passwordHash.Valid {
		return nil
	}

	return checkPassword(passwordHash.String, password)
}

func checkPassword(hash, password string) error {
	if password == "" {
		return shared.ErrPasswordRequired
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return shared.ErrInvalidPassword
	}
	return nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}
