package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

// ErrNoSuchRoom is returned when a lookup by id/code finds nothing.
var ErrNoSuchRoom = errors.New("store: no such room")

// ErrPhaseMismatch is returned by TransitionPhase when the room's
// current phase no longer matches the expected "from" phase — the
// caller lost the race and must re-read before retrying.
var ErrPhaseMismatch = errors.New("store: phase mismatch, lost the race")

const schemaDDL = `
CREATE TABLE IF NOT EXISTS rooms (
	id                    BIGSERIAL PRIMARY KEY,
	code                  TEXT UNIQUE NOT NULL,
	owner_id              TEXT NOT NULL,
	max_players           INT NOT NULL,
	is_public             BOOLEAN NOT NULL DEFAULT false,
	game_mode             TEXT NOT NULL,
	language              TEXT NOT NULL DEFAULT 'english',
	script                TEXT NOT NULL DEFAULT 'roman',
	country               TEXT NOT NULL DEFAULT '',
	category              JSONB NOT NULL DEFAULT '[]',
	entry_points          INT NOT NULL DEFAULT 0,
	target_points         INT NOT NULL DEFAULT 0,
	voice_enabled         BOOLEAN NOT NULL DEFAULT false,
	status                TEXT NOT NULL DEFAULT 'lobby',
	current_round         INT NOT NULL DEFAULT 0,
	round_phase           TEXT NOT NULL DEFAULT '',
	round_phase_end_time  TIMESTAMPTZ,
	current_drawer_id     TEXT NOT NULL DEFAULT '',
	last_drawer_id        TEXT NOT NULL DEFAULT '',
	current_word          TEXT NOT NULL DEFAULT '',
	current_word_options JSONB NOT NULL DEFAULT '[]',
	drawer_pointer_index  INT NOT NULL DEFAULT 0,
	drawn_user_ids        JSONB NOT NULL DEFAULT '{}',
	used_words            JSONB NOT NULL DEFAULT '{}',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS participants (
	room_id                BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id                TEXT NOT NULL,
	team                   TEXT NOT NULL DEFAULT '',
	is_drawer              BOOLEAN NOT NULL DEFAULT false,
	score                  INT NOT NULL DEFAULT 0,
	points_updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	has_guessed_this_round BOOLEAN NOT NULL DEFAULT false,
	has_paid_entry         BOOLEAN NOT NULL DEFAULT false,
	has_drawn              BOOLEAN NOT NULL DEFAULT false,
	elimination_count      INT NOT NULL DEFAULT 0,
	skip_count             INT NOT NULL DEFAULT 0,
	is_active              BOOLEAN NOT NULL DEFAULT true,
	socket_id              TEXT,
	banned_at              TIMESTAMPTZ,
	username               TEXT NOT NULL,
	joined_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (room_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         BIGSERIAL PRIMARY KEY,
	room_id    BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	username   TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at);
`

// RoomStore is the durable source of truth, one row per room, CAS'd
// through round_phase on every phase transition.
type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(ctx context.Context, dsn string) (*RoomStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &RoomStore{pool: pool}, nil
}

func (s *RoomStore) Close() {
	s.pool.Close()
}

func (s *RoomStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const roomColumns = `id, code, owner_id, max_players, is_public, game_mode, language, script,
	country, category, entry_points, target_points, voice_enabled, status, current_round,
	round_phase, round_phase_end_time, current_drawer_id, last_drawer_id, current_word,
	current_word_options, drawer_pointer_index, drawn_user_ids, used_words, created_at, updated_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var r domain.Room
	var category, wordOptions, drawnSet, usedSet []byte
	if err := row.Scan(
		&r.ID, &r.Code, &r.OwnerID, &r.MaxPlayers, &r.IsPublic, &r.GameMode, &r.Language, &r.Script,
		&r.Country, &category, &r.EntryPoints, &r.TargetPoints, &r.VoiceEnabled, &r.Status, &r.CurrentRound,
		&r.RoundPhase, &r.RoundPhaseEndTime, &r.CurrentDrawerID, &r.LastDrawerID, &r.CurrentWord,
		&wordOptions, &r.DrawerPointerIndex, &drawnSet, &usedSet, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSuchRoom
		}
		return nil, fmt.Errorf("scan room: %w", err)
	}
	if err := json.Unmarshal(category, &r.Category); err != nil {
		return nil, fmt.Errorf("unmarshal category: %w", err)
	}
	if err := json.Unmarshal(wordOptions, &r.CurrentWordOptions); err != nil {
		return nil, fmt.Errorf("unmarshal word options: %w", err)
	}
	drawn := map[string]bool{}
	if err := json.Unmarshal(drawnSet, &drawn); err != nil {
		return nil, fmt.Errorf("unmarshal drawn set: %w", err)
	}
	r.DrawnUserIDs = drawn
	used := map[string]bool{}
	if err := json.Unmarshal(usedSet, &used); err != nil {
		return nil, fmt.Errorf("unmarshal used words: %w", err)
	}
	r.UsedWords = used
	return &r, nil
}

// CreateRoom inserts a new lobby row and returns it with its assigned ID.
func (s *RoomStore) CreateRoom(ctx context.Context, r *domain.Room) (*domain.Room, error) {
	category, err := json.Marshal(r.Category)
	if err != nil {
		return nil, fmt.Errorf("marshal category: %w", err)
	}
	empty := []byte("{}")
	row := s.pool.QueryRow(ctx, `
		INSERT INTO rooms (code, owner_id, max_players, is_public, game_mode, language, script,
			country, category, entry_points, target_points, voice_enabled, status, drawn_user_ids, used_words)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING `+roomColumns,
		r.Code, r.OwnerID, r.MaxPlayers, r.IsPublic, r.GameMode, r.Language, r.Script,
		r.Country, category, r.EntryPoints, r.TargetPoints, r.VoiceEnabled, domain.StatusLobby, empty, empty,
	)
	return scanRoom(row)
}

func (s *RoomStore) GetRoomByID(ctx context.Context, id int64) (*domain.Room, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	return scanRoom(row)
}

func (s *RoomStore) GetRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = $1`, code)
	return scanRoom(row)
}

// PhaseUpdate carries the columns a phase transition may change
// alongside round_phase itself; zero-valued pointer fields are left
// untouched.
type PhaseUpdate struct {
	Status             *domain.RoomStatus
	CurrentRound       *int
	RoundPhaseEndTime  **time.Time
	CurrentDrawerID    *string
	LastDrawerID       *string
	CurrentWord        *string
	CurrentWordOptions *[]string
	DrawerPointerIndex *int
	DrawnUserIDs       *map[string]bool
	UsedWords          *map[string]bool
}

// TransitionPhase is the sole mutation path for round_phase: a single
// round-trip CAS, "UPDATE ... WHERE id=$1 AND round_phase=$2 RETURNING
// *". A caller that loses the race gets ErrPhaseMismatch and must
// re-read the room before retrying — this is what keeps two phase
// timers racing on the same room from both advancing it.
func (s *RoomStore) TransitionPhase(ctx context.Context, roomID int64, from, to domain.RoundPhase, upd PhaseUpdate) (*domain.Room, error) {
	set := []string{"round_phase = $3", "updated_at = now()"}
	args := []any{roomID, from, to}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if upd.Status != nil {
		set = append(set, "status = "+arg(*upd.Status))
	}
	if upd.CurrentRound != nil {
		set = append(set, "current_round = "+arg(*upd.CurrentRound))
	}
	if upd.RoundPhaseEndTime != nil {
		set = append(set, "round_phase_end_time = "+arg(*upd.RoundPhaseEndTime))
	}
	if upd.CurrentDrawerID != nil {
		set = append(set, "current_drawer_id = "+arg(*upd.CurrentDrawerID))
	}
	if upd.LastDrawerID != nil {
		set = append(set, "last_drawer_id = "+arg(*upd.LastDrawerID))
	}
	if upd.CurrentWord != nil {
		set = append(set, "current_word = "+arg(*upd.CurrentWord))
	}
	if upd.CurrentWordOptions != nil {
		data, err := json.Marshal(*upd.CurrentWordOptions)
		if err != nil {
			return nil, fmt.Errorf("marshal word options: %w", err)
		}
		set = append(set, "current_word_options = "+arg(data))
	}
	if upd.DrawerPointerIndex != nil {
		set = append(set, "drawer_pointer_index = "+arg(*upd.DrawerPointerIndex))
	}
	if upd.DrawnUserIDs != nil {
		data, err := json.Marshal(*upd.DrawnUserIDs)
		if err != nil {
			return nil, fmt.Errorf("marshal drawn set: %w", err)
		}
		set = append(set, "drawn_user_ids = "+arg(data))
	}
	if upd.UsedWords != nil {
		data, err := json.Marshal(*upd.UsedWords)
		if err != nil {
			return nil, fmt.Errorf("marshal used words: %w", err)
		}
		set = append(set, "used_words = "+arg(data))
	}

	query := fmt.Sprintf(`UPDATE rooms SET %s WHERE id = $1 AND round_phase = $2 RETURNING %s`,
		joinComma(set), roomColumns)
	row := s.pool.QueryRow(ctx, query, args...)
	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, ErrNoSuchRoom) {
			return nil, ErrPhaseMismatch
		}
		return nil, err
	}
	return room, nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// UpdateSettings writes lobby-only settings fields, grounded on the
// precondition that Status is still lobby or waiting (checked by the
// caller under the same row, enforced here as a WHERE guard so a
// racing game-start can't be clobbered by a late settings write).
func (s *RoomStore) UpdateSettings(ctx context.Context, roomID int64, r *domain.Room) (*domain.Room, error) {
	category, err := json.Marshal(r.Category)
	if err != nil {
		return nil, fmt.Errorf("marshal category: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE rooms SET max_players=$2, is_public=$3, game_mode=$4, language=$5, script=$6,
			country=$7, category=$8, entry_points=$9, target_points=$10, voice_enabled=$11, updated_at=now()
		WHERE id = $1 AND status IN ('lobby','waiting')
		RETURNING `+roomColumns,
		roomID, r.MaxPlayers, r.IsPublic, r.GameMode, r.Language, r.Script,
		r.Country, category, r.EntryPoints, r.TargetPoints, r.VoiceEnabled,
	)
	return scanRoom(row)
}

func (s *RoomStore) DeleteRoom(ctx context.Context, roomID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

// ListActiveRooms returns every room not already finished/closed; the
// startup timer rebuild and the periodic Lifecycle sweeps read it.
func (s *RoomStore) ListActiveRooms(ctx context.Context) ([]*domain.Room, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms WHERE status NOT IN ('finished','closed')`)
	if err != nil {
		return nil, fmt.Errorf("list active rooms: %w", err)
	}
	defer rows.Close()

	var out []*domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// --- Participants ---

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	var p domain.Participant
	if err := row.Scan(
		&p.RoomID, &p.UserID, &p.Team, &p.IsDrawer, &p.Score, &p.PointsUpdatedAt,
		&p.HasGuessedThisRound, &p.HasPaidEntry, &p.HasDrawn, &p.EliminationCount, &p.SkipCount,
		&p.IsActive, &p.SocketID, &p.BannedAt, &p.Username, &p.JoinedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSuchRoom
		}
		return nil, fmt.Errorf("scan participant: %w", err)
	}
	return &p, nil
}

const participantColumns = `room_id, user_id, team, is_drawer, score, points_updated_at,
	has_guessed_this_round, has_paid_entry, has_drawn, elimination_count, skip_count,
	is_active, socket_id, banned_at, username, joined_at`

// BumpSkipCount increments a drawer's choose-word skip count and
// removes them from the room outright once it reaches limit.
func (s *RoomStore) BumpSkipCount(ctx context.Context, roomID int64, userID string, limit int) (count int, removed bool, err error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE participants SET skip_count = skip_count + 1
		WHERE room_id = $1 AND user_id = $2
		RETURNING skip_count`, roomID, userID)
	if err := row.Scan(&count); err != nil {
		return 0, false, fmt.Errorf("bump skip count: %w", err)
	}
	if count >= limit {
		if err := s.RemoveParticipant(ctx, roomID, userID); err != nil {
			return count, false, err
		}
		return count, true, nil
	}
	return count, false, nil
}

// BanParticipant marks a participant banned; future join attempts for
// the same (room, user) are rejected by engine.JoinRoom, which checks
// IsBanned before calling JoinRoom here.
func (s *RoomStore) BanParticipant(ctx context.Context, roomID int64, userID string) error {
	if _, err := s.pool.Exec(ctx, `UPDATE participants SET banned_at = now(), is_active = false WHERE room_id = $1 AND user_id = $2`,
		roomID, userID); err != nil {
		return fmt.Errorf("ban participant: %w", err)
	}
	return nil
}

// IsBanned reports whether userID has an outstanding ban on roomID.
func (s *RoomStore) IsBanned(ctx context.Context, roomID int64, userID string) (bool, error) {
	var bannedAt *time.Time
	err := s.pool.QueryRow(ctx, `SELECT banned_at FROM participants WHERE room_id = $1 AND user_id = $2`, roomID, userID).Scan(&bannedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check banned: %w", err)
	}
	return bannedAt != nil, nil
}

// JoinRoom inserts a participant under a row lock on the parent room
// so the capacity check ("count(*) < max_players") is race-free
// against a concurrent join.
func (s *RoomStore) JoinRoom(ctx context.Context, roomID int64, userID, username string) (*domain.Participant, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var maxPlayers int
	if err := tx.QueryRow(ctx, `SELECT max_players FROM rooms WHERE id = $1 FOR UPDATE`, roomID).Scan(&maxPlayers); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSuchRoom
		}
		return nil, fmt.Errorf("lock room: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM participants WHERE room_id = $1 AND is_active`, roomID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	if count >= maxPlayers {
		return nil, domain.NewClientError(domain.ErrRoomFull, "")
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO participants (room_id, user_id, username)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO UPDATE SET is_active = true, socket_id = NULL
		RETURNING `+participantColumns,
		roomID, userID, username,
	)
	p, err := scanParticipant(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit join: %w", err)
	}
	return p, nil
}

func (s *RoomStore) ListParticipants(ctx context.Context, roomID int64) ([]*domain.Participant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+participantColumns+` FROM participants WHERE room_id = $1 ORDER BY joined_at`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []*domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *RoomStore) SetParticipantActive(ctx context.Context, roomID int64, userID string, active bool, socketID *string) error {
	_, err := s.pool.Exec(ctx, `UPDATE participants SET is_active=$3, socket_id=$4 WHERE room_id=$1 AND user_id=$2`,
		roomID, userID, active, socketID)
	if err != nil {
		return fmt.Errorf("set participant active: %w", err)
	}
	return nil
}

func (s *RoomStore) SetParticipantTeam(ctx context.Context, roomID int64, userID string, team domain.Team) error {
	if _, err := s.pool.Exec(ctx, `UPDATE participants SET team=$3 WHERE room_id=$1 AND user_id=$2`, roomID, userID, team); err != nil {
		return fmt.Errorf("set participant team: %w", err)
	}
	return nil
}

// TouchRoom bumps updated_at without otherwise changing the room,
// used by continue_waiting to reset the lobby idle clock.
func (s *RoomStore) TouchRoom(ctx context.Context, roomID int64) error {
	if _, err := s.pool.Exec(ctx, `UPDATE rooms SET updated_at = now() WHERE id = $1`, roomID); err != nil {
		return fmt.Errorf("touch room: %w", err)
	}
	return nil
}

func (s *RoomStore) RemoveParticipant(ctx context.Context, roomID int64, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM participants WHERE room_id=$1 AND user_id=$2`, roomID, userID); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

// AwardPoints increments a guesser's (or whole team's) score exactly
// once per round, locking the target rows first so two concurrent
// guess evaluations for the same team can't double-award.
func (s *RoomStore) AwardPoints(ctx context.Context, roomID int64, userIDs []string, delta int) error {
	if len(userIDs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		SELECT 1 FROM participants WHERE room_id = $1 AND user_id = ANY($2) FOR UPDATE`,
		roomID, userIDs); err != nil {
		return fmt.Errorf("lock participants: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE participants SET score = score + $3, points_updated_at = now(), has_guessed_this_round = true
		WHERE room_id = $1 AND user_id = ANY($2)`,
		roomID, userIDs, delta); err != nil {
		return fmt.Errorf("award points: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *RoomStore) ResetGuessState(ctx context.Context, roomID int64) error {
	if _, err := s.pool.Exec(ctx, `UPDATE participants SET has_guessed_this_round = false WHERE room_id = $1`, roomID); err != nil {
		return fmt.Errorf("reset guess state: %w", err)
	}
	return nil
}

// SaveMessage persists a chat line for audit purposes; moderation
// tooling over this table is out of scope here.
func (s *RoomStore) SaveMessage(ctx context.Context, roomID int64, userID, username, text string) error {
	if _, err := s.pool.Exec(ctx, `INSERT INTO messages (room_id, user_id, username, text) VALUES ($1,$2,$3,$4)`,
		roomID, userID, username, text); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}
