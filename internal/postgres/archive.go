package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageArchive — необязательный журнал принятых сообщений. Авторитетная
// история остаётся в памяти; архив нужен только для глубокой выборки по REST.
type MessageArchive struct {
	db *pgxpool.Pool
}

func NewMessageArchive(db *pgxpool.Pool) *MessageArchive {
	return &MessageArchive{db: db}
}

func (a *MessageArchive) Save(ctx context.Context, msg *domain.Message) error {
	_, err := a.db.Exec(ctx, `
		INSERT INTO chat_messages (id, room_id, user_id, author_name, content, msg_type, reply_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, msg.ID, msg.RoomID, msg.UserID, msg.AuthorName, msg.Content, string(msg.Type), msg.ReplyTo, msg.CreatedAt)
	return err
}

type ArchivedMessage struct {
	ID         string
	RoomID     string
	UserID     string
	AuthorName string
	Content    string
	Type       string
	ReplyTo    *string
	CreatedAt  time.Time
}

// History возвращает архивные сообщения комнаты с курсорной пагинацией
// (created_at,id DESC).
func (a *MessageArchive) History(ctx context.Context, roomID, after string, limit int) ([]ArchivedMessage, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	const query = `
		SELECT id, room_id, user_id, author_name, content, msg_type, reply_to, created_at
		FROM chat_messages
		WHERE room_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := a.db.Query(ctx, query, roomID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []ArchivedMessage
	for rows.Next() {
		var m ArchivedMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.AuthorName, &m.Content, &m.Type, &m.ReplyTo, &m.CreatedAt); err != nil {
			return nil, "", err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		if c, e := EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID}); e == nil {
			next = c
		}
	}
	return out, next, nil
}
