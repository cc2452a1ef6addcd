package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	json "github.com/goccy/go-json"
)

type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	failSend bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("broken pipe")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *fakeConn) Close() error { return nil }

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c *fakeConn) decoded(t *testing.T) []frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		out = append(out, f)
	}
	return out
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	fs := c.decoded(t)
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Type)
	}
	return out
}

func (c *fakeConn) count(t *testing.T, typ string) int {
	t.Helper()
	n := 0
	for _, ft := range c.types(t) {
		if ft == typ {
			n++
		}
	}
	return n
}

func (c *fakeConn) last(t *testing.T, typ string) (frame, bool) {
	t.Helper()
	fs := c.decoded(t)
	for i := len(fs) - 1; i >= 0; i-- {
		if fs[i].Type == typ {
			return fs[i], true
		}
	}
	return frame{}, false
}

func newTestRegistry(cfg Config) *Registry {
	if len(cfg.DefaultRooms) == 0 {
		cfg.DefaultRooms = []DefaultRoom{
			{Name: "general", Description: "General discussion"},
			{Name: "random", Description: "Off-topic"},
		}
	}
	return New(cfg, nil)
}

func connect(t *testing.T, r *Registry, name string) (*domain.Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	sess, _, err := r.Connect(name, false, conn)
	if err != nil {
		t.Fatalf("Connect(%q): %v", name, err)
	}
	return sess, conn
}

func TestConnectSendsRoomsList(t *testing.T) {
	r := newTestRegistry(Config{})
	_, conn := connect(t, r, "Alice")

	fs := conn.decoded(t)
	if len(fs) != 1 || fs[0].Type != TypeRoomsList {
		t.Fatalf("expected single rooms_list frame, got %v", conn.types(t))
	}
	var data RoomsListData
	if err := json.Unmarshal(fs[0].Data, &data); err != nil {
		t.Fatalf("decode rooms_list: %v", err)
	}
	if len(data.Rooms) != 2 {
		t.Fatalf("expected 2 default rooms, got %d", len(data.Rooms))
	}
	for _, room := range data.Rooms {
		if !room.IsDefault {
			t.Fatalf("room %q not marked default", room.ID)
		}
	}
}

func TestConnectNameValidation(t *testing.T) {
	r := newTestRegistry(Config{})
	if _, _, err := r.Connect("a", false, &fakeConn{}); !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("short name: got %v, want ErrInvalidName", err)
	}

	connect(t, r, "Alice")
	if _, _, err := r.Connect("alice", false, &fakeConn{}); !errors.Is(err, domain.ErrNameTaken) {
		t.Fatalf("duplicate name (case-insensitive): got %v, want ErrNameTaken", err)
	}
}

func TestDisconnectFreesName(t *testing.T) {
	r := newTestRegistry(Config{})
	_, conn := connect(t, r, "Alice")

	r.Disconnect(conn)
	if err := r.ValidateName("Alice"); err != nil {
		t.Fatalf("name not freed after disconnect: %v", err)
	}
	if _, ok := r.SessionByConn(conn); ok {
		t.Fatal("session still resolvable after disconnect")
	}
	// повторный Disconnect — no-op
	r.Disconnect(conn)
}

func TestJoinRoomMembershipInvariant(t *testing.T) {
	r := newTestRegistry(Config{})
	sess, conn := connect(t, r, "Alice")

	if err := r.JoinRoom(sess.ID, "general"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	got, ok := r.SessionByConn(conn)
	if !ok || got.RoomID != "general" {
		t.Fatalf("session current room = %q, want general", got.RoomID)
	}
	members, err := r.RoomParticipants("general")
	if err != nil || len(members) != 1 || members[0].UserID != sess.UserID {
		t.Fatalf("participants = %v, err = %v", members, err)
	}
}

func TestJoinRoomSendsHistoryAndNotices(t *testing.T) {
	r := newTestRegistry(Config{})
	aliceSess, _ := connect(t, r, "Alice")
	if err := r.JoinRoom(aliceSess.ID, "general"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if _, err := r.SendMessage(aliceSess.ID, "hello", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	bobSess, bobConn := connect(t, r, "Bob")
	if err := r.JoinRoom(bobSess.ID, "general"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	want := []string{TypeRoomsList, TypeUserJoined, TypeRoomUsers, TypeRoomMessages}
	got := bobConn.types(t)
	if len(got) != len(want) {
		t.Fatalf("frames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	hist, _ := bobConn.last(t, TypeRoomMessages)
	var data RoomMessagesData
	if err := json.Unmarshal(hist.Data, &data); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(data.Messages) != 1 || data.Messages[0].Content != "hello" {
		t.Fatalf("history = %+v, want one hello", data.Messages)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	r := newTestRegistry(Config{})
	sess, _ := connect(t, r, "Alice")
	_, obsConn := mustJoin(t, r, "Bob", "general")

	if err := r.JoinRoom(sess.ID, "general"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	seen := obsConn.count(t, TypeUserJoined)

	if err := r.JoinRoom(sess.ID, "general"); err != nil {
		t.Fatalf("re-join: %v", err)
	}
	if n := obsConn.count(t, TypeUserJoined); n != seen {
		t.Fatalf("re-join broadcast another user_joined: %d -> %d", seen, n)
	}
}

func mustJoin(t *testing.T, r *Registry, name, roomID string) (*domain.Session, *fakeConn) {
	t.Helper()
	sess, conn := connect(t, r, name)
	if err := r.JoinRoom(sess.ID, roomID); err != nil {
		t.Fatalf("JoinRoom(%s, %s): %v", name, roomID, err)
	}
	return sess, conn
}

func TestJoinRoomNotFound(t *testing.T) {
	r := newTestRegistry(Config{})
	sess, _ := connect(t, r, "Alice")
	if err := r.JoinRoom(sess.ID, "nope"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}
}

func TestJoinRoomFull(t *testing.T) {
	r := newTestRegistry(Config{MaxOccupancy: 1})
	mustJoin(t, r, "Alice", "general")

	sess, _ := connect(t, r, "Bob")
	if err := r.JoinRoom(sess.ID, "general"); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("got %v, want ErrRoomFull", err)
	}
}

func TestRoomSwitchLeavesPrevious(t *testing.T) {
	r := newTestRegistry(Config{})
	aliceSess, _ := mustJoin(t, r, "Alice", "general")
	_, obsGeneral := mustJoin(t, r, "Bob", "general")
	_, obsRandom := mustJoin(t, r, "Carol", "random")

	if err := r.JoinRoom(aliceSess.ID, "random"); err != nil {
		t.Fatalf("switch: %v", err)
	}

	left, ok := obsGeneral.last(t, TypeUserLeft)
	if !ok {
		t.Fatalf("general observer missed user_left: %v", obsGeneral.types(t))
	}
	var leftData UserEventData
	if err := json.Unmarshal(left.Data, &leftData); err != nil {
		t.Fatalf("decode user_left: %v", err)
	}
	if leftData.UserID != aliceSess.UserID {
		t.Fatalf("user_left for %q, want %q", leftData.UserID, aliceSess.UserID)
	}

	// членство: Алиса только в random
	genMembers, _ := r.RoomParticipants("general")
	for _, m := range genMembers {
		if m.UserID == aliceSess.UserID {
			t.Fatal("alice still in general after switch")
		}
	}
	joined, ok := obsRandom.last(t, TypeUserJoined)
	if !ok {
		t.Fatalf("random observer missed user_joined: %v", obsRandom.types(t))
	}
	var joinData UserEventData
	if err := json.Unmarshal(joined.Data, &joinData); err != nil {
		t.Fatalf("decode user_joined: %v", err)
	}
	if joinData.UserID != aliceSess.UserID {
		t.Fatalf("user_joined for %q, want %q", joinData.UserID, aliceSess.UserID)
	}
}

func TestLeaveRoomIdempotent(t *testing.T) {
	r := newTestRegistry(Config{})
	sess, _ := mustJoin(t, r, "Alice", "general")

	r.LeaveRoom(sess.ID, "general")
	members, _ := r.RoomParticipants("general")
	if len(members) != 0 {
		t.Fatalf("participants after leave = %v", members)
	}

	// второй выход — безопасный no-op
	r.LeaveRoom(sess.ID, "general")
	members, _ = r.RoomParticipants("general")
	if len(members) != 0 {
		t.Fatalf("participants after double leave = %v", members)
	}
}

func TestSendMessageScenario(t *testing.T) {
	r := newTestRegistry(Config{})
	sess, _ := mustJoin(t, r, "Alice", "general")

	if _, err := r.SendMessage(sess.ID, "hello", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	items, err := r.RoomMessages("general", 50)
	if err != nil {
		t.Fatalf("RoomMessages: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("history length = %d, want 1", len(items))
	}
	if items[0].Content != "hello" || items[0].Username != "Alice" {
		t.Fatalf("message = %+v", items[0])
	}
}

func TestSendMessageValidation(t *testing.T) {
	r := newTestRegistry(Config{MaxMessageLen: 10})
	sess, _ := connect(t, r, "Alice")

	if _, err := r.SendMessage(sess.ID, "hi", nil); !errors.Is(err, domain.ErrNoCurrentRoom) {
		t.Fatalf("no room: got %v", err)
	}
	if err := r.JoinRoom(sess.ID, "general"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if _, err := r.SendMessage(sess.ID, "   ", nil); !errors.Is(err, domain.ErrEmptyContent) {
		t.Fatalf("blank: got %v", err)
	}
	if _, err := r.SendMessage(sess.ID, "0123456789x", nil); !errors.Is(err, domain.ErrContentTooLong) {
		t.Fatalf("too long: got %v", err)
	}
}

func TestHistoryCapEviction(t *testing.T) {
	r := newTestRegistry(Config{HistoryCap: 1000})
	sess, _ := mustJoin(t, r, "Alice", "general")

	for i := 0; i < 1001; i++ {
		if _, err := r.SendMessage(sess.ID, fmt.Sprintf("msg-%d", i), nil); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	items, err := r.RoomMessages("general", 0)
	if err != nil {
		t.Fatalf("RoomMessages: %v", err)
	}
	if len(items) != 1000 {
		t.Fatalf("history length = %d, want 1000", len(items))
	}
	if items[0].Content != "msg-1" {
		t.Fatalf("oldest survivor = %q, want msg-1 (msg-0 evicted)", items[0].Content)
	}
	if items[len(items)-1].Content != "msg-1000" {
		t.Fatalf("newest = %q, want msg-1000", items[len(items)-1].Content)
	}
}

func TestBroadcastIsolatesFailedConn(t *testing.T) {
	r := newTestRegistry(Config{})
	aliceSess, _ := mustJoin(t, r, "Alice", "general")
	_, bobConn := mustJoin(t, r, "Bob", "general")
	_, carolConn := mustJoin(t, r, "Carol", "general")

	bobConn.mu.Lock()
	bobConn.failSend = true
	bobConn.mu.Unlock()

	if _, err := r.SendMessage(aliceSess.ID, "still delivered", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if n := carolConn.count(t, TypeMessage); n != 1 {
		t.Fatalf("carol got %d message frames, want 1", n)
	}
}

func TestEditMessage(t *testing.T) {
	r := newTestRegistry(Config{})
	sess, _ := mustJoin(t, r, "Alice", "general")
	msg, err := r.SendMessage(sess.ID, "hello", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	edited, err := r.EditMessage(sess.UserID, msg.ID, "hello, world")
	if err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if edited.Content != "hello, world" || edited.EditedAt == nil {
		t.Fatalf("edited = %+v", edited)
	}
}

func TestEditMessageWindowExpired(t *testing.T) {
	r := newTestRegistry(Config{})
	sess, _ := mustJoin(t, r, "Alice", "general")
	msg, err := r.SendMessage(sess.ID, "hello", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	// состарим сообщение на 6 минут
	r.mu.Lock()
	r.rooms["general"].messages[0].CreatedAt = time.Now().Add(-6 * time.Minute)
	r.mu.Unlock()

	if _, err := r.EditMessage(sess.UserID, msg.ID, "too late"); !errors.Is(err, domain.ErrEditWindowExpired) {
		t.Fatalf("got %v, want ErrEditWindowExpired", err)
	}

	// 4 минуты — ещё в окне
	r.mu.Lock()
	r.rooms["general"].messages[0].CreatedAt = time.Now().Add(-4 * time.Minute)
	r.mu.Unlock()

	if _, err := r.EditMessage(sess.UserID, msg.ID, "in time"); err != nil {
		t.Fatalf("edit at 4m: %v", err)
	}
}

func TestEditMessageAuthorization(t *testing.T) {
	r := newTestRegistry(Config{})
	aliceSess, _ := mustJoin(t, r, "Alice", "general")
	bobSess, _ := mustJoin(t, r, "Bob", "general")

	msg, err := r.SendMessage(aliceSess.ID, "mine", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if _, err := r.EditMessage(bobSess.UserID, msg.ID, "hijack"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("got %v, want ErrNotAuthorized", err)
	}
	if _, err := r.EditMessage(aliceSess.UserID, "missing", "x"); !errors.Is(err, domain.ErrMessageNotFound) {
		t.Fatalf("got %v, want ErrMessageNotFound", err)
	}
}

func TestEditSystemMessageRejected(t *testing.T) {
	r := newTestRegistry(Config{})
	sess, _ := mustJoin(t, r, "Alice", "general")

	sys := &domain.Message{
		ID:        "sys-1",
		RoomID:    "general",
		Content:   "maintenance at noon",
		Type:      domain.MessageSystem,
		CreatedAt: time.Now(),
	}
	r.mu.Lock()
	r.appendMessageLocked(r.rooms["general"], sys)
	r.mu.Unlock()

	if _, err := r.EditMessage(sess.UserID, "sys-1", "x"); !errors.Is(err, domain.ErrWrongMessageType) {
		t.Fatalf("got %v, want ErrWrongMessageType", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	r := newTestRegistry(Config{})
	aliceSess, _ := mustJoin(t, r, "Alice", "general")
	bobSess, _ := mustJoin(t, r, "Bob", "general")

	msg, err := r.SendMessage(aliceSess.ID, "delete me", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if err := r.DeleteMessage(bobSess.UserID, msg.ID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("non-author delete: got %v", err)
	}
	if err := r.DeleteMessage(aliceSess.UserID, msg.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if err := r.DeleteMessage(aliceSess.UserID, msg.ID); !errors.Is(err, domain.ErrMessageNotFound) {
		t.Fatalf("double delete: got %v", err)
	}

	items, _ := r.RoomMessages("general", 0)
	if len(items) != 0 {
		t.Fatalf("history after delete = %v", items)
	}
}

func TestReactions(t *testing.T) {
	r := newTestRegistry(Config{})
	aliceSess, _ := mustJoin(t, r, "Alice", "general")
	bobSess, _ := mustJoin(t, r, "Bob", "general")
	outsiderSess, _ := connect(t, r, "Eve")

	msg, err := r.SendMessage(aliceSess.ID, "react to me", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if err := r.AddReaction(bobSess.UserID, msg.ID, "thumbsup"); err != nil {
		t.Fatalf("AddReaction: %v", err)
	}
	if err := r.AddReaction(outsiderSess.UserID, msg.ID, "thumbsup"); !errors.Is(err, domain.ErrNotInRoom) {
		t.Fatalf("outsider reaction: got %v", err)
	}

	items, _ := r.RoomMessages("general", 0)
	if got := items[0].Reactions["thumbsup"]; len(got) != 1 || got[0] != bobSess.UserID {
		t.Fatalf("reactions = %v", items[0].Reactions)
	}

	if err := r.RemoveReaction(bobSess.UserID, msg.ID, "thumbsup"); err != nil {
		t.Fatalf("RemoveReaction: %v", err)
	}
	items, _ = r.RoomMessages("general", 0)
	if len(items[0].Reactions) != 0 {
		t.Fatalf("reactions after remove = %v", items[0].Reactions)
	}
}

func TestModerators(t *testing.T) {
	r := newTestRegistry(Config{})
	aliceSess, _ := connect(t, r, "Alice")
	bobSess, _ := connect(t, r, "Bob")

	room, err := r.CreateRoom("Project X", "secret", aliceSess.UserID, true)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if err := r.AddModerator(bobSess.UserID, room.ID, bobSess.UserID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("self-promotion: got %v", err)
	}
	if err := r.AddModerator(aliceSess.UserID, room.ID, bobSess.UserID); err != nil {
		t.Fatalf("creator grants: %v", err)
	}
	// назначенный модератор вправе удалить комнату
	if err := r.DeleteRoom(bobSess.UserID, room.ID); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}
}

func TestDeleteDefaultRoomRejected(t *testing.T) {
	r := newTestRegistry(Config{})
	sess, _ := connect(t, r, "Alice")

	if err := r.DeleteRoom(sess.UserID, "general"); !errors.Is(err, domain.ErrDefaultRoom) {
		t.Fatalf("got %v, want ErrDefaultRoom", err)
	}
}

func TestDeleteRoomClearsMembers(t *testing.T) {
	r := newTestRegistry(Config{})
	aliceSess, aliceConn := connect(t, r, "Alice")

	room, err := r.CreateRoom("temp", "", aliceSess.UserID, false)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := r.JoinRoom(aliceSess.ID, room.ID); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if err := r.DeleteRoom(aliceSess.UserID, room.ID); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}

	got, ok := r.SessionByConn(aliceConn)
	if !ok || got.RoomID != "" {
		t.Fatalf("current room after delete = %q, want empty", got.RoomID)
	}
	if _, _, err := r.Room(room.ID); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("room still resolvable: %v", err)
	}
}

func TestCreateRoomSlugCollision(t *testing.T) {
	r := newTestRegistry(Config{})
	first, err := r.CreateRoom("Dev Talk", "", "", false)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if first.ID != "dev-talk" {
		t.Fatalf("slug = %q, want dev-talk", first.ID)
	}
	second, err := r.CreateRoom("Dev Talk", "", "", false)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("slug collision not resolved: %q", second.ID)
	}
}

func TestTypingExcludesSender(t *testing.T) {
	r := newTestRegistry(Config{})
	aliceSess, aliceConn := mustJoin(t, r, "Alice", "general")
	_, bobConn := mustJoin(t, r, "Bob", "general")

	if err := r.StartTyping(aliceSess.ID, "general"); err != nil {
		t.Fatalf("StartTyping: %v", err)
	}

	if n := bobConn.count(t, TypeTypingStart); n != 1 {
		t.Fatalf("bob saw %d typing_start, want 1", n)
	}
	if n := aliceConn.count(t, TypeTypingStart); n != 0 {
		t.Fatalf("alice saw her own typing_start %d times", n)
	}

	// повторный start в пределах окна не дублирует оповещение
	if err := r.StartTyping(aliceSess.ID, "general"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if n := bobConn.count(t, TypeTypingStart); n != 1 {
		t.Fatalf("refresh re-broadcast: bob saw %d typing_start", n)
	}
}

func TestTypingStopBroadcastsToAll(t *testing.T) {
	r := newTestRegistry(Config{})
	aliceSess, aliceConn := mustJoin(t, r, "Alice", "general")
	_, bobConn := mustJoin(t, r, "Bob", "general")

	if err := r.StartTyping(aliceSess.ID, "general"); err != nil {
		t.Fatalf("StartTyping: %v", err)
	}
	if err := r.StopTyping(aliceSess.ID, "general"); err != nil {
		t.Fatalf("StopTyping: %v", err)
	}

	if n := bobConn.count(t, TypeTypingStop); n != 1 {
		t.Fatalf("bob saw %d typing_stop, want 1", n)
	}
	if n := aliceConn.count(t, TypeTypingStop); n != 1 {
		t.Fatalf("alice saw %d typing_stop, want 1", n)
	}

	// стоп без активного индикатора — no-op
	if err := r.StopTyping(aliceSess.ID, "general"); err != nil {
		t.Fatalf("idempotent stop: %v", err)
	}
	if n := bobConn.count(t, TypeTypingStop); n != 1 {
		t.Fatalf("idempotent stop re-broadcast: %d", n)
	}
}

func TestTypingRequiresMembership(t *testing.T) {
	r := newTestRegistry(Config{})
	sess, _ := connect(t, r, "Alice")
	if err := r.StartTyping(sess.ID, "general"); !errors.Is(err, domain.ErrNotInRoom) {
		t.Fatalf("got %v, want ErrNotInRoom", err)
	}
}

func TestTypingSweep(t *testing.T) {
	r := newTestRegistry(Config{TypingTimeout: 100 * time.Millisecond})
	aliceSess, _ := mustJoin(t, r, "Alice", "general")
	_, bobConn := mustJoin(t, r, "Bob", "general")

	if err := r.StartTyping(aliceSess.ID, "general"); err != nil {
		t.Fatalf("StartTyping: %v", err)
	}

	r.SweepTyping()
	if n := bobConn.count(t, TypeTypingStop); n != 0 {
		t.Fatalf("premature sweep: %d typing_stop", n)
	}

	time.Sleep(150 * time.Millisecond)
	r.SweepTyping()
	if n := bobConn.count(t, TypeTypingStop); n != 1 {
		t.Fatalf("after timeout: %d typing_stop, want 1", n)
	}

	r.mu.Lock()
	left := len(r.typing)
	r.mu.Unlock()
	if left != 0 {
		t.Fatalf("typing table not empty: %d", left)
	}
}

func TestRunSweeper(t *testing.T) {
	r := newTestRegistry(Config{
		TypingTimeout: 20 * time.Millisecond,
		SweepInterval: 5 * time.Millisecond,
	})
	aliceSess, _ := mustJoin(t, r, "Alice", "general")
	_, bobConn := mustJoin(t, r, "Bob", "general")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.RunSweeper(ctx)
		close(done)
	}()

	if err := r.StartTyping(aliceSess.ID, "general"); err != nil {
		t.Fatalf("StartTyping: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for bobConn.count(t, TypeTypingStop) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper never expired the indicator")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}

func TestDisconnectLeavesRoom(t *testing.T) {
	r := newTestRegistry(Config{})
	_, aliceConn := mustJoin(t, r, "Alice", "general")
	_, bobConn := mustJoin(t, r, "Bob", "general")

	r.Disconnect(aliceConn)

	if n := bobConn.count(t, TypeUserLeft); n != 1 {
		t.Fatalf("bob saw %d user_left, want 1", n)
	}
	members, _ := r.RoomParticipants("general")
	if len(members) != 1 {
		t.Fatalf("participants = %v", members)
	}
}

func TestUpdateStatus(t *testing.T) {
	r := newTestRegistry(Config{})
	u := r.CreateUser("Alice", true)

	r.UpdateStatus(u.ID, domain.StatusAway)
	got, ok := r.GetUser(u.ID)
	if !ok || got.Status != domain.StatusAway {
		t.Fatalf("status = %v", got)
	}

	// неизвестный id — no-op
	r.UpdateStatus("missing", domain.StatusOnline)
	if _, ok := r.GetUser("missing"); ok {
		t.Fatal("phantom user created")
	}
}
