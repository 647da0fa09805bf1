// Velha multiplayer rooms
//
// Each websocket connection gets an opaque connection id, which doubles as
// the player identity: a seat belongs to exactly one connection and dies
// with it. Clients send JSON commands and receive full room snapshots
// rather than diffs, so their local view is always replaced wholesale.
//
// Features:
// - Lobby listing every room with live player/spectator counts and status
// - Two seated players per room, unlimited spectators
// - Turn-based play with server-side validation; bad moves are ignored
// - Chat relayed verbatim to all room members, plus system notices
// - Disconnect mid-game awards the match to the opponent (forfeit)
// - Restart swaps symbols so the other player starts
// - In-browser QR code to share a room as a spectator link, via go-qrcode

package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const maxChatLength = 500

// ClientMessage is the envelope for every inbound command.
type ClientMessage struct {
	Type     string `json:"type"` // "list_rooms", "create_room", "join_room", "join_spectator", "make_move", "restart_game", "send_message", "leave_room"
	RoomName string `json:"roomName,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Index    *int   `json:"index,omitempty"`
	Text     string `json:"text,omitempty"`
}

// RoomListMessage carries lobby summaries; sent to every connection.
type RoomListMessage struct {
	Type  string        `json:"type"` // "room_list"
	Rooms []RoomSummary `json:"rooms"`
}

// RoomJoinedMessage is sent only to the command issuer.
type RoomJoinedMessage struct {
	Type string `json:"type"` // "room_joined"
	Room *Room  `json:"room"`
}

// RoomUpdateMessage carries a full room snapshot to all room members.
type RoomUpdateMessage struct {
	Type string `json:"type"` // "room_update"
	Room *Room  `json:"room"`
}

type GameOverMessage struct {
	Type   string  `json:"type"` // "game_over"
	Winner Outcome `json:"winner"`
}

type ChatEventMessage struct {
	Type      string `json:"type"` // "chat_message"
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	IsSystem  bool   `json:"isSystem,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type LeftRoomMessage struct {
	Type string `json:"type"` // "left_room_confirmed"
}

// ErrorMessage is sent only to the issuer, for user-actionable rejections.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

const systemSender = "System"

func systemNotice(text string) ChatEventMessage {
	return ChatEventMessage{
		Type:      "chat_message",
		Sender:    systemSender,
		Text:      text,
		IsSystem:  true,
		Timestamp: time.Now().UnixMilli(),
	}
}

type Client struct {
	conn *websocket.Conn
	send chan any
	id   string
}

type command struct {
	client *Client
	msg    ClientMessage
}

// Hub routes every command and disconnect through a single loop, so each
// room's read-validate-mutate-write sequence runs without interleaving.
type Hub struct {
	cfg   *Config
	store *RoomStore

	clients  map[*Client]bool
	register chan *Client
	unreg    chan *Client
	commands chan command
}

func newHub(cfg *Config, store *RoomStore) *Hub {
	return &Hub{
		cfg:      cfg,
		store:    store,
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		commands: make(chan command),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.sendTo(c, RoomListMessage{Type: "room_list", Rooms: h.store.list()})

		case c := <-h.unreg:
			h.handleLeave(c)
			h.drop(c)

		case cmd := <-h.commands:
			h.dispatch(cmd.client, cmd.msg)
		}
	}
}

func (h *Hub) dispatch(c *Client, msg ClientMessage) {
	switch msg.Type {
	case "list_rooms":
		h.sendTo(c, RoomListMessage{Type: "room_list", Rooms: h.store.list()})
	case "create_room":
		h.handleCreateRoom(c, msg)
	case "join_room":
		h.handleJoinRoom(c, msg)
	case "join_spectator":
		h.handleJoinSpectator(c, msg)
	case "make_move":
		h.handleMakeMove(c, msg)
	case "restart_game":
		h.handleRestartGame(c, msg)
	case "send_message":
		h.handleSendMessage(c, msg)
	case "leave_room":
		h.handleLeave(c)
	}
}

func (h *Hub) handleCreateRoom(c *Client, msg ClientMessage) {
	nickname := h.clampNickname(msg.Nickname)
	room := h.store.createRoom(msg.RoomName, c.id, nickname)

	logf(h.cfg, "GAMES: %q created room %s (%q)", nickname, room.ID, room.Name)

	h.sendTo(c, RoomJoinedMessage{Type: "room_joined", Room: room.snapshot()})
	h.broadcastLobby()
}

func (h *Hub) handleJoinRoom(c *Client, msg ClientMessage) {
	room, ok := h.store.get(msg.RoomID)
	if !ok {
		return
	}

	if len(room.Players) >= 2 {
		h.sendTo(c, ErrorMessage{Type: "error", Message: "Room is full"})
		return
	}

	// The seat takes whichever symbol is free, so a join after a restart
	// (which swaps symbols) never produces two players on the same side.
	symbol := SymbolO
	if len(room.Players) > 0 {
		symbol = room.Players[0].Symbol.other()
	}

	player := Player{
		ID:       c.id,
		Symbol:   symbol,
		Nickname: h.clampNickname(msg.Nickname),
	}

	if !h.store.addPlayer(msg.RoomID, player) {
		h.sendTo(c, ErrorMessage{Type: "error", Message: "Room is full"})
		return
	}

	logf(h.cfg, "GAMES: %q joined room %s as %s", player.Nickname, room.ID, player.Symbol)

	snap := room.snapshot()
	h.broadcastRoom(room, RoomUpdateMessage{Type: "room_update", Room: snap})
	h.sendTo(c, RoomJoinedMessage{Type: "room_joined", Room: snap})
	h.broadcastLobby()
}

func (h *Hub) handleJoinSpectator(c *Client, msg ClientMessage) {
	room, ok := h.store.get(msg.RoomID)
	if !ok {
		return
	}

	// A seated player watching its own room would leave a ghost spectator
	// entry behind once the seat is freed.
	if room.player(c.id) != nil {
		return
	}

	spectator := Spectator{
		ID:       c.id,
		Nickname: h.clampNickname(msg.Nickname),
	}

	if !h.store.addSpectator(msg.RoomID, spectator) {
		return
	}

	logf(h.cfg, "GAMES: %q is watching room %s", spectator.Nickname, room.ID)

	snap := room.snapshot()
	h.sendTo(c, RoomJoinedMessage{Type: "room_joined", Room: snap})
	h.broadcastRoom(room, RoomUpdateMessage{Type: "room_update", Room: snap})
	h.broadcastLobby()
}

func (h *Hub) handleMakeMove(c *Client, msg ClientMessage) {
	room, ok := h.store.get(msg.RoomID)
	if !ok || room.Winner != OutcomeNone {
		return
	}

	player := room.player(c.id)
	if player == nil || player.Symbol != room.Turn {
		return
	}

	if msg.Index == nil || *msg.Index < 0 || *msg.Index > 8 {
		return
	}
	index := *msg.Index

	if room.Board[index] != Empty {
		return
	}

	room.Board[index] = player.Symbol

	if outcome := checkWinner(room.Board); outcome != OutcomeNone {
		room.Winner = outcome
		logf(h.cfg, "GAMES: Room %s finished: %s", room.ID, outcome)
		h.broadcastRoom(room, GameOverMessage{Type: "game_over", Winner: outcome})
	} else {
		room.Turn = room.Turn.other()
	}

	h.store.update(room.ID, room)
	h.broadcastRoom(room, RoomUpdateMessage{Type: "room_update", Room: room.snapshot()})
}

func (h *Hub) handleRestartGame(c *Client, msg ClientMessage) {
	room, ok := h.store.get(msg.RoomID)
	if !ok || len(room.Players) < 2 {
		return
	}

	// Swap symbols so the player who went second now starts.
	for i := range room.Players {
		room.Players[i].Symbol = room.Players[i].Symbol.other()
	}

	room.Board = Board{}
	room.Winner = OutcomeNone
	room.Turn = SymbolX

	h.store.update(room.ID, room)

	logf(h.cfg, "GAMES: Room %s restarted", room.ID)

	h.broadcastRoom(room, RoomUpdateMessage{Type: "room_update", Room: room.snapshot()})
	h.broadcastRoom(room, systemNotice("New match started in the same room."))
}

func (h *Hub) handleSendMessage(c *Client, msg ClientMessage) {
	room, ok := h.store.get(msg.RoomID)
	if !ok {
		return
	}

	sender, ok := room.participantNickname(c.id)
	if !ok {
		return
	}

	text := msg.Text
	if runes := []rune(text); len(runes) > maxChatLength {
		text = string(runes[:maxChatLength])
	}

	h.broadcastRoom(room, ChatEventMessage{
		Type:      "chat_message",
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleLeave resolves an explicit leave_room or a transport disconnect to
// the single room the connection occupies. A player abandoning a live match
// forfeits it before the seat is removed.
func (h *Hub) handleLeave(c *Client) {
	room, role, ok := h.store.findParticipation(c.id)
	if !ok {
		return
	}

	if role == rolePlayer {
		if room.Winner == OutcomeNone && len(room.Players) == 2 {
			winner := OutcomeDraw
			if opponent := h.opponent(room, c.id); opponent != nil {
				winner = Outcome(opponent.Symbol)
			}
			room.Winner = winner
			h.store.update(room.ID, room)

			logf(h.cfg, "GAMES: Room %s forfeited, %s wins", room.ID, winner)

			h.broadcastRoom(room, systemNotice("Player disconnected. Win by forfeit."))
			h.broadcastRoom(room, GameOverMessage{Type: "game_over", Winner: winner})
		}

		_, updated, _ := h.store.removePlayer(c.id)
		h.sendTo(c, LeftRoomMessage{Type: "left_room_confirmed"})

		if updated != nil {
			h.broadcastRoom(updated, RoomUpdateMessage{Type: "room_update", Room: updated.snapshot()})
		} else {
			logf(h.cfg, "GAMES: Room %s deleted", room.ID)
		}
	} else {
		updated, _ := h.store.removeSpectator(room.ID, c.id)
		h.sendTo(c, LeftRoomMessage{Type: "left_room_confirmed"})

		if updated != nil {
			h.broadcastRoom(updated, RoomUpdateMessage{Type: "room_update", Room: updated.snapshot()})
		}
	}

	h.broadcastLobby()
}

func (h *Hub) opponent(room *Room, connID string) *Player {
	for i := range room.Players {
		if room.Players[i].ID != connID {
			return &room.Players[i]
		}
	}
	return nil
}

func (h *Hub) clampNickname(nickname string) string {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return "Anonymous"
	}
	if runes := []rune(nickname); len(runes) > h.cfg.maxNickname {
		return string(runes[:h.cfg.maxNickname])
	}
	return nickname
}

func (h *Hub) sendTo(c *Client, msg any) {
	// A dropped client's channel is already closed; sending would panic.
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcastRoom delivers msg to the connections currently joined to the
// room, players and spectators alike.
func (h *Hub) broadcastRoom(room *Room, msg any) {
	members := make(map[string]bool, len(room.Players)+len(room.Spectators))
	for _, p := range room.Players {
		members[p.ID] = true
	}
	for _, s := range room.Spectators {
		members[s.ID] = true
	}

	for client := range h.clients {
		if members[client.id] {
			h.sendTo(client, msg)
		}
	}
}

// broadcastLobby delivers the room list to every connection, in or out of
// a room.
func (h *Hub) broadcastLobby() {
	msg := RoomListMessage{Type: "room_list", Rooms: h.store.list()}
	for client := range h.clients {
		h.sendTo(client, msg)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(cfg *Config, hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: websocket upgrade from %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
			id:   uuid.NewString(),
		}

		logf(cfg, "GAMES: Connection %s from %s", client.id, realIP(r))

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "list_rooms", "create_room", "join_room", "join_spectator",
			"make_move", "restart_game", "send_message", "leave_room":
			h.commands <- command{client: c, msg: msg}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// qrHandler generates a PNG QR code for a room's spectator link.
func qrHandler(cfg *Config, store *RoomStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if _, ok := store.get(roomID); !ok {
			http.Error(w, "no such room", http.StatusNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/?room=" + roomID

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// registerGame sets up the room system:
//   - $prefix/ws          → websocket endpoint for lobby and rooms
//   - $prefix/qr/:roomid  → PNG QR code linking to the room as spectator
func registerGame(cfg *Config, mux *httprouter.Router) *Hub {
	store := newRoomStore()
	hub := newHub(cfg, store)
	go hub.run()

	mux.GET(cfg.prefix+"/ws", serveWS(cfg, hub))
	mux.GET(cfg.prefix+"/qr/:roomid", qrHandler(cfg, store))

	return hub
}
