// Package server binds the chat transport to the conversational
// engine: one authenticated operator, one engine per connection,
// citations rendered as side-panel elements.
package server

import (
	"crypto/subtle"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"docchat/internal/models"
	"docchat/internal/types"
	"docchat/pkg/engine"
)

const greeting = "Hello! I am ready to analyze your documents. What would you like to know?"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message is one chat frame. Inbound frames carry the user utterance in
// Content; outbound frames add the citation elements.
type Message struct {
	Type     string    `json:"type"`
	Content  string    `json:"content"`
	Elements []Element `json:"elements,omitempty"`
}

// Element is a side-panel attachment: one retrieved passage labelled by
// its source page.
type Element struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Display string `json:"display"`
}

type Config struct {
	Addr     string
	Username string
	Password string
}

// Server owns the sessions. The condenser, retriever and answerer are
// stateless and shared; each connection gets its own engine holding
// that session's history, created on connect and dropped on disconnect.
type Server struct {
	config    Config
	condenser types.Condenser
	retriever types.Retriever
	answerer  types.Answerer

	mu       sync.Mutex
	sessions map[*websocket.Conn]*engine.Engine
}

func New(config Config, condenser types.Condenser, retriever types.Retriever, answerer types.Answerer) *Server {
	return &Server{
		config:    config,
		condenser: condenser,
		retriever: retriever,
		answerer:  answerer,
		sessions:  make(map[*websocket.Conn]*engine.Engine),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.requireAuth(s.handleWebSocket))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) ListenAndServe() error {
	log.Printf("listening on %s", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, s.Handler())
}

// requireAuth is the credential gate: a boolean check against the two
// configured values, nothing more.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.config.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.config.Password)) == 1
		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", `Basic realm="docchat"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	sess := engine.New(s.condenser, s.retriever, s.answerer)
	s.mu.Lock()
	s.sessions[conn] = sess
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	s.send(conn, Message{Type: "answer", Content: greeting})

	// Messages are handled in arrival order on this goroutine: one
	// in-flight turn per session, never interleaved.
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("error reading message: %v", err)
			}
			return
		}

		answer, err := sess.Ask(r.Context(), msg.Content)
		if err != nil {
			log.Printf("turn failed: %v", err)
		}
		if r.Context().Err() != nil {
			return
		}

		s.send(conn, Message{
			Type:     "answer",
			Content:  answer.Text,
			Elements: citationElements(answer),
		})
	}
}

// citationElements formats the answer's citations for the side panel,
// one element per retrieved passage labelled "Page <label>".
func citationElements(answer models.Answer) []Element {
	elements := make([]Element, 0, len(answer.Citations))
	for _, citation := range answer.Citations {
		elements = append(elements, Element{
			Name:    citation.Label,
			Content: citation.Text,
			Display: "side",
		})
	}
	return elements
}

func (s *Server) send(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("error sending message: %v", err)
	}
}
