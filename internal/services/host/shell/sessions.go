package shell

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/mfhost/internal/services/host/sidebar"
)

// sidebarCookieName carries the browser's sidebar session ID.
const sidebarCookieName = "mfhost_sidebar"

// sidebarSession is one browser's sidebar and when it was last used.
type sidebarSession struct {
	sidebar  *sidebar.Sidebar
	lastSeen time.Time
}

// sidebarStore keeps one sidebar per browser, so switching modules rather
// than loading pages is what triggers an action fetch.
type sidebarStore struct {
	mu       sync.Mutex
	sessions map[string]*sidebarSession
	ttl      time.Duration
	now      func() time.Time
	build    func() *sidebar.Sidebar
}

func newSidebarStore(ttl time.Duration, build func() *sidebar.Sidebar) *sidebarStore {
	return &sidebarStore{
		sessions: make(map[string]*sidebarSession),
		ttl:      ttl,
		now:      time.Now,
		build:    build,
	}
}

// get returns the sidebar for id, or nil if missing or idle past the ttl.
func (s *sidebarStore) get(id string) *sidebar.Sidebar {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.ttl {
		delete(s.sessions, id)
		sess.sidebar.Close()
		return nil
	}
	sess.lastSeen = now
	return sess.sidebar
}

// create stores a fresh sidebar and returns its ID. Idle sessions are swept
// on the way.
func (s *sidebarStore) create() (string, *sidebar.Sidebar) {
	id := uuid.NewString()
	sb := s.build()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, key)
			sess.sidebar.Close()
		}
	}
	s.sessions[id] = &sidebarSession{sidebar: sb, lastSeen: now}
	return id, sb
}

func (s *sidebarStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// close cancels every pending load and forgets all sessions.
func (s *sidebarStore) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.sidebar.Close()
		delete(s.sessions, id)
	}
}

// lookupSidebar returns the sidebar of the request's session, if any.
func (h *Handler) lookupSidebar(r *http.Request) *sidebar.Sidebar {
	cookie, err := r.Cookie(sidebarCookieName)
	if err != nil {
		return nil
	}
	id := strings.TrimSpace(cookie.Value)
	if id == "" {
		return nil
	}
	return h.sessions.get(id)
}

// sidebarSession returns the browser's sidebar, starting a session when the
// request carries none or an expired one.
func (h *Handler) sidebarSession(w http.ResponseWriter, r *http.Request) *sidebar.Sidebar {
	if sb := h.lookupSidebar(r); sb != nil {
		return sb
	}
	id, sb := h.sessions.create()
	http.SetCookie(w, &http.Cookie{
		Name:     sidebarCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sb
}
