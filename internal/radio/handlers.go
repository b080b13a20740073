package radio

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arung-agamani/denpa-radio/internal/auth"
	"github.com/arung-agamani/denpa-radio/internal/model"
)

// formattedDuration renders a Track's duration as "MM:SS", or "" for a nil
// Track.
func formattedDuration(t *model.Track) string {
	if t == nil {
		return ""
	}
	return model.FormatDuration(strconv.Itoa(t.Duration))
}

// statusHandler reports a public snapshot of EngineState plus the on-deck
// buffer.
func (s *Server) statusHandler(c *gin.Context) {
	state := s.engine.GetCurrent()
	upcoming := s.engine.GetUpcoming()

	c.JSON(http.StatusOK, gin.H{
		"station_name":     s.cfg.StationName,
		"current":          state.Current,
		"current_duration": formattedDuration(state.Current),
		"previous":         state.Previous,
		"playing":          state.Playing,
		"index":            state.Index,
		"upcoming":         upcoming,
		"active_clients":   s.broadcaster.ActiveListeners(),
		"max_clients":      s.cfg.MaxClients,
		"subscriber_count": s.events.SubscriberCount(),
	})
}

func (s *Server) skipHandler(c *gin.Context) {
	s.engine.Skip()
	c.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (s *Server) previousHandler(c *gin.Context) {
	s.engine.Previous()
	c.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (s *Server) seekHandler(c *gin.Context) {
	var body struct {
		Seconds int `json:"seconds"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Seconds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid seek offset"})
		return
	}
	s.engine.Seek(body.Seconds)
	c.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

// loginHandler issues a JWT used to authorize the skip/previous/seek
// control surface.
func (s *Server) loginHandler(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request body"})
		return
	}

	token, err := s.auth.Authenticate(body.Username, body.Password, c.Request.RemoteAddr)
	if err != nil {
		status := http.StatusUnauthorized
		if err == auth.ErrRateLimited {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "token": token})
}
