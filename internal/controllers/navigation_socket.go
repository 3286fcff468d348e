package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"campus_wayfinder/internal/directory"
	"campus_wayfinder/internal/geo"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// positionMessage is what the browser sends on each geolocation callback:
// either a fix or the reason it has none.
type positionMessage struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     string   `json:"error"`
}

// parsePosition returns nil for anything that is not a usable fix.
func parsePosition(data []byte) (*geo.Point, string) {
	var msg positionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, "malformed position: " + err.Error()
	}
	if msg.Error != "" {
		return nil, msg.Error
	}
	if msg.Latitude == nil || msg.Longitude == nil {
		return nil, "position without coordinates"
	}
	p := geo.Point{Latitude: *msg.Latitude, Longitude: *msg.Longitude}
	if !p.Valid() {
		return nil, "position out of range"
	}
	return &p, ""
}

// navClient is one open navigation socket and the last position it reported.
type navClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu   sync.Mutex
	last *geo.Point
}

func (n *navClient) position() *geo.Point {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

func (n *navClient) setPosition(p *geo.Point) {
	n.mu.Lock()
	n.last = p
	n.mu.Unlock()
}

// send serialises writes; gorilla allows one concurrent writer.
func (n *navClient) send(v interface{}) error {
	n.writeMu.Lock()
	defer n.writeMu.Unlock()
	return n.conn.WriteJSON(v)
}

// SiteHub tracks navigation sockets per site so a change to a site can be
// pushed to everyone heading there.
type SiteHub struct {
	clients map[uint]map[*navClient]bool
	updates chan uint
	mu      sync.Mutex
}

func NewSiteHub() *SiteHub {
	return &SiteHub{
		clients: make(map[uint]map[*navClient]bool),
		updates: make(chan uint, 100),
	}
}

func (h *SiteHub) register(siteID uint, n *navClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[siteID]; !ok {
		h.clients[siteID] = make(map[*navClient]bool)
	}
	h.clients[siteID][n] = true
	logrus.WithFields(logrus.Fields{
		"site_id":  siteID,
		"conn_ptr": fmt.Sprintf("%p", n.conn),
	}).Debug("navigation client registered")
}

func (h *SiteHub) unregister(siteID uint, n *navClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[siteID]; ok {
		delete(clients, n)
		if len(clients) == 0 {
			delete(h.clients, siteID)
		}
	}
}

func (h *SiteHub) snapshot(siteID uint) []*navClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*navClient, 0, len(h.clients[siteID]))
	for n := range h.clients[siteID] {
		out = append(out, n)
	}
	return out
}

// Publish queues a refresh for every client navigating to siteID.
func (h *SiteHub) Publish(siteID uint) {
	select {
	case h.updates <- siteID:
	default:
		logrus.WithField("site_id", siteID).Warn("site update channel full, dropping refresh")
	}
}

// Broadcast delivers queued site refreshes until ctx is done.
func (ctl *Controller) Broadcast(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case siteID := <-ctl.Hub.updates:
			for _, n := range ctl.Hub.snapshot(siteID) {
				ctl.pushGuidance(ctx, siteID, n)
			}
		}
	}
}

func (ctl *Controller) pushGuidance(ctx context.Context, siteID uint, n *navClient) {
	g, err := ctl.guidance(ctx, siteID, n.position())
	if errors.Is(err, directory.ErrNotFound) {
		_ = n.send(gin.H{"error": "site no longer exists"})
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("site_id", siteID).Warn("guidance failed")
		return
	}
	if err := n.send(gin.H{"guidance": g}); err != nil {
		logrus.WithError(err).WithField("site_id", siteID).Debug("navigation push failed")
	}
}

// NavigationSocket streams guidance to a site as the user moves. Every
// position the client sends gets fresh guidance back; a failed fix falls
// back to far-away guidance instead of closing the socket.
func (ctl *Controller) NavigationSocket(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := ctl.Directory.Site(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("navigation websocket upgrade failed")
		return
	}
	defer conn.Close()

	n := &navClient{conn: conn}
	if ctl.Hub != nil {
		ctl.Hub.register(id, n)
		defer ctl.Hub.unregister(id, n)
	}
	logrus.WithFields(logrus.Fields{
		"site_id":  id,
		"conn_ptr": fmt.Sprintf("%p", conn),
	}).Info("navigation websocket connection established")

	ctl.pushGuidance(ctx, id, n)
	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("site_id", id).Info("navigation websocket closed")
			} else {
				logrus.WithError(err).WithField("site_id", id).Warn("navigation websocket read failed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		pos, problem := parsePosition(p)
		if problem != "" {
			logrus.WithField("site_id", id).WithField("reason", problem).Debug("no usable position")
		}
		n.setPosition(pos)
		ctl.pushGuidance(ctx, id, n)
	}
}
