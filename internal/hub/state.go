package hub

import (
	"sort"

	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/metrics"
	"github.com/interestconnect/realtime/internal/registry"
	"github.com/interestconnect/realtime/pkg/log"
)

// state is touched only by the hub loop.
type state struct {
	registry *registry.Registry
	clients  map[string]*Client            // sessionID -> client
	channels map[string]map[string]*Client // channel -> sessionID -> client
}

func (s *state) Attach(c *Client) {
	if c.closed {
		return
	}
	c.attached = true
	s.clients[c.ID] = c
	metrics.ConnectionsActive.Set(float64(len(s.clients)))
}

func (s *state) Detach(c *Client) {
	for name := range c.channels {
		s.leave(c, name)
	}
	if c.attached {
		delete(s.clients, c.ID)
		c.attached = false
	}
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
	metrics.ConnectionsActive.Set(float64(len(s.clients)))
}

func (s *state) Admit(c *Client) string {
	prev := s.registry.Admit(c.UserID(), c.ID)
	metrics.UsersOnline.Set(float64(s.registry.Len()))
	return prev
}

func (s *state) Evict(c *Client) bool {
	ok := s.registry.Evict(c.UserID(), c.ID)
	if ok {
		metrics.UsersOnline.Set(float64(s.registry.Len()))
	} else {
		metrics.StaleEvictions.Inc()
	}
	return ok
}

func (s *state) IsOnline(userID string) bool {
	return s.registry.IsOnline(userID)
}

func (s *state) Online() []string {
	return s.registry.Online()
}

func (s *state) JoinPersonal(c *Client) {
	s.join(c, domain.PersonalChannel(c.UserID()))
}

func (s *state) JoinGroup(c *Client, groupID string) bool {
	return s.join(c, domain.GroupChannel(groupID))
}

func (s *state) LeaveGroup(c *Client, groupID string) bool {
	return s.leave(c, domain.GroupChannel(groupID))
}

func (s *state) join(c *Client, name string) bool {
	if !c.attached {
		return false
	}
	if _, ok := c.channels[name]; ok {
		return false
	}
	members, ok := s.channels[name]
	if !ok {
		members = make(map[string]*Client)
		s.channels[name] = members
	}
	members[c.ID] = c
	c.channels[name] = struct{}{}
	return true
}

func (s *state) leave(c *Client, name string) bool {
	if _, ok := c.channels[name]; !ok {
		return false
	}
	delete(c.channels, name)
	if members, ok := s.channels[name]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(s.channels, name)
		}
	}
	return true
}

func (s *state) Members(channel string) int {
	return len(s.channels[channel])
}

func (s *state) Channels(c *Client) []string {
	names := make([]string, 0, len(c.channels))
	for name := range c.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *state) EmitToChannel(channel, event string, payload interface{}) int {
	members := s.channels[channel]
	if len(members) == 0 {
		return 0
	}
	data, ok := encode(event, payload)
	if !ok {
		return 0
	}
	sent := 0
	for _, c := range members {
		if s.deliver(c, event, data) {
			sent++
		}
	}
	return sent
}

func (s *state) EmitToAll(event string, payload interface{}) int {
	if len(s.clients) == 0 {
		return 0
	}
	data, ok := encode(event, payload)
	if !ok {
		return 0
	}
	sent := 0
	for _, c := range s.clients {
		if s.deliver(c, event, data) {
			sent++
		}
	}
	return sent
}

func (s *state) EmitTo(c *Client, event string, payload interface{}) bool {
	data, ok := encode(event, payload)
	if !ok {
		return false
	}
	return s.deliver(c, event, data)
}

// deliver queues data without blocking the loop. A full buffer detaches
// the client; its write pump then closes the connection.
func (s *state) deliver(c *Client, event string, data []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		metrics.EventsOutbound.WithLabelValues(event).Inc()
		return true
	default:
		l := log.L()
		l.Warn().Str(log.FieldSessionID, c.ID).Str(log.FieldUserID, c.UserID()).Msg("send buffer full, dropping session")
		metrics.SlowConsumersDropped.Inc()
		s.Detach(c)
		return false
	}
}

func encode(event string, payload interface{}) ([]byte, bool) {
	data, err := domain.Encode(event, payload)
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldEvent, event).Msg("failed to encode event")
		return nil, false
	}
	return data, true
}
