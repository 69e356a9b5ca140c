package server

import "github.com/palemoky/dice-quest/internal/protocol"

// GetOnlineCount 获取在线连接数
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// BroadcastToIdle 广播给尚未加入任何会话的连接
func (s *Server) BroadcastToIdle(msg *protocol.Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		if client.GetSession() == "" {
			client.SendMessage(msg)
		}
	}
}
