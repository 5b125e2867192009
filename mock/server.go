package mock

import "net/http/httptest"

type HTTPTestServer struct {
	*ChatService
	Server *httptest.Server
	URL    string
}

// NewHTTPTestServer starts a mock chat backend
func NewHTTPTestServer(opts ...Option) (*HTTPTestServer, error) {
	service, err := NewChatService(opts...)
	if err != nil {
		return nil, err
	}
	server := &HTTPTestServer{ChatService: service}
	server.Server = httptest.NewServer(service.Handler())
	service.Issuer = server.Server.URL
	server.URL = server.Server.URL
	return server, nil
}

func (s *HTTPTestServer) Close() {
	if s.Server != nil {
		s.Server.Close()
	}
	s.Server = nil
}
