package puzzle_client

import (
	"github.com/mcdev12/tileswap/go/clients"
)

type PuzzleClient struct {
	*clients.BaseClient
}

// NewPuzzleClient builds a client for the puzzle authority at baseURL.
// sessionCookie is forwarded verbatim when set; the client never logs in on its own.
func NewPuzzleClient(baseURL, sessionCookie string) *PuzzleClient {
	client := &PuzzleClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader(ContentTypeHeader, JSONContentType)
	client.SetHeader(AcceptHeader, JSONContentType)
	client.SetHeader(UserAgentHeader, UserAgent)
	if sessionCookie != "" {
		client.SetHeader(CookieHeader, sessionCookie)
	}

	return client
}
