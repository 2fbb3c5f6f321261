package remote

// Request asks the server for completions of a prefix.
type Request struct {
	ID     string `msgpack:"id"`
	Prefix string `msgpack:"p"`
	Limit  int    `msgpack:"l,omitempty"`
}

// Suggestion is one ranked word in a response.
type Suggestion struct {
	Word string `msgpack:"w"`
	Rank uint16 `msgpack:"r"`
}

// Response answers a Request. Suggestions arrive rank-ordered.
type Response struct {
	ID          string       `msgpack:"id"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	TimeTaken   int64        `msgpack:"t"`
	Error       string       `msgpack:"e,omitempty"`
}
