// Package gateway exposes the cache protocol over WebSocket for clients that cannot
// open raw TCP connections.
//
// Each connection gets its own network.Session. Frames are treated as a byte stream,
// so a command may span frames and one frame may carry several pipelined commands.
// The replies produced while handling a frame are returned as one frame of the same
// message type; a frame that produces no reply (a partial command or noreply) gets
// no response.
//
//	mux.Handle("GET /ws", gateway.Handler(lru,
//		gateway.WithLogger(log),
//		gateway.WithAllowAnyOrigin(),
//	))
package gateway
