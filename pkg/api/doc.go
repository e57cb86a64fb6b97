// Package api exposes the conversion service over HTTP: a convert
// endpoint that turns line protocol documents into CSV (cached by
// content hash), retrieval and listing of stored conversions, store
// statistics, and a WebSocket stream of conversion events.
package api
