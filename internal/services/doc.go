// Package services is the remote music catalog client.
//
// # Relay Chain
//
// The Deezer API is reached through an ordered list of public CORS relays ([RelayChain]).
// A relay that fails at the network level or answers with a transient status (408, 502, 503 by
// default) is skipped in favour of the next one. Any other status, including real API errors,
// is returned as final. When every relay fails the caller gets [shared.ErrAllRelaysFailed]
// joined with each attempt's error.
//
// Relays sometimes answer with an HTML error page and a 200 status. Callers sniff the body
// and fail with [shared.ErrRelayReturnedHTML] instead of decoding it.
//
// # Catalog
//
// [DeezerService] implements [Catalog] and maps Deezer records into [models.MusicTrack].
// [CachedCatalog] wraps any [Catalog] with a redis cache-aside layer.
//
// [Ref]: https://developers.deezer.com/api
package services
