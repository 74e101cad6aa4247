// Package stream models payment streams owned by the external streaming service
// and the client interfaces the membership engine consumes.
//
// A Stream is referenced, never owned, by the engine. Reader covers lookups
// (by identifier and by sender), Service adds the wallet-signed Topup and Cancel
// calls. Client is an HTTP Reader for the streaming service's indexer API;
// signing clients are supplied by the wallet layer.
package stream
