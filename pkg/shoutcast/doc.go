// Package shoutcast reads ICY/Shoutcast streams so a live station can be relayed
// as a broadcast source.
//
// It is a fork of github.com/romantomjak/shoutcast, extended for relaying:
//   - Playlist resolution: .pls and .m3u URLs are resolved to the actual stream URL
//   - Metadata stripping: ICY metadata blocks are consumed so only audio bytes are returned
//   - Streams without icy-metaint are passed through untouched
//   - Requests are bound to a context so a relay can be abandoned
package shoutcast
