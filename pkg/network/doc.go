// Package network parses the CLI port publishing syntax. Port mappings
// are recorded on containers; forwarding rules are not programmed.
package network
