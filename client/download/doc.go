// Package download manages the destination file of a resumable
// download: creating it, reporting the offset to resume from, and
// appending body bytes as they arrive with optional checksum
// validation and progress reporting.
//
// Most callers should use [github.com/adamwoolhether/press/client.Client.Download],
// which opens the [File], advertises [File.Offset] to the origin and
// streams the response body into it:
//
//	resp := c.Download(ctx, "http://origin/big.bin", "/tmp/big.bin", 0,
//		download.WithChecksum(sha256.New(), expectedHex),
//		download.WithProgress(),
//	)
package download
