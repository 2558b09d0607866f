// Package client provides an asynchronous HTTP/1.1 client engine.
//
// # Building a Client
//
// Use [New] to create a [Client] with functional options:
//
//	c, err := client.New(
//		client.WithUserAgent("press/1.0"),
//		client.WithThrottle(100, 10),
//	)
//	defer c.Close()
//
// Each Client owns one connection and a loop goroutine that runs its
// requests one at a time. The connection is reused while the origin
// answers with keep-alive and is re-dialled by the next request after
// the origin closes it or a transport error occurs.
//
// # Making Requests
//
// Every operation has a suspending form returning a [Call] and a
// blocking form:
//
//	call := c.GetAsync(ctx, "http://127.0.0.1:8080/ping")
//	// ... do other work ...
//	resp := call.Wait()
//	if resp.Err != nil { ... }
//
// Failures never escape as panics: [Response.Err] carries transport
// errors (wrapped in [OpError]), [ErrProtocol], [ErrUnsupported] and
// [ErrNotConnected]. [Response.Body] is borrowed from the client's
// receive buffer; call [Response.Clone] to keep it past the next
// request.
//
// Persistent headers are added with [Client.AddHeader] and stay until
// removed with [Client.DelHeader] or [Client.ResetHeaders].
//
// # Downloading Files
//
// [Client.Download] appends a response body to a file and asks the
// origin to resume from the bytes already on disk:
//
//	resp := c.Download(ctx, "http://origin/big.bin", "/tmp/big.bin", 0,
//		client.WithChecksum(sha256.New(), expectedHex),
//		client.WithProgress(),
//	)
//
// For lower-level control see the
// [github.com/adamwoolhether/press/client/download] package.
package client
