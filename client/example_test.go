package client_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/adamwoolhether/press/client"
)

func ExampleNew() {
	c, err := client.New(
		client.WithUserAgent("example/1.0"),
		client.WithThrottle(100, 10),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	c.Close()

	fmt.Println("closed:", c.Closed())
	// Output: closed: true
}

func ExampleClient_Get() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	c, err := client.New()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()

	resp := c.Get(context.Background(), srv.URL+"/greet")
	if resp.Err != nil {
		fmt.Println("error:", resp.Err)
		return
	}

	ct, _ := resp.Get("Content-Type")
	fmt.Println(resp.StatusCode, ct, string(resp.Body))
	// Output: 200 text/plain; charset=utf-8 hello
}

func ExampleClient_GetAsync() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.URL.Path)
	}))
	defer srv.Close()

	c, err := client.New()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()

	first := c.GetAsync(context.Background(), srv.URL+"/first")
	second := c.GetAsync(context.Background(), srv.URL+"/second")

	// The first body is copied because the second request reuses the
	// receive buffer.
	a := first.Wait().Clone()
	b := second.Wait()

	fmt.Println(string(a.Body), string(b.Body))
	// Output: /first /second
}

func ExampleClient_Post() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fmt.Fprintf(w, "%s %s", r.Header.Get("Content-Type"), body)
	}))
	defer srv.Close()

	c, err := client.New()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()

	resp := c.Post(context.Background(), srv.URL, []byte(`{"name":"alice"}`), client.ContentJSON)
	if resp.Err != nil {
		fmt.Println("error:", resp.Err)
		return
	}

	fmt.Println(string(resp.Body))
	// Output: application/json {"name":"alice"}
}

func ExampleClient_AddHeader() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.Header.Get("X-Request-ID"))
	}))
	defer srv.Close()

	c, err := client.New()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()

	c.AddHeader("X-Request-ID", "abc123")

	fmt.Println(string(c.Get(context.Background(), srv.URL).Body))
	fmt.Println(string(c.Get(context.Background(), srv.URL).Body))
	// Output:
	// abc123
	// abc123
}

func ExampleClient_Download() {
	const content = "0123456789"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var start int
		fmt.Sscan(r.Header.Get("cinatra_start_pos"), &start)
		fmt.Fprint(w, content[start:])
	}))
	defer srv.Close()

	dir, err := os.MkdirTemp("", "press-example")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer os.RemoveAll(dir)

	dest := filepath.Join(dir, "digits.txt")
	if err := os.WriteFile(dest, []byte("0123"), 0o644); err != nil {
		fmt.Println("error:", err)
		return
	}

	c, err := client.New()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()

	sum := sha256.Sum256([]byte("456789"))
	resp := c.Download(context.Background(), srv.URL+"/digits.txt", dest, 0,
		client.WithChecksum(sha256.New(), hex.EncodeToString(sum[:])),
	)
	if resp.Err != nil {
		fmt.Println("error:", resp.Err)
		return
	}

	got, _ := os.ReadFile(dest)
	fmt.Println(string(got))
	// Output: 0123456789
}
