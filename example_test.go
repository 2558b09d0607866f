package press_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/adamwoolhether/press"
	"github.com/adamwoolhether/press/client"
)

func ExampleNewClient() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"msg":"hello"}`)
	}))
	defer ts.Close()

	c, err := press.NewClient(client.WithUserAgent("press-example"))
	if err != nil {
		fmt.Println("build error:", err)
		return
	}
	defer c.Close()

	resp := c.Get(context.Background(), ts.URL+"/greet")
	if resp.Err != nil {
		fmt.Println("request error:", resp.Err)
		return
	}

	fmt.Println(resp.StatusCode, string(resp.Body))
	// Output: 200 {"msg":"hello"}
}

func ExampleNewLimiter() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	l, err := press.NewLimiter(100, 2)
	if err != nil {
		fmt.Println("limiter error:", err)
		return
	}

	var clients []*client.Client
	for range 2 {
		c, err := press.NewClient(client.WithLimiter(l))
		if err != nil {
			fmt.Println("build error:", err)
			return
		}
		defer c.Close()
		clients = append(clients, c)
	}

	for _, c := range clients {
		fmt.Println(c.Get(context.Background(), ts.URL).Status)
	}
	// Output:
	// 200
	// 200
}
