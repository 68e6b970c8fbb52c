// Testsite is a simple HTTP server used for exercising the monitor locally.
// It serves a configurable body with a configurable status code and delay.
//
// Usage:
//
//	go run testsite.go -port 8081 -status 200 -delay 0s -body "Welcome to the test site"
//
// Point a site entry at http://localhost:8081/ and tune the flags to
// simulate slow responses, server errors, and content mismatches.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

func main() {
	port := flag.Int("port", 8081, "Port to listen on")
	status := flag.Int("status", http.StatusOK, "Status code to return")
	delay := flag.Duration("delay", 0, "Delay before responding")
	body := flag.String("body", "Welcome to the test site", "Response body")
	flag.Parse()

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		if *delay > 0 {
			time.Sleep(*delay)
		}
		w.WriteHeader(*status)
		fmt.Fprintln(w, *body)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("test site listening on %s (status=%d delay=%s)", addr, *status, *delay)
	log.Fatal(http.ListenAndServe(addr, nil))
}
