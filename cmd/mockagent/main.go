// mockagent is a scriptable HTTP target for exercising monitors by
// hand: an endpoint that always succeeds, one that is slow, one that
// fails every Nth request, one that answers any status code, and an
// optional rate-limit mode that starts shedding requests with 429s.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

func main() {
	listen := flag.String("listen", ":8080", "listen address")
	slowDelay := flag.Duration("slow", 3*time.Second, "delay applied by /slow")
	failEvery := flag.Int("fail-every", 3, "every Nth request to /flaky fails")
	limitPerMin := flag.Int("limit", 0, "when >0, requests over this per-minute allowance get 429")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		delay := *slowDelay
		if q := r.URL.Query().Get("delay"); q != "" {
			if d, err := time.ParseDuration(q); err == nil {
				delay = d
			}
		}
		time.Sleep(delay)
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "delayedMs": delay.Milliseconds()})
	})

	var (
		flakyMu sync.Mutex
		flakyN  int
	)
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		flakyMu.Lock()
		flakyN++
		fail := *failEvery > 0 && flakyN%*failEvery == 0
		flakyMu.Unlock()
		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "boom"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	// /status/503 answers 503, /status/200?body=hello answers 200 with a
	// custom body for keyword checks.
	mux.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/status/"))
		if err != nil || code < 100 || code > 599 {
			http.Error(w, "bad status code", http.StatusBadRequest)
			return
		}
		if body := r.URL.Query().Get("body"); body != "" {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(body))
			return
		}
		writeJSON(w, code, map[string]any{"status": code})
	})

	handler := http.Handler(mux)
	if *limitPerMin > 0 {
		handler = rateLimited(mux, *limitPerMin)
	}

	log.Printf("mock target listening on %s", *listen)
	log.Fatal(http.ListenAndServe(*listen, handler))
}

// rateLimited sheds requests over the per-minute allowance with 429 and a
// Retry-After, mimicking an upstream that starts rate limiting.
func rateLimited(next http.Handler, perMinute int) http.Handler {
	var (
		mu      sync.Mutex
		seen    int
		resetAt = time.Now().Add(time.Minute)
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		now := time.Now()
		if now.After(resetAt) {
			seen = 0
			resetAt = now.Add(time.Minute)
		}
		seen++
		over := seen > perMinute
		retry := time.Until(resetAt)
		mu.Unlock()

		if over {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"status": "rate limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
